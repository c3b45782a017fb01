// Package httpapi is the JSON-over-HTTP surface of the alert engine.
//
// Routes:
//
//	POST /send-support-message        send a message to listed contacts
//	POST /crisis-alert                alert the caller's whole support network
//	GET  /notifications               list the caller's notifications
//	POST /notifications               send an in-app support notification
//	POST /notifications/{id}/read     mark one notification read
//	GET  /notifications/stream        live notification events (SSE)
//	GET  /contacts                    list the caller's active contacts
//	POST /contacts                    add a support contact
//	PUT  /contacts/{id}               edit a support contact
//	DELETE /contacts/{id}             deactivate a support contact
//	GET  /healthz                     liveness
//	GET  /metrics                     Prometheus metrics
//
// Every route except /healthz and /metrics requires a bearer token. Error
// responses are {"success":false,"error":...} with the status from the
// engine's error policy.
package httpapi
