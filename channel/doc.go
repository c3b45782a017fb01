// Package channel implements the external delivery gateways used by the
// alert engine: an SMS gateway speaking the Twilio Messages API and an
// email gateway speaking the SendGrid v3 mail API. Both satisfy the
// engine's sender interfaces and report the provider's message id.
//
// Phone numbers and email addresses are masked in every log line.
package channel
