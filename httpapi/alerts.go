package httpapi

import (
	"fmt"
	"net/http"

	goalert "github.com/MrEthical07/goAlert"
)

type supportMessageRequest struct {
	Contacts   []goalert.SupportContact `json:"contacts"`
	Message    string                   `json:"message"`
	SenderName string                   `json:"senderName,omitempty"`
}

type crisisAlertRequest struct {
	Message    string `json:"message,omitempty"`
	SenderName string `json:"senderName,omitempty"`
}

type deliveryResponse struct {
	Success          bool                      `json:"success"`
	Message          string                    `json:"message"`
	ContactsNotified int                       `json:"contactsNotified"`
	TotalContacts    int                       `json:"totalContacts"`
	Results          []goalert.DeliveryOutcome `json:"results"`
}

func newDeliveryResponse(res goalert.DeliveryResult) deliveryResponse {
	results := res.Results
	if results == nil {
		results = []goalert.DeliveryOutcome{}
	}
	return deliveryResponse{
		Success:          res.Delivered(),
		Message:          fmt.Sprintf("Sent to %d of %d contacts", res.ContactsNotified, res.TotalContacts),
		ContactsNotified: res.ContactsNotified,
		TotalContacts:    res.TotalContacts,
		Results:          results,
	}
}

func (h *Handler) sendSupportMessage(w http.ResponseWriter, r *http.Request) {
	var body supportMessageRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.SendSupportMessage(r.Context(), goalert.SupportMessageRequest{
		SenderUserID: userID(r),
		SenderName:   senderName(r, body.SenderName),
		Message:      body.Message,
		Contacts:     body.Contacts,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeliveryResponse(res))
}

func (h *Handler) crisisAlert(w http.ResponseWriter, r *http.Request) {
	var body crisisAlertRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &body); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	res, err := h.svc.SendCrisisAlert(r.Context(), goalert.CrisisAlertRequest{
		SenderUserID: userID(r),
		SenderName:   senderName(r, body.SenderName),
		Message:      body.Message,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDeliveryResponse(res))
}
