package httpapi

import (
	"errors"
	"net/http"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/store"
)

type contactResponse struct {
	Success bool                   `json:"success"`
	Contact goalert.SupportContact `json:"contact"`
}

type contactListResponse struct {
	Success  bool                     `json:"success"`
	Contacts []goalert.SupportContact `json:"contacts"`
}

func (h *Handler) contactError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrContactNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Success: false, Error: "Contact not found"})
		return
	}
	h.writeError(w, r, err)
}

func (h *Handler) listContacts(w http.ResponseWriter, r *http.Request) {
	list, err := h.contacts.ListActiveContacts(r.Context(), userID(r))
	if err != nil {
		h.contactError(w, r, err)
		return
	}
	if list == nil {
		list = []goalert.SupportContact{}
	}
	writeJSON(w, http.StatusOK, contactListResponse{Success: true, Contacts: list})
}

func (h *Handler) createContact(w http.ResponseWriter, r *http.Request) {
	var body goalert.SupportContact
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	body.ID = ""
	c, err := h.contacts.Create(r.Context(), userID(r), body)
	if err != nil {
		h.contactError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contactResponse{Success: true, Contact: c})
}

func (h *Handler) updateContact(w http.ResponseWriter, r *http.Request) {
	var body goalert.SupportContact
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	body.ID = r.PathValue("id")
	c, err := h.contacts.Update(r.Context(), userID(r), body)
	if err != nil {
		h.contactError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactResponse{Success: true, Contact: c})
}

func (h *Handler) deactivateContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contacts.Deactivate(r.Context(), userID(r), r.PathValue("id")); err != nil {
		h.contactError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
