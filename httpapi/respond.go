package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	goalert "github.com/MrEthical07/goAlert"
)

const maxBodyBytes = 64 << 10

var errBadBody = fmt.Errorf("%w: invalid request body", goalert.ErrValidation)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err through the engine policy table. Per-recipient
// classes never reach here as request errors, so a 2xx policy status is
// treated as internal.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := goalert.PolicyForError(err)
	status := p.HTTPStatus
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	msg := goalert.PublicMessage(err)
	if errors.Is(err, errBadBody) {
		msg = "Invalid request body"
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("error_class", p.Class.String()),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}
