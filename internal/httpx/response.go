package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/diewo77/invoice-api/internal/services"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// StatusForError maps core error kinds onto HTTP statuses. Unrecognized
// errors (store failures, lock timeouts) surface as 500 so transient
// problems stay visible rather than silently swallowed.
func StatusForError(err error) int {
	switch services.KindOf(err) {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindMalformedDate:
		return http.StatusBadRequest
	case services.KindInvalidTransition, services.KindConstraintViolation, services.KindDuplicateInvoiceNumber:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CoreError writes a core failure as JSON with its mapped status and kind.
func CoreError(w http.ResponseWriter, err error) {
	kind := services.KindOf(err)
	msg := string(kind)
	if msg == "" {
		msg = "internal_error"
	}
	JSONError(w, StatusForError(err), msg, err.Error())
}
