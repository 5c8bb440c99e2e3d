package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err), optionally with an explicit status
//  3. Error is mapped via core.MapError to get a user-friendly message
//  4. Technical error + context is logged with the request ID
//  5. The user message is returned as JSON

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/salon/internal/core"
	"github.com/JonMunkholm/salon/internal/logging"
	"github.com/JonMunkholm/salon/internal/source"
	"github.com/JonMunkholm/salon/internal/store"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	// Problems lists each invalid field of a rejected record.
	Problems []string `json:"problems,omitempty"`
}

// respondError logs err and writes its user message. A zero status is
// derived from the error with statusFor.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "10")
	}
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		resp.Problems = verr.Problems
	}
	writeJSONStatus(w, status, resp)
}

// statusFor picks the HTTP status for errors that reach a handler.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrImportBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, source.ErrTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrUnknownTable), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrServiceInUse):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoFiles),
		errors.Is(err, core.ErrUnrecognisedLayout),
		errors.Is(err, source.ErrEmpty),
		errors.Is(err, source.ErrNoHeader),
		errors.Is(err, source.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
