package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/salon/internal/core"
)

// maxFormBody caps JSON bodies of single-record requests.
const maxFormBody = 64 << 10

// decodeBody reads one JSON object into v, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &core.ValidationError{Problems: []string{fmt.Sprintf("request body: %v", err)}}
	}
	return nil
}

// serviceID parses the {id} URL parameter.
func serviceID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Problems: []string{fmt.Sprintf("service id %q is not a number", chi.URLParam(r, "id"))}}
	}
	return id, nil
}

// handleCreateService adds one service from a JSON ServiceInput.
func (s *Server) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var in core.ServiceInput
	if err := decodeBody(w, r, &in); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	created, err := s.service.CreateService(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSONStatus(w, http.StatusCreated, created)
}

// handleUpdateService replaces service {id} with a JSON ServiceInput.
func (s *Server) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := serviceID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	var in core.ServiceInput
	if err := decodeBody(w, r, &in); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	updated, err := s.service.UpdateService(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, updated)
}

// handleDeleteService removes service {id}. Services with bookings answer
// 409 and stay.
func (s *Server) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := serviceID(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if err := s.service.DeleteService(r.Context(), id); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBook records a booking from a JSON BookingInput.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var in core.BookingInput
	if err := decodeBody(w, r, &in); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	booking, err := s.service.BookService(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSONStatus(w, http.StatusCreated, booking)
}
