package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/salon/internal/core"
	"github.com/JonMunkholm/salon/internal/logging"
	"github.com/JonMunkholm/salon/internal/source"
)

// autoDetectField is the multipart field for files whose table is worked
// out from their header.
const autoDetectField = "file"

// multipartMemory is how much of a form is held in memory before spilling
// to temporary files.
const multipartMemory = 32 << 20

// handleImport ingests the uploaded spreadsheets in one run. Files arrive
// in fields named after each table's Param ("services", "clients",
// "bookings"); any number of "file" fields are matched to a table by
// their header. The response is the run report, with status 422 when any
// table failed.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	fields := len(s.service.ListTables()) + 1
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize*int64(fields))

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFiles, err), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	batch, err := s.readBatch(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	report, err := s.service.Ingest(r.Context(), batch)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	status := http.StatusOK
	if report.Failed() {
		status = http.StatusUnprocessableEntity
	}
	writeJSONStatus(w, status, report)
}

// readBatch parses every uploaded file into a core.Batch.
func (s *Server) readBatch(r *http.Request) (core.Batch, error) {
	batch := make(core.Batch)
	form := r.MultipartForm

	for _, info := range s.service.ListTables() {
		headers := form.File[info.Param]
		if len(headers) == 0 {
			continue
		}
		t, err := readPart(headers[0])
		if err != nil {
			return nil, err
		}
		batch[info.Key] = t
	}

	for _, fh := range form.File[autoDetectField] {
		t, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		info, ok := s.service.DetectTable(t.Header)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrUnrecognisedLayout, fh.Filename)
		}
		if _, taken := batch[info.Key]; taken {
			logging.FromContext(r.Context()).Warn("ignoring duplicate upload",
				"table", info.Key,
				"file", fh.Filename,
			)
			continue
		}
		batch[info.Key] = t
	}

	if len(batch) == 0 {
		return nil, core.ErrNoFiles
	}
	return batch, nil
}

func readPart(fh *multipart.FileHeader) (*source.Table, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	return source.Read(fh.Filename, f)
}
