package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/salon/internal/catalog"
	"github.com/JonMunkholm/salon/internal/core"
	"github.com/JonMunkholm/salon/internal/model"
	"github.com/JonMunkholm/salon/internal/store"
)

// DefaultUpcomingLimit caps /api/bookings/upcoming when no limit is given.
const DefaultUpcomingLimit = 50

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// tableResponse describes a registered table and the headers it expects.
type tableResponse struct {
	core.TableInfo
	Columns []core.ColumnMapping `json:"columns"`
}

// handleListTables returns all tables in load order.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	infos := s.service.ListTables()
	out := make([]tableResponse, len(infos))
	for i, info := range infos {
		mapping, _ := s.service.Mapping(info.Key)
		out[i] = tableResponse{TableInfo: info, Columns: mapping}
	}
	writeJSON(w, out)
}

// handleDownloadTemplate returns a header-only CSV for a table, keyed by
// either its table key or its upload field name.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")

	def, ok := core.Get(name)
	if !ok {
		def, ok = core.ByParam(name)
	}
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", store.ErrUnknownTable, name), http.StatusNotFound)
		return
	}

	mapping, _ := s.service.Mapping(def.Info.Key)
	header := make([]string, len(mapping))
	for i, cm := range mapping {
		header[i] = cm.Source
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.csv"`, def.Info.Param))

	// Excel only detects UTF-8 with a BOM.
	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = ';'
	_ = csvWriter.Write(header)
	csvWriter.Flush()
}

// handleRanges returns the configured discount band labels.
func (s *Server) handleRanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Ranges().Labels())
}

// serviceView is a catalog entry with the figures the list displays.
type serviceView struct {
	model.ServiceOffering
	PercentOff      float64 `json:"percentOff"`
	DurationMinutes int     `json:"durationMinutes"`
	DiscountedCost  float64 `json:"discountedCost"`
}

type servicesResponse struct {
	Entries []serviceView `json:"entries"`
	Shown   int           `json:"shown"`
	Total   int           `json:"total"`
}

// handleServices runs the catalog query from range, q and sort parameters.
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.service.Query(r.Context(), catalog.Query{
		Range:  q.Get("range"),
		Search: q.Get("q"),
		Sort:   catalog.ParseSortDirection(q.Get("sort")),
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	out := servicesResponse{Entries: make([]serviceView, len(res.Entries)), Shown: res.Shown, Total: res.Total}
	for i, e := range res.Entries {
		out.Entries[i] = serviceView{
			ServiceOffering: e,
			PercentOff:      catalog.PercentOff(e.DiscountFactor),
			DurationMinutes: e.DurationMinutes(),
			DiscountedCost:  e.DiscountedCost(),
		}
	}
	writeJSON(w, out)
}

// handleExportServices exports the filtered catalog as CSV.
func (s *Server) handleExportServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.service.Query(r.Context(), catalog.Query{
		Range:  q.Get("range"),
		Search: q.Get("q"),
		Sort:   catalog.ParseSortDirection(q.Get("sort")),
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="services_%s.csv"`, timestamp))

	csvWriter := csv.NewWriter(w)
	_ = csvWriter.Write([]string{"title", "cost", "percent_off", "discounted_cost", "duration_minutes", "description"})
	for _, e := range res.Entries {
		_ = csvWriter.Write([]string{
			e.Title,
			strconv.FormatFloat(e.Cost, 'f', 2, 64),
			strconv.FormatFloat(catalog.PercentOff(e.DiscountFactor), 'f', -1, 64),
			strconv.FormatFloat(e.DiscountedCost(), 'f', 2, 64),
			strconv.Itoa(e.DurationMinutes()),
			e.Description,
		})
	}
	csvWriter.Flush()
}

// handleUpcoming lists bookings from now on, earliest first.
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultUpcomingLimit)
	bookings, err := s.service.Upcoming(r.Context(), time.Now(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, bookings)
}

// handleImportStatus returns the current state of the import limiter.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ImportStatus())
}
