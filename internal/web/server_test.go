package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/salon/internal/config"
	"github.com/JonMunkholm/salon/internal/core"
	_ "github.com/JonMunkholm/salon/internal/core/tables"
	"github.com/JonMunkholm/salon/internal/metrics"
	"github.com/JonMunkholm/salon/internal/store"
)

const (
	servicesCSV = "Наименование услуги;Длительность;Стоимость;Действующая скидка\n" +
		"Стрижка;45 мин.;1500;25%\n" +
		"Маникюр;1200 сек.;900;нет\n"
	clientsCSV  = "Фамилия;Имя;Пол;Телефон;Email\nИванова;Анна;ж;+7 900;anna@example.com\n"
	bookingsCSV = "Клиент;Услуга;Начало оказания услуги\nИванова;Маникюр;2099-01-01 10:00\nСидоров;Маникюр;2099-01-02 10:00\n"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 1,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
			ImageDir:      core.DefaultImageDir,
		},
		Security: config.SecurityConfig{RequestsPerMinute: 1000},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	reg := metrics.NewRegistry()
	svc, err := core.NewService(st, cfg, nil, reg)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	s := NewServer(svc, cfg, reg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

// multipartBody builds an upload form from field -> (filename, content).
func multipartBody(t *testing.T, files map[string][2]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := fw.Write([]byte(f[1])); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func importFiles(t *testing.T, s *Server, files map[string][2]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", ct)
	return do(t, s, req)
}

func TestImportThenQuery(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := importFiles(t, s, map[string][2]string{
		"services": {"services.csv", servicesCSV},
		"clients":  {"clients.csv", clientsCSV},
		"bookings": {"bookings.csv", bookingsCSV},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report core.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(report.Tables) != 3 {
		t.Fatalf("report tables = %d, want 3", len(report.Tables))
	}
	if b, _ := report.Table("client_service"); b.Written != 1 || b.Rejected != 1 {
		t.Errorf("bookings report = %+v", b)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/services?range=All&sort=asc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("services status = %d", rec.Code)
	}
	var res servicesResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode services: %v", err)
	}
	if res.Shown != 2 || res.Total != 2 {
		t.Fatalf("shown %d of %d, want 2 of 2", res.Shown, res.Total)
	}
	if first := res.Entries[0]; first.Title != "Маникюр" || first.DurationMinutes != 20 || first.PercentOff != 0 {
		t.Errorf("first entry = %+v", first)
	}
	if second := res.Entries[1]; second.PercentOff != 25 || second.DiscountedCost != 1125 {
		t.Errorf("second entry = %+v", second)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/services?q="+url.QueryEscape("стриж"), nil))
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode services: %v", err)
	}
	if res.Shown != 1 {
		t.Errorf("search shown = %d, want 1", res.Shown)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/bookings/upcoming", nil))
	var upcoming []core.UpcomingBooking
	if err := json.NewDecoder(rec.Body).Decode(&upcoming); err != nil {
		t.Fatalf("decode upcoming: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ClientName != "Иванова Анна" {
		t.Errorf("upcoming = %+v", upcoming)
	}
}

func TestImport_AutoDetect(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := importFiles(t, s, map[string][2]string{
		"file": {"export.csv", servicesCSV},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = importFiles(t, s, map[string][2]string{
		"file": {"mystery.csv", "a;b\n1;2\n"},
	})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "FILE007") {
		t.Errorf("unrecognised file: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestImport_Errors(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name   string
		files  map[string][2]string
		status int
		code   string
	}{
		{"no files", map[string][2]string{}, http.StatusBadRequest, "FILE004"},
		{"unsupported format", map[string][2]string{"services": {"prices.pdf", "x"}}, http.StatusBadRequest, "FILE002"},
		{"empty file", map[string][2]string{"services": {"prices.csv", "  \n"}}, http.StatusBadRequest, "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := importFiles(t, s, tt.files)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestImport_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"front-desk"}
	s := newTestServer(t, cfg)

	rec := importFiles(t, s, map[string][2]string{"services": {"services.csv", servicesCSV}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	body, ct := multipartBody(t, map[string][2]string{"services": {"services.csv", servicesCSV}})
	req := httptest.NewRequest(http.MethodPost, "/api/import", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-API-Key", "front-desk")
	if rec := do(t, s, req); rec.Code != http.StatusOK {
		t.Errorf("status with key = %d, want 200", rec.Code)
	}
}

func TestReadOnlyEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/healthz", http.StatusOK, `"ok"`},
		{"/api/ranges", http.StatusOK, `"All"`},
		{"/api/tables", http.StatusOK, `"param":"bookings"`},
		{"/api/import/status", http.StatusOK, `"maxConcurrent":1`},
		{"/api/template/clients", http.StatusOK, "Фамилия;Имя"},
		{"/api/template/staff", http.StatusNotFound, "TBL001"},
		{"/api/export/services", http.StatusOK, "title,cost"},
		{"/metrics", http.StatusOK, "salon_catalog_queries_total"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, s, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.contains)
			}
			if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers missing")
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := newRateLimiter(ctx, 2, time.Minute)

	if !rl.allow("a") || !rl.allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.allow("b") {
		t.Error("other client should pass")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrImportBusy, http.StatusTooManyRequests},
		{core.ErrNoFiles, http.StatusBadRequest},
		{store.ErrUnknownTable, http.StatusNotFound},
		{fmt.Errorf("book: client: %w", store.ErrNotFound), http.StatusNotFound},
		{&core.ValidationError{Problems: []string{"title must not be empty"}}, http.StatusBadRequest},
		{fmt.Errorf("delete service 2: %w", core.ErrServiceInUse), http.StatusConflict},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
