package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/salon/internal/model"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	services := []model.Row{
		model.ServiceOffering{Title: "Маникюр", Cost: 1200, DiscountFactor: 0.85, DurationSeconds: 2700}.Row(),
		model.ServiceOffering{Title: "Стрижка", Cost: 900, DiscountFactor: 1, DurationSeconds: 1800, Description: "short"}.Row(),
	}
	if err := s.ClearAndBulkInsert(ctx, model.TableService, services); err != nil {
		t.Fatalf("insert services: %v", err)
	}

	clients := []model.Row{
		model.ClientRecord{LastName: "Иванова", FirstName: "Анна", GenderCode: model.GenderFemale, Birthday: "1990-05-01"}.Row(),
		model.ClientRecord{LastName: "Петров", FirstName: "Пётр", GenderCode: model.GenderMale}.Row(),
		model.ClientRecord{LastName: "Петров", FirstName: "Иван", GenderCode: model.GenderMale}.Row(),
	}
	if err := s.ClearAndBulkInsert(ctx, model.TableClient, clients); err != nil {
		t.Fatalf("insert clients: %v", err)
	}
}

func TestSQLite_FetchAllDecodesServices(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)

	rows, err := s.FetchAll(context.Background(), model.TableService)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("FetchAll() returned %d rows, want 2", len(rows))
	}

	first := model.ServiceFromRow(rows[0])
	if first.ID == 0 {
		t.Error("ID should be assigned by the store")
	}
	if first.Title != "Маникюр" || first.Cost != 1200 || first.DiscountFactor != 0.85 || first.DurationSeconds != 2700 {
		t.Errorf("first service = %+v", first)
	}
	if first.Description != "" {
		t.Errorf("Description = %q, want empty for NULL", first.Description)
	}
	if second := model.ServiceFromRow(rows[1]); second.Description != "short" {
		t.Errorf("second Description = %q, want %q", second.Description, "short")
	}
}

func TestSQLite_ClearAndBulkInsertReplaces(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	replacement := []model.Row{model.ServiceOffering{Title: "Педикюр", Cost: 1500, DiscountFactor: 1}.Row()}
	if err := s.ClearAndBulkInsert(ctx, model.TableService, replacement); err != nil {
		t.Fatalf("ClearAndBulkInsert() error = %v", err)
	}

	rows, err := s.FetchAll(ctx, model.TableService)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) != 1 || model.ServiceFromRow(rows[0]).Title != "Педикюр" {
		t.Errorf("after replace got %v", rows)
	}

	if err := s.ClearAndBulkInsert(ctx, model.TableService, nil); err != nil {
		t.Fatalf("ClearAndBulkInsert(nil) error = %v", err)
	}
	rows, _ = s.FetchAll(ctx, model.TableService)
	if len(rows) != 0 {
		t.Errorf("empty replace left %d rows", len(rows))
	}
}

func TestSQLite_LookupByNaturalKey(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name    string
		table   string
		key     string
		wantErr error
	}{
		{"service found", model.TableService, "Маникюр", nil},
		{"key is trimmed", model.TableService, "  Стрижка ", nil},
		{"client found", model.TableClient, "Иванова", nil},
		{"missing", model.TableClient, "Сидоров", ErrNotFound},
		{"ambiguous surname", model.TableClient, "Петров", ErrAmbiguous},
		{"no natural key", model.TableClientService, "x", ErrUnknownTable},
		{"unknown table", "users", "x", ErrUnknownTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := s.LookupByNaturalKey(ctx, tt.table, tt.key)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LookupByNaturalKey() error = %v", err)
			}
			if id <= 0 {
				t.Errorf("id = %d, want positive", id)
			}
		})
	}
}

func TestSQLite_BookingsCascadeAndRollback(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	clientID, err := s.LookupByNaturalKey(ctx, model.TableClient, "Иванова")
	if err != nil {
		t.Fatalf("lookup client: %v", err)
	}
	serviceID, err := s.LookupByNaturalKey(ctx, model.TableService, "Маникюр")
	if err != nil {
		t.Fatalf("lookup service: %v", err)
	}

	booking := model.BookingRecord{
		ClientID:  clientID,
		ServiceID: serviceID,
		StartTime: "2019-05-13 12:30:00",
		Start:     time.Date(2019, 5, 13, 12, 30, 0, 0, time.UTC),
	}
	if err := s.ClearAndBulkInsert(ctx, model.TableClientService, []model.Row{booking.Row()}); err != nil {
		t.Fatalf("insert booking: %v", err)
	}

	rows, err := s.FetchAll(ctx, model.TableClientService)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("bookings = %d, want 1", len(rows))
	}
	if got := model.BookingFromRow(rows[0]); got.StartTime != booking.StartTime {
		t.Errorf("StartTime = %q, want verbatim %q", got.StartTime, booking.StartTime)
	}

	// A dangling service id fails the whole batch and keeps the old rows.
	bad := []model.Row{
		booking.Row(),
		model.BookingRecord{ClientID: clientID, ServiceID: 9999, StartTime: "2019-05-14 10:00:00"}.Row(),
	}
	if err := s.ClearAndBulkInsert(ctx, model.TableClientService, bad); err == nil {
		t.Fatal("expected foreign key failure")
	}
	rows, _ = s.FetchAll(ctx, model.TableClientService)
	if len(rows) != 1 {
		t.Errorf("failed batch should roll back, got %d rows", len(rows))
	}

	// Replacing services removes bookings that referenced them.
	if err := s.ClearAndBulkInsert(ctx, model.TableService, nil); err != nil {
		t.Fatalf("clear services: %v", err)
	}
	rows, _ = s.FetchAll(ctx, model.TableClientService)
	if len(rows) != 0 {
		t.Errorf("bookings should cascade, got %d rows", len(rows))
	}
}

func TestSQLite_BookingStartTimeRoundTrip(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	clientID, _ := s.LookupByNaturalKey(ctx, model.TableClient, "Иванова")
	serviceID, _ := s.LookupByNaturalKey(ctx, model.TableService, "Маникюр")

	tests := []struct {
		name      string
		startText string
		start     time.Time
	}{
		{"day first", "15.03.2025 10:00", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)},
		{"iso", "2025-03-15 10:00", time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)},
		{"unreadable kept as text", "после обеда", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := model.BookingRecord{ClientID: clientID, ServiceID: serviceID, StartTime: tt.startText, Start: tt.start}
			if err := s.ClearAndBulkInsert(ctx, model.TableClientService, []model.Row{in.Row()}); err != nil {
				t.Fatalf("insert booking: %v", err)
			}

			rows, err := s.FetchAll(ctx, model.TableClientService)
			if err != nil || len(rows) != 1 {
				t.Fatalf("FetchAll() = %d rows, %v", len(rows), err)
			}
			got := model.BookingFromRow(rows[0])
			if got.StartTime != tt.startText {
				t.Errorf("StartTime = %q, want %q", got.StartTime, tt.startText)
			}
			if !got.Start.Equal(tt.start) {
				t.Errorf("Start = %v, want %v", got.Start, tt.start)
			}
		})
	}
}

func TestSQLite_RowMutations(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()

	id, err := s.Insert(ctx, model.TableService, model.ServiceOffering{Title: "Педикюр", Cost: 1500, DiscountFactor: 1, DurationSeconds: 3600}.Row())
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if n, _ := s.Count(ctx, model.TableService); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}

	row, err := s.Get(ctx, model.TableService, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := model.ServiceFromRow(row); got.ID != id || got.Title != "Педикюр" {
		t.Errorf("Get() = %+v", got)
	}

	updated := model.ServiceOffering{Title: "Педикюр SPA", Cost: 1800, DiscountFactor: 0.9, DurationSeconds: 4500}
	if err := s.Update(ctx, model.TableService, id, updated.Row()); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	row, _ = s.Get(ctx, model.TableService, id)
	if got := model.ServiceFromRow(row); got.Title != "Педикюр SPA" || got.Cost != 1800 || got.DurationSeconds != 4500 {
		t.Errorf("after Update got %+v", got)
	}

	if err := s.Delete(ctx, model.TableService, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	missing := []struct {
		name string
		err  error
	}{
		{"get", func() error { _, err := s.Get(ctx, model.TableService, id); return err }()},
		{"update", s.Update(ctx, model.TableService, id, updated.Row())},
		{"delete", s.Delete(ctx, model.TableService, id)},
	}
	for _, tt := range missing {
		if !errors.Is(tt.err, ErrNotFound) {
			t.Errorf("%s of deleted row: error = %v, want ErrNotFound", tt.name, tt.err)
		}
	}

	if _, err := s.Count(ctx, "users"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("Count() error = %v, want ErrUnknownTable", err)
	}
}

func TestSQLite_UnknownTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.FetchAll(ctx, "service; DROP TABLE client"); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("FetchAll() error = %v, want ErrUnknownTable", err)
	}
	if err := s.ClearAndBulkInsert(ctx, "audit_log", nil); !errors.Is(err, ErrUnknownTable) {
		t.Errorf("ClearAndBulkInsert() error = %v, want ErrUnknownTable", err)
	}
}

func TestOpenSQLite_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "salon.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	seed(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening applies the schema again without losing data.
	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	rows, err := s.FetchAll(ctx, model.TableClient)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("clients after reopen = %d, want 3", len(rows))
	}
}

func TestSingleID(t *testing.T) {
	tests := []struct {
		ids     []int64
		want    int64
		wantErr error
	}{
		{nil, 0, ErrNotFound},
		{[]int64{7}, 7, nil},
		{[]int64{7, 8}, 0, ErrAmbiguous},
	}
	for _, tt := range tests {
		got, err := singleID(tt.ids)
		if got != tt.want || !errors.Is(err, tt.wantErr) {
			t.Errorf("singleID(%v) = %d, %v; want %d, %v", tt.ids, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := quoteIdentifier(`a"b`); got != `"a""b"` {
		t.Errorf("quoteIdentifier = %s", got)
	}
}

func TestInsertStatement(t *testing.T) {
	got := insertStatement(model.TableClientService, tables[model.TableClientService].columns)
	want := `INSERT INTO "client_service" ("client_id", "service_id", "start_time", "start_text", "comment") VALUES ($1, $2, $3, $4, $5)`
	if got != want {
		t.Errorf("insertStatement() =\n%s\nwant\n%s", got, want)
	}
}

func TestUpdateStatement(t *testing.T) {
	got := updateStatement(model.TableService, []string{"title", "cost"}, pgPlaceholder)
	want := `UPDATE "service" SET "title" = $1, "cost" = $2 WHERE id = $3`
	if got != want {
		t.Errorf("updateStatement() =\n%s\nwant\n%s", got, want)
	}
}
