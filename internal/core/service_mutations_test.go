package core_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonMunkholm/salon/internal/core"
	"github.com/JonMunkholm/salon/internal/metrics"
	"github.com/JonMunkholm/salon/internal/model"
	"github.com/JonMunkholm/salon/internal/store"
)

func TestServiceInput_Validate(t *testing.T) {
	valid := core.ServiceInput{Title: "Стрижка", Cost: 1500, DurationSeconds: 2700, DiscountPercent: 25}

	tests := []struct {
		name    string
		edit    func(*core.ServiceInput)
		wantErr string
	}{
		{"valid", func(*core.ServiceInput) {}, ""},
		{"free service", func(in *core.ServiceInput) { in.Cost = 0 }, ""},
		{"title of 100 cyrillic letters", func(in *core.ServiceInput) { in.Title = strings.Repeat("ж", 100) }, ""},
		{"empty title", func(in *core.ServiceInput) { in.Title = "  " }, "title must not be empty"},
		{"long title", func(in *core.ServiceInput) { in.Title = strings.Repeat("ж", 101) }, "at most 100"},
		{"negative cost", func(in *core.ServiceInput) { in.Cost = -1 }, "cost"},
		{"zero duration", func(in *core.ServiceInput) { in.DurationSeconds = 0 }, "duration"},
		{"discount over 100", func(in *core.ServiceInput) { in.DiscountPercent = 101 }, "discount"},
		{"negative discount", func(in *core.ServiceInput) { in.DiscountPercent = -5 }, "discount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.edit(&in)
			err := in.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			var verr *core.ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestServiceInput_ValidateListsEveryProblem(t *testing.T) {
	err := core.ServiceInput{Cost: -1, DiscountPercent: 150}.Validate()
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}
	if len(verr.Problems) != 4 {
		t.Errorf("Problems = %q, want 4", verr.Problems)
	}
}

func TestService_ServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := metrics.NewRegistry()
	st := openStore(t)
	svc := newService(t, st, reg)

	created, err := svc.CreateService(ctx, core.ServiceInput{
		Title:           " Педикюр ",
		Cost:            2000,
		DurationSeconds: 3600,
		DiscountPercent: 20,
		ImagePath:       `C:\photos\pedi.jpg`,
	})
	if err != nil {
		t.Fatalf("CreateService() error = %v", err)
	}
	if created.ID == 0 || created.Title != "Педикюр" || created.DiscountFactor != 0.8 {
		t.Errorf("created = %+v", created)
	}
	if created.ImagePath != core.DefaultImageDir+"/pedi.jpg" {
		t.Errorf("ImagePath = %q", created.ImagePath)
	}

	updated, err := svc.UpdateService(ctx, created.ID, core.ServiceInput{Title: "Педикюр SPA", Cost: 2500, DurationSeconds: 4500})
	if err != nil {
		t.Fatalf("UpdateService() error = %v", err)
	}
	if updated.ID != created.ID || updated.DiscountFactor != 1 {
		t.Errorf("updated = %+v", updated)
	}

	catalog, err := svc.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(catalog) != 1 || catalog[0].Title != "Педикюр SPA" || catalog[0].Cost != 2500 {
		t.Errorf("Catalog() = %+v", catalog)
	}

	if err := svc.DeleteService(ctx, created.ID); err != nil {
		t.Fatalf("DeleteService() error = %v", err)
	}
	if n, _ := st.Count(ctx, model.TableService); n != 0 {
		t.Errorf("services left = %d, want 0", n)
	}

	if got := testutil.ToFloat64(reg.Mutations.WithLabelValues("create_service")); got != 1 {
		t.Errorf("create_service metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.Mutations.WithLabelValues("delete_service")); got != 1 {
		t.Errorf("delete_service metric = %v, want 1", got)
	}
}

func TestService_MutationErrors(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, openStore(t), nil)
	if _, err := svc.Ingest(ctx, fullBatch(t)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	catalog, _ := svc.Catalog(ctx)
	if len(catalog) != 3 {
		t.Fatalf("catalog = %d services, want 3", len(catalog))
	}
	booked := catalog[0].ID // Стрижка has a booking

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"create invalid", func() error {
			_, err := svc.CreateService(ctx, core.ServiceInput{Title: "", Cost: 1, DurationSeconds: 60})
			return err
		}, core.ErrInvalidInput},
		{"update missing", func() error {
			_, err := svc.UpdateService(ctx, 9999, core.ServiceInput{Title: "x", Cost: 1, DurationSeconds: 60})
			return err
		}, store.ErrNotFound},
		{"delete missing", func() error { return svc.DeleteService(ctx, 9999) }, store.ErrNotFound},
		{"delete booked", func() error { return svc.DeleteService(ctx, booked) }, core.ErrServiceInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	after, _ := svc.Catalog(ctx)
	if len(after) != 3 {
		t.Errorf("refused delete removed a service: %d left", len(after))
	}
}

func TestService_BookService(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	svc := newService(t, st, nil)
	if _, err := svc.Ingest(ctx, fullBatch(t)); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	clientID, _ := st.LookupByNaturalKey(ctx, model.TableClient, "Петров")
	serviceID, _ := st.LookupByNaturalKey(ctx, model.TableService, "Пилинг")

	booking, err := svc.BookService(ctx, core.BookingInput{
		ClientID:  clientID,
		ServiceID: serviceID,
		StartTime: "20.06.2031 14:30",
		Comment:   "повторно",
	})
	if err != nil {
		t.Fatalf("BookService() error = %v", err)
	}
	if booking.ID == 0 || !booking.Start.Equal(time.Date(2031, 6, 20, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("booking = %+v", booking)
	}

	upcoming, err := svc.Upcoming(ctx, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	if err != nil {
		t.Fatalf("Upcoming() error = %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].ClientName != "Петров Пётр" || upcoming[0].StartTime != "2031-06-20 14:30:00" {
		t.Errorf("Upcoming() = %+v", upcoming)
	}

	tests := []struct {
		name string
		in   core.BookingInput
		want error
	}{
		{"unreadable start", core.BookingInput{ClientID: clientID, ServiceID: serviceID, StartTime: "завтра"}, core.ErrInvalidInput},
		{"no client", core.BookingInput{ServiceID: serviceID, StartTime: "2031-06-20 14:30"}, core.ErrInvalidInput},
		{"unknown client", core.BookingInput{ClientID: 9999, ServiceID: serviceID, StartTime: "2031-06-20 14:30"}, store.ErrNotFound},
		{"unknown service", core.BookingInput{ClientID: clientID, ServiceID: 9999, StartTime: "2031-06-20 14:30"}, store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.BookService(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("BookService() error = %v, want %v", err, tt.want)
			}
		})
	}
}
