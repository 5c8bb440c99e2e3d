package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/JonMunkholm/salon/internal/catalog"
	"github.com/JonMunkholm/salon/internal/model"
)

// Catalog loads every service offering from the store.
func (s *Service) Catalog(ctx context.Context) ([]model.ServiceOffering, error) {
	rows, err := s.store.FetchAll(ctx, model.TableService)
	if err != nil {
		return nil, fmt.Errorf("fetch services: %w", err)
	}
	out := make([]model.ServiceOffering, len(rows))
	for i, r := range rows {
		out[i] = model.ServiceFromRow(r)
	}
	return out, nil
}

// Query runs the catalog pipeline over the stored services.
func (s *Service) Query(ctx context.Context, q catalog.Query) (catalog.Result, error) {
	entries, err := s.Catalog(ctx)
	if err != nil {
		return catalog.Result{}, err
	}
	s.metrics.Query()
	return s.pipeline.Run(entries, q), nil
}

// UpcomingBooking is a booking joined with its client and service, as shown
// on the front desk's "coming up" list.
type UpcomingBooking struct {
	StartTime    string `json:"startTime"`
	Comment      string `json:"comment,omitempty"`
	ServiceTitle string `json:"serviceTitle"`
	ClientName   string `json:"clientName"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`

	at time.Time
}

// Upcoming returns bookings starting at or after now, earliest first.
// Start times carry no zone, so now is compared by its wall clock.
// A limit of zero or less returns every upcoming booking.
func (s *Service) Upcoming(ctx context.Context, now time.Time, limit int) ([]UpcomingBooking, error) {
	bookingRows, err := s.store.FetchAll(ctx, model.TableClientService)
	if err != nil {
		return nil, fmt.Errorf("fetch bookings: %w", err)
	}
	if len(bookingRows) == 0 {
		return []UpcomingBooking{}, nil
	}

	clientRows, err := s.store.FetchAll(ctx, model.TableClient)
	if err != nil {
		return nil, fmt.Errorf("fetch clients: %w", err)
	}
	serviceRows, err := s.store.FetchAll(ctx, model.TableService)
	if err != nil {
		return nil, fmt.Errorf("fetch services: %w", err)
	}

	clients := make(map[int64]model.ClientRecord, len(clientRows))
	for _, r := range clientRows {
		c := model.ClientFromRow(r)
		clients[c.ID] = c
	}
	services := make(map[int64]model.ServiceOffering, len(serviceRows))
	for _, r := range serviceRows {
		sv := model.ServiceFromRow(r)
		services[sv.ID] = sv
	}

	wall := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.UTC)

	out := make([]UpcomingBooking, 0, len(bookingRows))
	for _, r := range bookingRows {
		b := model.BookingFromRow(r)
		at := b.Start
		if at.IsZero() || at.Before(wall) {
			continue
		}
		c, okC := clients[b.ClientID]
		sv, okS := services[b.ServiceID]
		if !okC || !okS {
			continue
		}
		out = append(out, UpcomingBooking{
			StartTime:    at.Format(model.TimestampLayout),
			Comment:      b.Comment,
			ServiceTitle: sv.Title,
			ClientName:   c.FullName(),
			Email:        c.Email,
			Phone:        c.Phone,
			at:           at,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
