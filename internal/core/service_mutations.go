package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/salon/internal/logging"
	"github.com/JonMunkholm/salon/internal/model"
)

// MaxTitleLength is the longest service title accepted, in characters.
const MaxTitleLength = 100

var (
	// ErrInvalidInput is wrapped by every ValidationError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrServiceInUse is returned when deleting a service that bookings
	// still reference.
	ErrServiceInUse = errors.New("service has bookings")
)

// ValidationError lists every problem found in a submitted record.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// ServiceInput is a service as entered by an administrator. The discount is
// a percentage off, stored as a factor.
type ServiceInput struct {
	Title           string  `json:"title"`
	Cost            float64 `json:"cost"`
	DurationSeconds int     `json:"durationSeconds"`
	DiscountPercent float64 `json:"discountPercent"`
	Description     string  `json:"description,omitempty"`
	ImagePath       string  `json:"imagePath,omitempty"`
}

// Validate returns a *ValidationError naming each bad field, or nil.
func (in ServiceInput) Validate() error {
	var problems []string
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		problems = append(problems, "title must not be empty")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		problems = append(problems, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if in.Cost < 0 || math.IsNaN(in.Cost) || math.IsInf(in.Cost, 0) {
		problems = append(problems, "cost must not be negative")
	}
	if in.DurationSeconds <= 0 {
		problems = append(problems, "duration must be positive")
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 || math.IsNaN(in.DiscountPercent) {
		problems = append(problems, "discount must be between 0 and 100 percent")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (in ServiceInput) offering(imageDir string) model.ServiceOffering {
	image, _ := NormalizeImagePath(in.ImagePath, imageDir)
	return model.ServiceOffering{
		Title:           strings.TrimSpace(in.Title),
		Cost:            in.Cost,
		DiscountFactor:  (100 - in.DiscountPercent) / 100,
		DurationSeconds: in.DurationSeconds,
		Description:     strings.TrimSpace(in.Description),
		ImagePath:       image,
	}
}

// CreateService validates in and stores it as a new service.
func (s *Service) CreateService(ctx context.Context, in ServiceInput) (model.ServiceOffering, error) {
	if err := in.Validate(); err != nil {
		return model.ServiceOffering{}, err
	}

	offering := in.offering(s.opts.ImageDir)
	id, err := s.store.Insert(ctx, model.TableService, offering.Row())
	if err != nil {
		return model.ServiceOffering{}, fmt.Errorf("create service: %w", err)
	}
	offering.ID = id

	logging.FromContext(ctx).Info("service created", "id", id, "title", offering.Title)
	s.metrics.Mutation("create_service")
	return offering, nil
}

// UpdateService replaces every field of service id with in.
func (s *Service) UpdateService(ctx context.Context, id int64, in ServiceInput) (model.ServiceOffering, error) {
	if err := in.Validate(); err != nil {
		return model.ServiceOffering{}, err
	}

	offering := in.offering(s.opts.ImageDir)
	if err := s.store.Update(ctx, model.TableService, id, offering.Row()); err != nil {
		return model.ServiceOffering{}, fmt.Errorf("update service: %w", err)
	}
	offering.ID = id

	logging.FromContext(ctx).Info("service updated", "id", id)
	s.metrics.Mutation("update_service")
	return offering, nil
}

// DeleteService removes service id. A service with bookings is kept and
// ErrServiceInUse returned, since deleting it would cascade to them.
func (s *Service) DeleteService(ctx context.Context, id int64) error {
	if _, err := s.store.Get(ctx, model.TableService, id); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	booked, err := s.bookingsFor(ctx, id)
	if err != nil {
		return err
	}
	if booked > 0 {
		return fmt.Errorf("delete service %d: %w (%d bookings)", id, ErrServiceInUse, booked)
	}

	if err := s.store.Delete(ctx, model.TableService, id); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}

	logging.FromContext(ctx).Info("service deleted", "id", id)
	s.metrics.Mutation("delete_service")
	return nil
}

func (s *Service) bookingsFor(ctx context.Context, serviceID int64) (int, error) {
	rows, err := s.store.FetchAll(ctx, model.TableClientService)
	if err != nil {
		return 0, fmt.Errorf("fetch bookings: %w", err)
	}
	n := 0
	for _, r := range rows {
		if model.BookingFromRow(r).ServiceID == serviceID {
			n++
		}
	}
	return n, nil
}

// BookingInput books one client for one service.
type BookingInput struct {
	ClientID  int64  `json:"clientId"`
	ServiceID int64  `json:"serviceId"`
	StartTime string `json:"startTime"`
	Comment   string `json:"comment,omitempty"`
}

// Validate returns a *ValidationError naming each bad field, or nil.
func (in BookingInput) Validate() error {
	var problems []string
	if in.ClientID <= 0 {
		problems = append(problems, "client is required")
	}
	if in.ServiceID <= 0 {
		problems = append(problems, "service is required")
	}
	if _, ok := ParseStartTime(in.StartTime); !ok {
		problems = append(problems, fmt.Sprintf("start time %q is not a date and time", strings.TrimSpace(in.StartTime)))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// BookService records a booking after checking that its client and service
// exist. Lookups that find nothing wrap store.ErrNotFound.
func (s *Service) BookService(ctx context.Context, in BookingInput) (model.BookingRecord, error) {
	if err := in.Validate(); err != nil {
		return model.BookingRecord{}, err
	}

	if _, err := s.store.Get(ctx, model.TableClient, in.ClientID); err != nil {
		return model.BookingRecord{}, fmt.Errorf("book: client: %w", err)
	}
	if _, err := s.store.Get(ctx, model.TableService, in.ServiceID); err != nil {
		return model.BookingRecord{}, fmt.Errorf("book: service: %w", err)
	}

	start, _ := ParseStartTime(in.StartTime)
	booking := model.BookingRecord{
		ClientID:  in.ClientID,
		ServiceID: in.ServiceID,
		StartTime: strings.TrimSpace(in.StartTime),
		Comment:   strings.TrimSpace(in.Comment),
		Start:     start,
	}
	id, err := s.store.Insert(ctx, model.TableClientService, booking.Row())
	if err != nil {
		return model.BookingRecord{}, fmt.Errorf("book: %w", err)
	}
	booking.ID = id

	logging.FromContext(ctx).Info("booking created",
		"id", id,
		"client_id", in.ClientID,
		"service_id", in.ServiceID,
		"start", booking.Start.Format(model.TimestampLayout),
	)
	s.metrics.Mutation("book")
	return booking, nil
}
