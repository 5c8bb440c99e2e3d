// Package model defines the canonical salon entities shared by the catalog
// query pipeline and the ingestion pipeline, plus their store row codecs.
package model

import (
	"math"
	"strings"
	"time"
)

// Store table names.
const (
	TableService       = "service"
	TableClient        = "client"
	TableClientService = "client_service"
)

// Gender codes stored on ClientRecord.
const (
	GenderMale        = "м"
	GenderFemale      = "ж"
	GenderUnspecified = "н"
)

// Row is a single store row keyed by column name.
type Row map[string]any

// ServiceOffering is a catalog entry.
type ServiceOffering struct {
	ID              int64   `json:"id"`
	Title           string  `json:"title"`
	Cost            float64 `json:"cost"`
	DiscountFactor  float64 `json:"discountFactor"`
	DurationSeconds int     `json:"durationSeconds"`
	Description     string  `json:"description,omitempty"`
	ImagePath       string  `json:"imagePath,omitempty"`
}

// DurationMinutes returns the duration truncated to whole minutes.
func (s ServiceOffering) DurationMinutes() int {
	return s.DurationSeconds / 60
}

// DiscountedCost returns the price after the discount factor is applied.
func (s ServiceOffering) DiscountedCost() float64 {
	return math.Round(s.Cost*s.DiscountFactor*100) / 100
}

// Row converts the offering into a service table row. The ID is omitted so
// the store assigns it.
func (s ServiceOffering) Row() Row {
	return Row{
		"title":            s.Title,
		"cost":             s.Cost,
		"discount":         s.DiscountFactor,
		"duration_seconds": s.DurationSeconds,
		"description":      nullable(s.Description),
		"main_image_path":  nullable(s.ImagePath),
	}
}

// ServiceFromRow decodes a service table row. A cost the driver returned in
// an unreadable form decodes as NaN so callers can detect it; a missing or
// unreadable discount decodes as 1 (no discount).
func ServiceFromRow(r Row) ServiceOffering {
	s := ServiceOffering{
		ID:             Int64(r["id"]),
		Title:          String(r["title"]),
		Description:    String(r["description"]),
		ImagePath:      String(r["main_image_path"]),
		DiscountFactor: 1,
		Cost:           math.NaN(),
	}
	if c, ok := Float(r["cost"]); ok {
		s.Cost = c
	}
	if f, ok := Float(r["discount"]); ok {
		s.DiscountFactor = f
	}
	s.DurationSeconds = int(Int64(r["duration_seconds"]))
	return s
}

// ClientRecord is a salon client.
type ClientRecord struct {
	ID               int64  `json:"id"`
	LastName         string `json:"lastName"`
	FirstName        string `json:"firstName"`
	Patronymic       string `json:"patronymic,omitempty"`
	GenderCode       string `json:"genderCode"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	Birthday         string `json:"birthday,omitempty"`
	RegistrationDate string `json:"registrationDate,omitempty"`
}

// NaturalKey is the value used to resolve a client from a booking row.
func (c ClientRecord) NaturalKey() string {
	return strings.TrimSpace(c.LastName)
}

// FullName formats the client as "Last First Patronymic".
func (c ClientRecord) FullName() string {
	parts := []string{c.LastName, c.FirstName}
	if c.Patronymic != "" {
		parts = append(parts, c.Patronymic)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Row converts the client into a client table row.
func (c ClientRecord) Row() Row {
	return Row{
		"last_name":         c.LastName,
		"first_name":        c.FirstName,
		"patronymic":        nullable(c.Patronymic),
		"gender_code":       c.GenderCode,
		"phone":             c.Phone,
		"email":             c.Email,
		"birthday":          nullable(c.Birthday),
		"registration_date": nullable(c.RegistrationDate),
	}
}

// ClientFromRow decodes a client table row.
func ClientFromRow(r Row) ClientRecord {
	return ClientRecord{
		ID:               Int64(r["id"]),
		LastName:         String(r["last_name"]),
		FirstName:        String(r["first_name"]),
		Patronymic:       String(r["patronymic"]),
		GenderCode:       String(r["gender_code"]),
		Phone:            String(r["phone"]),
		Email:            String(r["email"]),
		Birthday:         String(r["birthday"]),
		RegistrationDate: String(r["registration_date"]),
	}
}

// BookingRecord links a client to a service at a start time.
type BookingRecord struct {
	ID        int64  `json:"id,omitempty"`
	ClientID  int64  `json:"clientId"`
	ServiceID int64  `json:"serviceId"`
	StartTime string `json:"startTime"` // as written in the source
	Comment   string `json:"comment,omitempty"`

	// Start is StartTime parsed, zero when it could not be read. The store
	// keeps it in ISO form so the server's date style never reinterprets it.
	Start time.Time `json:"-"`
}

// Row converts the booking into a client_service table row.
func (b BookingRecord) Row() Row {
	var start any
	if !b.Start.IsZero() {
		start = b.Start.Format(TimestampLayout)
	}
	return Row{
		"client_id":  b.ClientID,
		"service_id": b.ServiceID,
		"start_time": start,
		"start_text": b.StartTime,
		"comment":    nullable(b.Comment),
	}
}

// BookingFromRow decodes a client_service table row.
func BookingFromRow(r Row) BookingRecord {
	b := BookingRecord{
		ID:        Int64(r["id"]),
		ClientID:  Int64(r["client_id"]),
		ServiceID: Int64(r["service_id"]),
		StartTime: String(r["start_text"]),
		Comment:   String(r["comment"]),
	}
	if t, ok := Time(r["start_time"]); ok {
		b.Start = t
		if b.StartTime == "" {
			b.StartTime = t.Format(TimestampLayout)
		}
	}
	return b
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
