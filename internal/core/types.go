package core

import (
	"context"
	"strconv"
	"time"

	"github.com/JonMunkholm/salon/internal/model"
)

// Field is the name of a canonical field produced by the normalizer.
type Field string

// Canonical fields. Source columns are mapped onto these by a Mapping.
const (
	FieldTitle            Field = "title"
	FieldCost             Field = "cost"
	FieldDuration         Field = "duration"
	FieldDiscount         Field = "discount"
	FieldDescription      Field = "description"
	FieldImage            Field = "image"
	FieldLastName         Field = "last_name"
	FieldFirstName        Field = "first_name"
	FieldPatronymic       Field = "patronymic"
	FieldGender           Field = "gender"
	FieldPhone            Field = "phone"
	FieldEmail            Field = "email"
	FieldBirthday         Field = "birthday"
	FieldRegistrationDate Field = "registration_date"
	FieldClient           Field = "client"
	FieldService          Field = "service"
	FieldStartTime        Field = "start_time"
	FieldComment          Field = "comment"
)

// FieldType selects the converter applied to a canonical field.
type FieldType int

const (
	TypeText FieldType = iota
	TypeCost
	TypeDuration
	TypeDiscount
	TypeGender
	TypeImage
	TypeDate
)

// fieldTypes lists every canonical field and how its raw text is parsed.
var fieldTypes = map[Field]FieldType{
	FieldTitle:            TypeText,
	FieldCost:             TypeCost,
	FieldDuration:         TypeDuration,
	FieldDiscount:         TypeDiscount,
	FieldDescription:      TypeText,
	FieldImage:            TypeImage,
	FieldLastName:         TypeText,
	FieldFirstName:        TypeText,
	FieldPatronymic:       TypeText,
	FieldGender:           TypeGender,
	FieldPhone:            TypeText,
	FieldEmail:            TypeText,
	FieldBirthday:         TypeDate,
	FieldRegistrationDate: TypeDate,
	FieldClient:           TypeText,
	FieldService:          TypeText,
	FieldStartTime:        TypeText,
	FieldComment:          TypeText,
}

// KnownField reports whether f is a canonical field.
func KnownField(f Field) bool {
	_, ok := fieldTypes[f]
	return ok
}

// Canonical is one normalized row. Values hold string for text, date,
// gender and image fields, float64 for cost and discount, int for duration.
type Canonical struct {
	Line   int
	Values map[Field]any
}

// Text returns a field as text, formatting numeric values.
func (c Canonical) Text(f Field) string {
	switch v := c.Values[f].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// Float returns a numeric field, or 0 when absent.
func (c Canonical) Float(f Field) float64 {
	switch v := c.Values[f].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Int returns an integer field, or 0 when absent.
func (c Canonical) Int(f Field) int {
	switch v := c.Values[f].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Has reports whether the row carries f at all.
func (c Canonical) Has(f Field) bool {
	_, ok := c.Values[f]
	return ok
}

// FieldIssue records a value that could not be read and was defaulted.
// Line 0 marks a header-level issue such as a mapped column missing from
// the file.
type FieldIssue struct {
	Line      int    `json:"line"`
	Field     Field  `json:"field"`
	Source    string `json:"source"`
	Value     string `json:"value,omitempty"`
	Reason    string `json:"reason"`
	Defaulted any    `json:"defaulted,omitempty"`
}

// RejectReason explains why a booking row was left out of the batch.
type RejectReason string

const (
	RejectMissingClient    RejectReason = "missing client"
	RejectMissingService   RejectReason = "missing service"
	RejectClientNotFound   RejectReason = "client not found"
	RejectServiceNotFound  RejectReason = "service not found"
	RejectClientAmbiguous  RejectReason = "client is ambiguous"
	RejectServiceAmbiguous RejectReason = "service is ambiguous"
)

// LinkReject is a booking row that could not be linked.
type LinkReject struct {
	Line    int          `json:"line"`
	Client  string       `json:"client"`
	Service string       `json:"service"`
	Reason  RejectReason `json:"reason"`
}

// Stage orders table loads. Lower stages load first.
type Stage int

const (
	// StageEntities tables have no references.
	StageEntities Stage = iota
	// StageLinks tables resolve references to StageEntities tables.
	StageLinks
)

// TableInfo contains display information about a table.
type TableInfo struct {
	Key   string `json:"key"`   // Store table name: "service"
	Label string `json:"label"` // Display name: "Services"
	Param string `json:"param"` // Upload field and CLI flag: "services"
	Stage Stage  `json:"stage"`
}

// Built is what a table's BuildFunc hands to the store.
type Built struct {
	Rows    []model.Row
	Rejects []LinkReject
	Issues  []FieldIssue
}

// BuildFunc turns normalized rows into store rows. Link-stage tables use
// lookup to resolve references; other tables ignore it. An error means a
// collaborator failed and the table is not written.
type BuildFunc func(ctx context.Context, rows []Canonical, lookup Lookup) (Built, error)

// TableDefinition contains everything needed to ingest a table.
type TableDefinition struct {
	Info           TableInfo
	DefaultMapping Mapping
	Build          BuildFunc
}

// TableReport is the outcome of loading one table.
type TableReport struct {
	Table     string       `json:"table"`
	Source    string       `json:"source,omitempty"`
	Read      int          `json:"read"`
	Written   int          `json:"written"`
	Defaulted int          `json:"defaulted"`
	Skipped   int          `json:"skipped"`
	Rejected  int          `json:"rejected"`
	Cascaded  int          `json:"cascaded,omitempty"` // bookings removed with the rows this table replaced
	Issues    []FieldIssue `json:"issues,omitempty"`
	Rejects   []LinkReject `json:"rejects,omitempty"`
	Err       error        `json:"-"`
	Error     *UserMessage `json:"error,omitempty"`
}

// Failed reports whether the table was not written.
func (r TableReport) Failed() bool {
	return r.Err != nil
}

// Report is the outcome of one ingestion run.
type Report struct {
	RunID    string        `json:"runId"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"durationNs"`
	Tables   []TableReport `json:"tables"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Failed reports whether any table failed.
func (r Report) Failed() bool {
	for _, t := range r.Tables {
		if t.Failed() {
			return true
		}
	}
	return false
}

// Table returns the report for key, if the run touched it.
func (r Report) Table(key string) (TableReport, bool) {
	for _, t := range r.Tables {
		if t.Table == key {
			return t, true
		}
	}
	return TableReport{}, false
}
