package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TimestampLayout is the text form used for start times and timestamps read
// back from the store.
const TimestampLayout = "2006-01-02 15:04:05"

type float64Valuer interface {
	Float64Value() (pgtype.Float8, error)
}

// Float reads a numeric value from whatever a driver or row source produced.
// Strings accept either a dot or a comma as the decimal separator.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		return parseFloat(x)
	case []byte:
		return parseFloat(string(x))
	case float64Valuer:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, true
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Int64 reads an integer column, returning 0 when absent or unreadable.
func Int64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case int16:
		return int64(x)
	default:
		f, ok := Float(v)
		if !ok {
			return 0
		}
		return int64(f)
	}
}

// String reads a text column. NULL decodes as the empty string and
// timestamps are rendered with TimestampLayout.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(TimestampLayout)
	case pgtype.Date:
		if !x.Valid {
			return ""
		}
		return x.Time.Format("2006-01-02")
	case pgtype.Timestamp:
		if !x.Valid {
			return ""
		}
		return x.Time.Format(TimestampLayout)
	case pgtype.Text:
		return x.String
	default:
		return fmt.Sprint(x)
	}
}

// timeLayouts are the text forms Time accepts, as written by the store.
var timeLayouts = []string{TimestampLayout, "2006-01-02 15:04", "2006-01-02T15:04:05Z07:00", "2006-01-02"}

// Time reads a timestamp column. NULL and unreadable text are not ok.
func Time(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, !x.IsZero()
	case pgtype.Timestamp:
		return x.Time, x.Valid
	case string, []byte:
		s := strings.TrimSpace(String(x))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
