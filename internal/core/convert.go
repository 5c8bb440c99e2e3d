package core

// convert.go turns raw spreadsheet cells into canonical values.
//
// These functions handle the messy reality of salon exports:
//   - Units written in Russian or English ("45 мин.", "1 час 30 мин", "90 min")
//   - Currency symbols, spaces and either comma or dot as decimal separator
//   - Discounts written as "25%", "25", "нет" or left empty
//   - Gender as words in either language or already as a one-letter code
//   - Excel formula prefixes (="value") and surrounding quotes
//
// Every converter returns the value to store and whether the input was
// understood. When it was not, the value is the field's default.

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/salon/internal/model"
)

// DefaultImageDir is where service photos are copied by the front desk.
const DefaultImageDir = "assets/service_photo"

// DateLayout is the canonical form of birthday and registration dates.
const DateLayout = "2006-01-02"

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"02.01.06", "2.1.06", "1/2/06", "01/02/06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "02.01.2006", "2.1.2006", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", "02.01.2006 15:04:05",
		"2 Jan 2006", "Jan 2, 2006",
		"20060102",
	}
	startTimeLayouts = []string{
		model.TimestampLayout, "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02T15:04",
		time.RFC3339,
		"02.01.2006 15:04:05", "02.01.2006 15:04", "2.1.2006 15:04",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
		"2006-01-02", // midnight, as the store renders it
	}
)

// quantityRegex matches a number and the unit word that follows it.
var quantityRegex = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([^\d\s.,]*)`)

// digitGroupRegex matches a space or NBSP between a digit and a following
// group of exactly three digits, as in "1 200".
var digitGroupRegex = regexp.MustCompile(`(\d)[ \x{00a0}]+(\d{3})\b`)

// numberRegex matches the first decimal number in a string.
var numberRegex = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// NormalizeDuration converts a duration cell to seconds.
//
// Minute markers multiply by 60, hour markers by 3600, second markers and
// bare numbers are taken as seconds. Several quantities are summed, so
// "1 час 30 мин" is 5400. Anything without a number is 0, not ok.
func NormalizeDuration(s string) (int, bool) {
	s = joinDigitGroups(strings.ToLower(CleanCell(s)))
	matches := quantityRegex.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, false
	}

	var total float64
	for _, m := range matches {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			return 0, false
		}
		mult, ok := unitSeconds(m[2])
		if !ok {
			return 0, false
		}
		total += n * mult
	}
	return int(total + 0.5), true
}

// joinDigitGroups removes thousands separators so "1 200 сек." reads as
// one quantity.
func joinDigitGroups(s string) string {
	for {
		joined := digitGroupRegex.ReplaceAllString(s, "$1$2")
		if joined == s {
			return s
		}
		s = joined
	}
}

func unitSeconds(unit string) (float64, bool) {
	switch {
	case unit == "":
		return 1, true
	case strings.HasPrefix(unit, "мин"), strings.HasPrefix(unit, "min"), unit == "м", unit == "m":
		return 60, true
	case strings.HasPrefix(unit, "сек"), strings.HasPrefix(unit, "sec"), unit == "с", unit == "s":
		return 1, true
	case strings.HasPrefix(unit, "час"), strings.HasPrefix(unit, "hour"), strings.HasPrefix(unit, "hr"),
		unit == "ч", unit == "h":
		return 3600, true
	default:
		return 0, false
	}
}

// NormalizeCost keeps only digits and decimal separators and parses the
// result. When both comma and dot appear, the later one is the decimal
// separator and the other groups thousands. Unreadable or empty input is 0,
// not ok.
func NormalizeCost(s string) (float64, bool) {
	var b strings.Builder
	for _, r := range CleanCell(s) {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0, false
	}

	comma := strings.LastIndex(digits, ",")
	dot := strings.LastIndex(digits, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			digits = strings.ReplaceAll(digits, ".", "")
			digits = strings.Replace(digits, ",", ".", 1)
		} else {
			digits = strings.ReplaceAll(digits, ",", "")
		}
	case comma >= 0:
		if strings.Count(digits, ",") > 1 {
			digits = strings.ReplaceAll(digits, ",", "")
		} else {
			digits = strings.Replace(digits, ",", ".", 1)
		}
	case strings.Count(digits, ".") > 1:
		digits = strings.ReplaceAll(digits, ".", "")
	}

	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// noDiscount lists the cells that mean the offering is sold at full price.
var noDiscount = map[string]bool{
	"": true, "0": true, "0%": true, "-": true, "—": true,
	"нет": true, "без скидки": true, "none": true, "no": true, "n/a": true,
}

// NormalizeDiscount converts a percent-off cell to a discount factor.
// "25%" and "25" both give 0.75; empty, zero and "нет" give 1. Percentages
// are clamped to [0, 100]. Unreadable input is 1, not ok.
func NormalizeDiscount(s string) (float64, bool) {
	s = strings.ToLower(CleanCell(s))
	if noDiscount[s] {
		return 1, true
	}

	m := numberRegex.FindString(s)
	if m == "" {
		return 1, false
	}
	d, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return 1, false
	}

	ok := true
	if d > 100 {
		d, ok = 100, false
	}
	return (100 - d) / 100, ok
}

var (
	femaleRoots = []string{"жен", "fem", "wom", "girl"}
	maleRoots   = []string{"муж", "male", "man", "boy"}
)

// NormalizeGender maps a gender cell to model.GenderFemale,
// model.GenderMale or model.GenderUnspecified. Female roots are checked
// first because "female" contains "male". A single character is taken as
// an existing code and returned unchanged.
func NormalizeGender(s string) (string, bool) {
	s = CleanCell(s)
	if s == "" {
		return model.GenderUnspecified, true
	}
	if len([]rune(s)) == 1 {
		return s, true
	}

	lower := strings.ToLower(s)
	for _, root := range femaleRoots {
		if strings.Contains(lower, root) {
			return model.GenderFemale, true
		}
	}
	for _, root := range maleRoots {
		if strings.Contains(lower, root) {
			return model.GenderMale, true
		}
	}
	return model.GenderUnspecified, false
}

// NormalizeImagePath drops whatever directory the export used, Windows or
// Unix, and places the file name under dir.
func NormalizeImagePath(s, dir string) (string, bool) {
	s = CleanCell(s)
	if s == "" {
		return "", true
	}
	if dir == "" {
		dir = DefaultImageDir
	}

	name := path.Base(strings.ReplaceAll(s, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "", false
	}
	return path.Join(strings.ReplaceAll(dir, `\`, "/"), name), true
}

// NormalizeDate converts a date cell to DateLayout. Empty input is valid and
// stays empty.
func NormalizeDate(s string) (string, bool) {
	s = CleanCell(s)
	if s == "" {
		return "", true
	}
	t, ok := parseDate(s)
	if !ok {
		return "", false
	}
	return t.Format(DateLayout), true
}

// parseDate tries 4-digit year layouts first (unambiguous), then 2-digit
// year layouts with pivot year adjustment.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseStartTime reports whether a booking start time is a readable
// timestamp. The booking keeps the original text either way.
func ParseStartTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeText cleans a free-text cell.
func NormalizeText(s string) string {
	return CleanCell(s)
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace, including non-breaking spaces
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
