package catalog

import "github.com/JonMunkholm/salon/internal/model"

// AllLabel selects every offering.
const AllLabel = "All"

// DiscountRange is a named percent-off band. A nil bound is open on that
// side; both nil means no filtering.
type DiscountRange struct {
	Label string   `json:"label" mapstructure:"label"`
	Min   *float64 `json:"min,omitempty" mapstructure:"min"`
	Max   *float64 `json:"max,omitempty" mapstructure:"max"`
}

// Unbounded reports whether the range admits every offering.
func (r DiscountRange) Unbounded() bool {
	return r.Min == nil && r.Max == nil
}

// Contains reports whether percent falls in the band. Bands are half-open
// [min, max) except a band whose max is 100, which is closed so that fully
// discounted offerings stay visible.
func (r DiscountRange) Contains(percent float64) bool {
	if r.Min != nil && percent < *r.Min {
		return false
	}
	if r.Max == nil {
		return true
	}
	if *r.Max == 100 {
		return percent <= *r.Max
	}
	return percent < *r.Max
}

// Band builds a bounded DiscountRange.
func Band(label string, min, max float64) DiscountRange {
	return DiscountRange{Label: label, Min: &min, Max: &max}
}

// RangeSet is the ordered list of bands offered to the user.
type RangeSet []DiscountRange

// DefaultRanges mirrors the bands shown by the salon front desk.
var DefaultRanges = RangeSet{
	{Label: AllLabel},
	Band("0% – 5%", 0, 5),
	Band("5% – 15%", 5, 15),
	Band("15% – 30%", 15, 30),
	Band("30% – 70%", 30, 70),
	Band("70% – 100%", 70, 100),
}

// Lookup finds a band by its exact label.
func (rs RangeSet) Lookup(label string) (DiscountRange, bool) {
	for _, r := range rs {
		if r.Label == label {
			return r, true
		}
	}
	return DiscountRange{}, false
}

// Labels returns band labels in display order.
func (rs RangeSet) Labels() []string {
	labels := make([]string, len(rs))
	for i, r := range rs {
		labels[i] = r.Label
	}
	return labels
}

// Filter keeps the offerings whose percent-off falls in the labelled band.
// An unknown label applies no filtering. The input slice is never modified.
func (rs RangeSet) Filter(entries []model.ServiceOffering, label string) []model.ServiceOffering {
	r, ok := rs.Lookup(label)
	if !ok || r.Unbounded() {
		return clone(entries)
	}

	out := make([]model.ServiceOffering, 0, len(entries))
	for _, e := range entries {
		if r.Contains(PercentOff(e.DiscountFactor)) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByRange applies DefaultRanges.
func FilterByRange(entries []model.ServiceOffering, label string) []model.ServiceOffering {
	return DefaultRanges.Filter(entries, label)
}

func clone(entries []model.ServiceOffering) []model.ServiceOffering {
	if entries == nil {
		return nil
	}
	out := make([]model.ServiceOffering, len(entries))
	copy(out, entries)
	return out
}
