package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/JonMunkholm/salon/internal/model"
)

// SortDirection selects price ordering.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts "asc" or "desc" in any case; anything else
// means no sorting.
func ParseSortDirection(s string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc":
		return SortAsc
	case "desc":
		return SortDesc
	default:
		return SortNone
	}
}

// SortByCost orders offerings by cost. The sort is stable in both directions.
// If any cost is not a finite number the input order is returned unchanged.
func SortByCost(entries []model.ServiceOffering, dir SortDirection) []model.ServiceOffering {
	out := clone(entries)
	if dir != SortAsc && dir != SortDesc {
		return out
	}
	for _, e := range out {
		if math.IsNaN(e.Cost) || math.IsInf(e.Cost, 0) {
			return out
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if dir == SortDesc {
			return out[i].Cost > out[j].Cost
		}
		return out[i].Cost < out[j].Cost
	})
	return out
}
