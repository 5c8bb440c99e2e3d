package catalog

import (
	"strings"

	"github.com/JonMunkholm/salon/internal/model"
)

// Search keeps offerings whose title or description contains the query,
// ignoring case. A blank query returns every offering. Order is preserved.
func Search(entries []model.ServiceOffering, query string) []model.ServiceOffering {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return clone(entries)
	}

	out := make([]model.ServiceOffering, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(e.Description), q) {
			out = append(out, e)
		}
	}
	return out
}
