package catalog

import "github.com/JonMunkholm/salon/internal/model"

// Query is the user's current view selection.
type Query struct {
	Range  string        `json:"range"`
	Search string        `json:"search"`
	Sort   SortDirection `json:"sort"`
}

// Result is the ordered subset to display, with the counts behind the
// "shown of total" label.
type Result struct {
	Entries []model.ServiceOffering `json:"entries"`
	Shown   int                     `json:"shown"`
	Total   int                     `json:"total"`
}

// Pipeline applies range filter, search and cost sort in that order.
type Pipeline struct {
	Ranges RangeSet
}

// NewPipeline returns a pipeline over the given bands, falling back to
// DefaultRanges when none are configured.
func NewPipeline(ranges RangeSet) Pipeline {
	if len(ranges) == 0 {
		ranges = DefaultRanges
	}
	return Pipeline{Ranges: ranges}
}

// Run evaluates q over entries. It never modifies entries and is
// deterministic for identical inputs.
func (p Pipeline) Run(entries []model.ServiceOffering, q Query) Result {
	ranges := p.Ranges
	if len(ranges) == 0 {
		ranges = DefaultRanges
	}

	out := ranges.Filter(entries, q.Range)
	out = Search(out, q.Search)
	if q.Sort == SortAsc || q.Sort == SortDesc {
		out = SortByCost(out, q.Sort)
	}

	return Result{Entries: out, Shown: len(out), Total: len(entries)}
}

// QueryPipeline runs the default pipeline and returns only the entries.
func QueryPipeline(entries []model.ServiceOffering, rangeLabel, searchText string, dir SortDirection) []model.ServiceOffering {
	return NewPipeline(nil).Run(entries, Query{Range: rangeLabel, Search: searchText, Sort: dir}).Entries
}
