package core

import (
	"errors"
	"sort"
)

// ErrUnrecognisedLayout is returned when a file's header fits no table.
var ErrUnrecognisedLayout = errors.New("file layout matches no table")

// DetectThreshold is the share of a table's mapped headers a file must
// carry to be recognised as that table.
const DetectThreshold = 0.5

// TableMatch scores how well a file header fits a table's mapping.
type TableMatch struct {
	Info  TableInfo `json:"info"`
	Score float64   `json:"score"`
}

// MatchTables ranks every table against header, best first, keeping only
// those at or above DetectThreshold.
func (s *Service) MatchTables(header []string) []TableMatch {
	var matches []TableMatch
	for _, def := range All() {
		score := matchHeaders(header, s.mappings[def.Info.Key])
		if score >= DetectThreshold {
			matches = append(matches, TableMatch{Info: def.Info, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// DetectTable returns the table whose mapping best fits header.
func (s *Service) DetectTable(header []string) (TableInfo, bool) {
	matches := s.MatchTables(header)
	if len(matches) == 0 {
		return TableInfo{}, false
	}
	return matches[0].Info, true
}

// matchHeaders returns the fraction of mapping sources present in header.
func matchHeaders(header []string, mapping Mapping) float64 {
	if len(mapping) == 0 {
		return 0
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[headerKey(h)] = true
	}

	matched := 0
	for _, cm := range mapping {
		if present[headerKey(cm.Source)] {
			matched++
		}
	}
	return float64(matched) / float64(len(mapping))
}
