package domain

import (
	"math"
	"slices"
)

// NoDataValue is the NWIS sentinel for a missing daily value.
const NoDataValue = -999999

// CleanStats counts the values Clean dropped, by reason.
type CleanStats struct {
	Input      int `json:"input"`
	Kept       int `json:"kept"`
	Missing    int `json:"missing"`
	Negative   int `json:"negative"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
}

// Dropped returns the total number of values removed.
func (c CleanStats) Dropped() int {
	return c.Missing + c.Negative + c.Rejected + c.Duplicates
}

// acceptedQualifiers are the NWIS approval codes kept by Clean. A value with
// no qualifiers is treated as approved.
var acceptedQualifiers = []string{"A", "P", "e"}

// Clean drops missing, negative and rejected values, collapses duplicate
// dates (last occurrence wins) and returns the series sorted by date.
// The input series is not modified.
func Clean(s Series) (Series, CleanStats) {
	stats := CleanStats{Input: len(s.Values)}

	byDate := make(map[string]int, len(s.Values))
	kept := make([]DailyValue, 0, len(s.Values))

	for _, v := range s.Values {
		switch {
		case math.IsNaN(v.Discharge) || math.IsInf(v.Discharge, 0) || v.Discharge == NoDataValue:
			stats.Missing++
			continue
		case v.Discharge < 0:
			stats.Negative++
			continue
		case !qualifiersAccepted(v.Qualifiers):
			stats.Rejected++
			continue
		}

		key := v.Date.Format(DateLayout)
		if idx, ok := byDate[key]; ok {
			kept[idx] = v
			stats.Duplicates++
			continue
		}
		byDate[key] = len(kept)
		kept = append(kept, v)
	}

	out := Series{Site: s.Site, Values: kept}
	out.Sort()
	stats.Kept = len(kept)
	return out, stats
}

func qualifiersAccepted(qualifiers []string) bool {
	if len(qualifiers) == 0 {
		return true
	}
	for _, q := range qualifiers {
		if slices.Contains(acceptedQualifiers, q) {
			return true
		}
	}
	return false
}
