package models

import "time"

// SearchQuery carries the filter surface of a search request. Values
// within one category are OR'd, categories are AND'd with each other
// and with the free-text term and date range.
type SearchQuery struct {
	Categories map[string][]string
	Text       string
	From       *time.Time
	To         *time.Time
}

// IsEmpty reports whether the query has no predicates at all
func (q SearchQuery) IsEmpty() bool {
	return len(q.Categories) == 0 && q.Text == "" && q.From == nil && q.To == nil
}

// VaultStats summarizes the record store for the stats endpoint
type VaultStats struct {
	Records       int64             `json:"records"`
	Versions      int64             `json:"versions"`
	SearchEntries int64             `json:"search_entries"`
	Cursors       map[string]string `json:"cursors"`
}
