package models

// StockHit is the stock side of a search result. Sale is set only for sold units.
type StockHit struct {
	StockUnit
	Sale *Sale `json:"sale,omitempty"`
}

// SearchResult combines an exact stock match with fuzzy agent matches.
type SearchResult struct {
	StockUnit *StockHit `json:"stockUnit"`
	Agents    []Agent   `json:"agents"`
}

// ImportResult reports the outcome of a bulk import.
type ImportResult[T any] struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
	Items    []T `json:"items"`
}
