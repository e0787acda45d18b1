package models

// SearchResult is a single visual-search hit: a snapshot of the matched item
// plus its similarity score and rank. The snapshot stays valid even if the
// source item is deleted after the search returns.
type SearchResult struct {
	ItemID    string  `json:"item_id"`
	Category  string  `json:"category"`
	Color     string  `json:"color"`
	Style     string  `json:"style"`
	Material  string  `json:"material,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
	IsMitumba bool    `json:"is_mitumba"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// SearchResponse is the response for a visual similarity search.
type SearchResponse struct {
	Results []*SearchResult `json:"results"`
	Total   int             `json:"total"`
	// AdvisoryHint is set when the wardrobe produced fewer close matches than
	// expected. It is a UX signal, not an error.
	AdvisoryHint string `json:"advisory_hint,omitempty"`
	QueryTime    int64  `json:"query_time_ms"`
}
