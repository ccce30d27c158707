package pkg

// SearchResult is one matched vertex as returned by the search endpoints
type SearchResult struct {
	Name         string  `json:"name"`
	Size         int64   `json:"size"`
	Parent       string  `json:"parent"`
	LastAccessed float64 `json:"last_accessed"`
	LastModified float64 `json:"last_modified"`
}

// ErrorResponse is the body of every failed HTTP request
type ErrorResponse struct {
	Error string `json:"error"`
}
