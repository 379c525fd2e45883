// Package search finds pages by title. Meilisearch serves queries when it is
// reachable; otherwise the workspace's pages are scanned from the store.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	PageID      string  `json:"pageId"`
	WorkspaceID string  `json:"workspaceId"`
	ParentID    *string `json:"parentId"`
	Title       string  `json:"title"`
	// Highlighted is the title with matches wrapped in <mark> tags.
	Highlighted string `json:"highlighted"`
}

// Query describes a search request.
type Query struct {
	WorkspaceID string
	Text        string
	Limit       int
	Offset      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// PageRecord is the data we index for a page.
type PageRecord struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspaceId"`
	ParentID    *string `json:"parentId"`
	Title       string  `json:"title"`
	IsDeleted   bool    `json:"isDeleted"`
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return 20
	}
	return q.Limit
}
