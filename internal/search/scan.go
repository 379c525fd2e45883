package search

import (
	"context"
	"html"
	"sort"
	"strings"

	"folio/api/internal/pagetree"
	"folio/api/internal/store"
)

// StoreScan answers title searches by reading a workspace's pages from the
// document store and matching titles case-insensitively.
type StoreScan struct {
	store store.Store
}

func NewStoreScan(st store.Store) *StoreScan {
	return &StoreScan{store: st}
}

func (s *StoreScan) Search(ctx context.Context, q Query) ([]Result, int, error) {
	records, err := s.store.Get(ctx, store.Query{Collection: store.PagesCollection(q.WorkspaceID)})
	if err != nil {
		return nil, 0, err
	}
	pages := pagetree.Live(store.PagesFromRecords(records))
	needle := strings.ToLower(strings.TrimSpace(q.Text))

	var matches []store.Page
	for _, p := range pages {
		if needle == "" || strings.Contains(strings.ToLower(p.Title), needle) {
			matches = append(matches, p)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := strings.ToLower(matches[i].Title), strings.ToLower(matches[j].Title)
		if a != b {
			return a < b
		}
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)
	start := min(max(q.Offset, 0), total)
	end := min(start+q.limit(), total)
	results := make([]Result, 0, end-start)
	for _, p := range matches[start:end] {
		results = append(results, Result{
			PageID:      p.ID,
			WorkspaceID: p.WorkspaceID,
			ParentID:    p.ParentID,
			Title:       p.Title,
			Highlighted: highlight(p.Title, needle),
		})
	}
	return results, total, nil
}

// highlight wraps the first case-insensitive occurrence of needle in <mark>.
func highlight(title, needle string) string {
	if needle == "" {
		return html.EscapeString(title)
	}
	i := strings.Index(strings.ToLower(title), needle)
	if i < 0 || len(strings.ToLower(title)) != len(title) {
		return html.EscapeString(title)
	}
	end := i + len(needle)
	return html.EscapeString(title[:i]) + "<mark>" + html.EscapeString(title[i:end]) + "</mark>" + html.EscapeString(title[end:])
}
