package search

import (
	"context"

	"github.com/rs/zerolog"

	"folio/api/internal/store"
)

// Service is the facade that tries Meilisearch first and falls back to
// scanning the store.
type Service struct {
	meili *Meili
	scan  *StoreScan
	log   zerolog.Logger
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, scan *StoreScan, log zerolog.Logger) *Service {
	return &Service{meili: meili, scan: scan, log: log}
}

// Search tries Meilisearch if healthy, otherwise falls back to a store scan.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn().Err(err).Msg("meilisearch error, falling back to store scan")
	}

	results, total, err := s.scan.Search(ctx, q)
	if err != nil {
		s.log.Error().Err(err).Str("workspace", q.WorkspaceID).Msg("store scan search failed")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPages pushes page titles to Meilisearch. A missing or unhealthy
// Meilisearch is not an error; the store scan covers searches meanwhile.
func (s *Service) IndexPages(_ context.Context, pages []store.Page) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	records := make([]PageRecord, 0, len(pages))
	for _, p := range pages {
		records = append(records, PageRecord{
			ID:          p.ID,
			WorkspaceID: p.WorkspaceID,
			ParentID:    p.ParentID,
			Title:       p.Title,
			IsDeleted:   p.IsDeleted,
		})
	}
	return s.meili.IndexPages(records)
}

// RemovePages drops pages from the Meilisearch index.
func (s *Service) RemovePages(_ context.Context, pageIDs []string) error {
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	for _, id := range pageIDs {
		if err := s.meili.DeletePage(id); err != nil {
			return err
		}
	}
	return nil
}

// ReindexWorkspace pushes every page of a workspace to Meilisearch.
func (s *Service) ReindexWorkspace(ctx context.Context, st store.Store, workspaceID string) (int, error) {
	if s.meili == nil || !s.meili.Healthy() {
		return 0, nil
	}
	records, err := st.Get(ctx, store.Query{Collection: store.PagesCollection(workspaceID)})
	if err != nil {
		return 0, err
	}
	pages := store.PagesFromRecords(records)
	return len(pages), s.IndexPages(ctx, pages)
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
