package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"folio/api/internal/config"
	"folio/api/internal/ordering"
	"folio/api/internal/pagetree"
	"folio/api/internal/store"
	"folio/api/internal/util"
)

// Actor identifies the user a mutation is performed for.
type Actor struct {
	UserID string
}

// pageIndexer receives page title changes for search. Calls are
// fire-and-forget; failures are logged and never fail the mutation.
type pageIndexer interface {
	IndexPages(ctx context.Context, pages []store.Page) error
	RemovePages(ctx context.Context, pageIDs []string) error
}

// assetRemover deletes objects referenced by blocks that are being removed.
type assetRemover interface {
	RemoveBlockAssets(ctx context.Context, blocks []store.Block) error
}

type Service struct {
	cfg    config.Config
	store  store.Store
	search pageIndexer
	assets assetRemover
	log    zerolog.Logger
	now    func() time.Time
	newID  func(prefix string) string
}

type Option func(*Service)

func WithSearch(indexer pageIndexer) Option {
	return func(s *Service) { s.search = indexer }
}

func WithAssets(remover assetRemover) Option {
	return func(s *Service) { s.assets = remover }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func New(cfg config.Config, dataStore store.Store, opts ...Option) *Service {
	if cfg.DeleteChunkSize <= 0 || cfg.DeleteChunkSize > store.MaxBatchWrites {
		cfg.DeleteChunkSize = 450
	}
	s := &Service{
		cfg:   cfg,
		store: dataStore,
		log:   zerolog.Nop(),
		now:   time.Now,
		newID: util.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() store.Store {
	return s.store
}

func (s *Service) Ready(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return storeError("ping store", err)
	}
	return nil
}

func requireActor(actor Actor) error {
	if strings.TrimSpace(actor.UserID) == "" {
		return domainError(ErrNotAuthenticated, "an authenticated user is required", nil)
	}
	return nil
}

func (s *Service) nowMs() int64 {
	return s.now().UnixMilli()
}

// loadPages returns every page of the workspace, trash included.
func (s *Service) loadPages(ctx context.Context, workspaceID string) ([]store.Page, error) {
	records, err := s.store.Get(ctx, store.Query{Collection: store.PagesCollection(workspaceID)})
	if err != nil {
		return nil, storeError("load pages", err)
	}
	return store.PagesFromRecords(records), nil
}

func (s *Service) getPage(ctx context.Context, workspaceID, pageID string) (store.Page, error) {
	record, err := s.store.GetDoc(ctx, store.PagePath(workspaceID, pageID))
	if err != nil {
		return store.Page{}, storeError("get page", err)
	}
	return store.PageFromRecord(record), nil
}

func (s *Service) getWorkspace(ctx context.Context, workspaceID string) (store.Workspace, error) {
	record, err := s.store.GetDoc(ctx, store.WorkspacePath(workspaceID))
	if err != nil {
		return store.Workspace{}, storeError("get workspace", err)
	}
	return store.WorkspaceFromRecord(record), nil
}

func (s *Service) commit(ctx context.Context, action string, b *store.Batch) error {
	if err := s.store.Commit(ctx, b); err != nil {
		return storeError(action, err)
	}
	return nil
}

// GetTree fetches the workspace once and builds the tree of live pages.
func (s *Service) GetTree(ctx context.Context, workspaceID string) (pagetree.Tree, error) {
	pages, err := s.loadPages(ctx, workspaceID)
	if err != nil {
		return pagetree.Tree{}, err
	}
	return pagetree.Build(pagetree.Live(pages)), nil
}

// MoveTargets lists the pages pageID may be moved under.
func (s *Service) MoveTargets(ctx context.Context, workspaceID, pageID string) ([]pagetree.Target, error) {
	tree, err := s.GetTree(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return pagetree.MoveTargets(tree, pageID), nil
}

func (s *Service) indexAsync(pages ...store.Page) {
	if s.search == nil || len(pages) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.search.IndexPages(ctx, pages); err != nil {
			s.log.Warn().Err(err).Int("pages", len(pages)).Msg("search index update failed")
		}
	}()
}

func (s *Service) unindexAsync(pageIDs ...string) {
	if s.search == nil || len(pageIDs) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.search.RemovePages(ctx, pageIDs); err != nil {
			s.log.Warn().Err(err).Int("pages", len(pageIDs)).Msg("search index removal failed")
		}
	}()
}

// normalizeTitle substitutes fallback for a blank title; any other title is
// stored exactly as given.
func normalizeTitle(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

func maxOrder(pages []store.Page) (int64, bool) {
	if len(pages) == 0 {
		return 0, false
	}
	m := pages[0].Order
	for _, p := range pages[1:] {
		if p.Order > m {
			m = p.Order
		}
	}
	return m, true
}

func appendOrder(siblings []store.Page) int64 {
	if last, ok := maxOrder(siblings); ok {
		return ordering.Compute(&last, nil)
	}
	return ordering.Compute(nil, nil)
}
