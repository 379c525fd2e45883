// Package live keeps render-ready views of a workspace up to date from store
// subscriptions.
package live

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"folio/api/internal/pagetree"
	"folio/api/internal/store"
)

// Unsubscribe detaches a projection. No update callback starts after it
// returns; one already running is waited for, so it must not be called from
// inside the callback (cancel the context given to Subscribe instead).
type Unsubscribe func()

type Projector struct {
	store store.Store
	log   zerolog.Logger
}

func NewProjector(st store.Store, log zerolog.Logger) *Projector {
	return &Projector{store: st, log: log}
}

// Subscribe streams the live page tree of a workspace. Every snapshot drops
// soft-deleted pages and rebuilds the tree from scratch. When the store cannot
// serve the live query, the tree is fetched once and delivered before
// Subscribe returns.
func (p *Projector) Subscribe(ctx context.Context, workspaceID string, onUpdate func(pagetree.Tree)) (Unsubscribe, error) {
	q := store.Query{Collection: store.PagesCollection(workspaceID)}
	return project(ctx, p, q, func(records []store.Record) pagetree.Tree {
		return pagetree.Build(pagetree.Live(store.PagesFromRecords(records)))
	}, onUpdate)
}

// SubscribeTrash streams the soft-deleted pages of a workspace, newest first.
func (p *Projector) SubscribeTrash(ctx context.Context, workspaceID string, onUpdate func([]store.Page)) (Unsubscribe, error) {
	q := store.Query{Collection: store.PagesCollection(workspaceID)}
	return project(ctx, p, q, func(records []store.Record) []store.Page {
		return pagetree.Trashed(store.PagesFromRecords(records))
	}, onUpdate)
}

// SubscribeWorkspaces streams the active workspaces userID belongs to.
func (p *Projector) SubscribeWorkspaces(ctx context.Context, userID string, onUpdate func([]store.Workspace)) (Unsubscribe, error) {
	return project(ctx, p, store.MemberQuery(userID), func(records []store.Record) []store.Workspace {
		return store.ActiveWorkspaces(store.WorkspacesFromRecords(records))
	}, onUpdate)
}

func project[T any](ctx context.Context, p *Projector, q store.Query, build func([]store.Record) T, onUpdate func(T)) (Unsubscribe, error) {
	g := &gate{}
	sub, err := p.store.Subscribe(ctx, q, func(snap store.Snapshot, err error) {
		if err != nil {
			p.log.Warn().Err(err).Str("collection", q.Collection).Msg("live query update failed; keeping last view")
			return
		}
		view := build(snap.Records)
		g.run(func() { onUpdate(view) })
	})
	if errors.Is(err, store.ErrFailedPrecondition) {
		p.log.Warn().Str("collection", q.Collection).Msg("live query unavailable; falling back to one-shot fetch")
		records, err := fetchOnce(ctx, p.store, q)
		if err != nil {
			return nil, err
		}
		onUpdate(build(records))
		return func() {}, nil
	}
	if err != nil {
		return nil, err
	}
	return func() {
		sub.Close()
		g.close()
	}, nil
}

// fetchOnce reads the whole collection and applies the query's predicates
// locally, so it works even when the store rejects the query itself.
func fetchOnce(ctx context.Context, st store.Store, q store.Query) ([]store.Record, error) {
	all, err := st.Get(ctx, store.Query{Collection: q.Collection})
	if err != nil {
		return nil, err
	}
	out := make([]store.Record, 0, len(all))
	for _, r := range all {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// gate serializes callbacks and stops them for good once closed.
type gate struct {
	mu     sync.Mutex
	closed bool
}

func (g *gate) run(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	fn()
}

func (g *gate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}
