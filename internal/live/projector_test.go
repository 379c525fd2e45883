package live

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/api/internal/pagetree"
	"folio/api/internal/store"
	"folio/api/internal/store/storetest"
)

func seed(t *testing.T, st store.Store, pages ...store.Page) {
	t.Helper()
	b := store.NewBatch()
	for _, p := range pages {
		b.Set(store.PagePath(p.WorkspaceID, p.ID), p.Fields())
	}
	require.NoError(t, st.Commit(context.Background(), b))
}

func rootTitles(tree pagetree.Tree) []string {
	out := []string{}
	for _, p := range tree.Roots {
		out = append(out, p.Title)
	}
	return out
}

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	var zero T
	return zero
}

func TestSubscribeProjectsLiveTree(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)
	seed(t, st,
		store.Page{ID: "p1", WorkspaceID: "w1", Title: "Home", Order: 0},
		store.Page{ID: "p2", WorkspaceID: "w1", Title: "Notes", Order: 1},
	)

	trees := make(chan pagetree.Tree, 8)
	unsubscribe, err := NewProjector(st, zerolog.Nop()).Subscribe(ctx, "w1", func(tree pagetree.Tree) { trees <- tree })
	require.NoError(t, err)
	defer unsubscribe()

	assert.Equal(t, []string{"Home", "Notes"}, rootTitles(waitFor(t, trees)))

	require.NoError(t, st.Commit(ctx, store.NewBatch().Update(store.PagePath("w1", "p1"), map[string]any{"isDeleted": true})))
	assert.Equal(t, []string{"Notes"}, rootTitles(waitFor(t, trees)))

	require.NoError(t, st.Commit(ctx, store.NewBatch().Update(store.PagePath("w1", "p1"), map[string]any{"isDeleted": false})))
	assert.Equal(t, []string{"Home", "Notes"}, rootTitles(waitFor(t, trees)))
}

func TestUnsubscribeStopsUpdates(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)

	trees := make(chan pagetree.Tree, 8)
	unsubscribe, err := NewProjector(st, zerolog.Nop()).Subscribe(ctx, "w1", func(tree pagetree.Tree) { trees <- tree })
	require.NoError(t, err)
	waitFor(t, trees)
	unsubscribe()

	seed(t, st, store.Page{ID: "p1", WorkspaceID: "w1", Title: "Late"})
	select {
	case <-trees:
		t.Fatal("update delivered after unsubscribe")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCancelledContextStopsUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := storetest.New(t)

	trees := make(chan pagetree.Tree, 8)
	unsubscribe, err := NewProjector(st, zerolog.Nop()).Subscribe(ctx, "w1", func(tree pagetree.Tree) {
		trees <- tree
		cancel()
	})
	require.NoError(t, err)
	defer unsubscribe()
	waitFor(t, trees)

	seed(t, st, store.Page{ID: "p1", WorkspaceID: "w1", Title: "Late"})
	select {
	case <-trees:
		t.Fatal("update delivered after cancel")
	case <-time.After(150 * time.Millisecond):
	}
}

// noLiveQueries rejects every subscription the way a store without the
// required index does.
type noLiveQueries struct {
	store.Store
}

func (noLiveQueries) Subscribe(context.Context, store.Query, store.SnapshotFunc) (store.Subscription, error) {
	return nil, store.ErrFailedPrecondition
}

func TestSubscribeFallsBackToOneShotFetch(t *testing.T) {
	st := storetest.New(t)
	deleted := store.Page{ID: "p2", WorkspaceID: "w1", Title: "Gone", IsDeleted: true}
	seed(t, st, store.Page{ID: "p1", WorkspaceID: "w1", Title: "Home"}, deleted)

	var got []pagetree.Tree
	unsubscribe, err := NewProjector(noLiveQueries{st}, zerolog.Nop()).Subscribe(context.Background(), "w1", func(tree pagetree.Tree) {
		got = append(got, tree)
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"Home"}, rootTitles(got[0]))

	unsubscribe()
	unsubscribe()
}

func TestSubscribeWorkspacesFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)
	require.NoError(t, st.Commit(ctx, store.NewBatch().
		Set(store.WorkspacePath("w1"), store.Workspace{Name: "Second", OwnerID: "u1", MemberIDs: []string{"u1"}, Order: 2}.Fields()).
		Set(store.WorkspacePath("w2"), store.Workspace{Name: "First", OwnerID: "u2", MemberIDs: []string{"u2", "u1"}, Order: 1}.Fields()).
		Set(store.WorkspacePath("w3"), store.Workspace{Name: "Trashed", OwnerID: "u1", MemberIDs: []string{"u1"}, IsDeleted: true}.Fields()).
		Set(store.WorkspacePath("w4"), store.Workspace{Name: "Foreign", OwnerID: "u9", MemberIDs: []string{"u9"}}.Fields())))

	lists := make(chan []store.Workspace, 8)
	unsubscribe, err := NewProjector(st, zerolog.Nop()).SubscribeWorkspaces(ctx, "u1", func(ws []store.Workspace) { lists <- ws })
	require.NoError(t, err)
	defer unsubscribe()

	list := waitFor(t, lists)
	require.Len(t, list, 2)
	assert.Equal(t, "First", list[0].Name)
	assert.Equal(t, "Second", list[1].Name)
}

func TestSubscribeTrash(t *testing.T) {
	ctx := context.Background()
	st := storetest.New(t)
	seed(t, st, store.Page{ID: "p1", WorkspaceID: "w1", Title: "Home"})

	lists := make(chan []store.Page, 8)
	unsubscribe, err := NewProjector(st, zerolog.Nop()).SubscribeTrash(ctx, "w1", func(pages []store.Page) { lists <- pages })
	require.NoError(t, err)
	defer unsubscribe()
	assert.Empty(t, waitFor(t, lists))

	require.NoError(t, st.Commit(ctx, store.NewBatch().Update(store.PagePath("w1", "p1"), map[string]any{"isDeleted": true})))
	trash := waitFor(t, lists)
	require.Len(t, trash, 1)
	assert.Equal(t, "p1", trash[0].ID)
}
