package pagetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/api/internal/store"
)

func siblingsTree() Tree {
	return Build([]store.Page{
		page("p1", "One", "", 0),
		page("p2", "Two", "", 1),
		page("p3", "Three", "", 2),
		page("c1", "Child", "p1", 0),
	})
}

func TestPlaceDrop(t *testing.T) {
	tree := siblingsTree()

	got, err := PlaceDrop(tree, "p3", "p2", DropBefore)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, []string{"p1", "p3", "p2"}, got.SiblingOrder)

	got, err = PlaceDrop(tree, "p1", "p3", DropAfter)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p3", "p1"}, got.SiblingOrder)

	got, err = PlaceDrop(tree, "p3", "p1", DropInside)
	require.NoError(t, err)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, "p1", *got.ParentID)
	assert.Equal(t, []string{"c1", "p3"}, got.SiblingOrder)

	got, err = PlaceDrop(tree, "c1", "p2", DropAfter)
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
	assert.Equal(t, []string{"p1", "p2", "c1", "p3"}, got.SiblingOrder)
}

func TestPlaceDropErrors(t *testing.T) {
	tree := siblingsTree()
	_, err := PlaceDrop(tree, "p1", "p1", DropAfter)
	assert.ErrorIs(t, err, ErrDropOnSelf)
	_, err = PlaceDrop(tree, "p1", "ghost", DropAfter)
	assert.ErrorIs(t, err, ErrUnknownTarget)
}

func TestAppendTo(t *testing.T) {
	tree := siblingsTree()
	parent := "p1"
	got := AppendTo(tree, "p2", &parent)
	assert.Equal(t, []string{"c1", "p2"}, got.SiblingOrder)

	got = AppendTo(tree, "c1", nil)
	assert.Equal(t, []string{"p1", "p2", "p3", "c1"}, got.SiblingOrder)
}
