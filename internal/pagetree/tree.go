// Package pagetree turns the flat page list of a workspace into a sorted
// forest and answers the structural questions the editor asks of it.
package pagetree

import (
	"sort"

	"folio/api/internal/store"
)

// Tree is a render-ready view of a page list. It is never mutated after
// Build returns, so one Tree may be handed to any number of readers.
type Tree struct {
	Roots            []store.Page            `json:"roots"`
	ChildrenByParent map[string][]store.Page `json:"childrenByParent"`
}

// Build groups pages by parent and sorts every group by order, then title.
// It does not filter: pass Live(pages) to hide the trash. A page whose parent
// is not in the input is kept under ChildrenByParent[parentID] only, and so is
// unreachable from Roots.
func Build(pages []store.Page) Tree {
	tree := Tree{
		Roots:            []store.Page{},
		ChildrenByParent: make(map[string][]store.Page, len(pages)),
	}
	for _, p := range pages {
		if _, ok := tree.ChildrenByParent[p.ID]; !ok {
			tree.ChildrenByParent[p.ID] = []store.Page{}
		}
	}
	for _, p := range pages {
		if p.ParentID == nil {
			tree.Roots = append(tree.Roots, p)
			continue
		}
		tree.ChildrenByParent[*p.ParentID] = append(tree.ChildrenByParent[*p.ParentID], p)
	}
	SortSiblings(tree.Roots)
	for _, children := range tree.ChildrenByParent {
		SortSiblings(children)
	}
	return tree
}

// SortSiblings orders pages in place by order, title and id.
func SortSiblings(pages []store.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		a, b := pages[i], pages[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

// Live returns the pages that are not in the trash.
func Live(pages []store.Page) []store.Page {
	out := make([]store.Page, 0, len(pages))
	for _, p := range pages {
		if !p.IsDeleted {
			out = append(out, p)
		}
	}
	return out
}

// Trashed returns the soft-deleted pages, most recently changed first.
func Trashed(pages []store.Page) []store.Page {
	out := make([]store.Page, 0)
	for _, p := range pages {
		if p.IsDeleted {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (t Tree) Children(id string) []store.Page {
	return t.ChildrenByParent[id]
}

// Siblings returns the group a page with the given parent belongs to.
func (t Tree) Siblings(parentID *string) []store.Page {
	if parentID == nil {
		return t.Roots
	}
	return t.ChildrenByParent[*parentID]
}

func (t Tree) FirstRoot() (store.Page, bool) {
	if len(t.Roots) == 0 {
		return store.Page{}, false
	}
	return t.Roots[0], true
}

// Walk visits every page reachable from Roots depth-first in display order.
// Returning false from fn skips the page's subtree.
func (t Tree) Walk(fn func(p store.Page, depth int) bool) {
	seen := map[string]struct{}{}
	var visit func(pages []store.Page, depth int)
	visit = func(pages []store.Page, depth int) {
		for _, p := range pages {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			if fn(p, depth) {
				visit(t.ChildrenByParent[p.ID], depth+1)
			}
		}
	}
	visit(t.Roots, 0)
}

// IDs returns the ids of pages in order.
func IDs(pages []store.Page) []string {
	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}
	return ids
}
