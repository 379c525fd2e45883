package pagetree

import "folio/api/internal/store"

// Descendants returns every page below pageID, excluding pageID itself.
// Cyclic input terminates: each page is expanded at most once.
func Descendants(pageID string, childrenByParent map[string][]store.Page) map[string]struct{} {
	out := map[string]struct{}{}
	stack := []string{pageID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range childrenByParent[id] {
			if child.ID == pageID {
				continue
			}
			if _, ok := out[child.ID]; ok {
				continue
			}
			out[child.ID] = struct{}{}
			stack = append(stack, child.ID)
		}
	}
	return out
}

// IsLegalMove reports whether pageID may be placed under targetParentID.
// Moving to the root is always legal.
func IsLegalMove(pageID string, targetParentID *string, childrenByParent map[string][]store.Page) bool {
	if targetParentID == nil {
		return true
	}
	if *targetParentID == pageID {
		return false
	}
	_, inside := Descendants(pageID, childrenByParent)[*targetParentID]
	return !inside
}

// Target is a destination offered when moving a page.
type Target struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Depth int    `json:"depth"`
}

// MoveTargets lists every page of the tree, in display order, that pageID
// could be moved under.
func MoveTargets(t Tree, pageID string) []Target {
	forbidden := Descendants(pageID, t.ChildrenByParent)
	forbidden[pageID] = struct{}{}

	targets := []Target{}
	t.Walk(func(p store.Page, depth int) bool {
		if _, ok := forbidden[p.ID]; ok {
			return false
		}
		targets = append(targets, Target{ID: p.ID, Title: p.Title, Depth: depth})
		return true
	})
	return targets
}
