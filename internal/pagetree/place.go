package pagetree

import (
	"errors"

	"folio/api/internal/store"
)

type Drop string

const (
	DropBefore Drop = "before"
	DropAfter  Drop = "after"
	DropInside Drop = "inside"
)

func (d Drop) Valid() bool {
	return d == DropBefore || d == DropAfter || d == DropInside
}

var (
	ErrUnknownTarget = errors.New("drop target is not in the tree")
	ErrDropOnSelf    = errors.New("page dropped onto itself")
)

// Placement is the outcome of a drop: the new parent and the complete order of
// the destination sibling group, dragged page included.
type Placement struct {
	ParentID     *string
	SiblingOrder []string
}

// PlaceDrop resolves dropping draggedID before, after or inside targetID.
// Legality of the resulting parent is left to IsLegalMove.
func PlaceDrop(t Tree, draggedID, targetID string, drop Drop) (Placement, error) {
	if draggedID == targetID {
		return Placement{}, ErrDropOnSelf
	}
	target, ok := t.find(targetID)
	if !ok {
		return Placement{}, ErrUnknownTarget
	}

	if drop == DropInside {
		parent := target.ID
		siblings := without(IDs(t.ChildrenByParent[parent]), draggedID)
		return Placement{ParentID: &parent, SiblingOrder: append(siblings, draggedID)}, nil
	}

	siblings := without(IDs(t.Siblings(target.ParentID)), draggedID)
	at := indexOf(siblings, targetID)
	if drop == DropAfter {
		at++
	}
	order := make([]string, 0, len(siblings)+1)
	order = append(order, siblings[:at]...)
	order = append(order, draggedID)
	order = append(order, siblings[at:]...)
	return Placement{ParentID: target.ParentID, SiblingOrder: order}, nil
}

// AppendTo places pageID at the end of parentID's children.
func AppendTo(t Tree, pageID string, parentID *string) Placement {
	siblings := without(IDs(t.Siblings(parentID)), pageID)
	return Placement{ParentID: parentID, SiblingOrder: append(siblings, pageID)}
}

func (t Tree) find(id string) (store.Page, bool) {
	for _, p := range t.Roots {
		if p.ID == id {
			return p, true
		}
	}
	for _, children := range t.ChildrenByParent {
		for _, p := range children {
			if p.ID == id {
				return p, true
			}
		}
	}
	return store.Page{}, false
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return len(ids)
}
