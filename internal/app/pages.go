package app

import (
	"context"
	"errors"

	"folio/api/internal/ordering"
	"folio/api/internal/pagetree"
	"folio/api/internal/store"
)

const untitledPage = "Untitled"

// InsertPosition places a new page next to an existing sibling. The zero
// value appends to the end of the group.
type InsertPosition struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

type MoveOptions struct {
	// ExpectVersions makes the move fail with ErrVersionConflict when any
	// listed page changed since the caller read it. Pages not listed are
	// written unconditionally.
	ExpectVersions map[string]int64
}

// CreatePage appends a page to the end of parentID's children (or the roots)
// and returns its id.
func (s *Service) CreatePage(ctx context.Context, actor Actor, workspaceID string, parentID *string, title string) (string, error) {
	return s.CreatePageAt(ctx, actor, workspaceID, parentID, title, InsertPosition{})
}

// CreatePageAt creates a page whose order falls between its neighbours.
func (s *Service) CreatePageAt(ctx context.Context, actor Actor, workspaceID string, parentID *string, title string, pos InsertPosition) (string, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	if workspaceID == "" {
		return "", domainError(ErrInvalidArgument, "workspace id is required", nil)
	}
	if pos.Before != "" && pos.After != "" {
		return "", domainError(ErrInvalidArgument, "only one of before and after may be set", nil)
	}

	pages, err := s.loadPages(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	tree := pagetree.Build(pagetree.Live(pages))
	if parentID != nil {
		if _, ok := tree.ChildrenByParent[*parentID]; !ok {
			return "", domainError(ErrNotFound, "parent page not found", map[string]any{"parentId": *parentID})
		}
	}

	order, err := insertOrder(tree.Siblings(parentID), pos)
	if err != nil {
		return "", err
	}

	now := s.nowMs()
	page := store.Page{
		ID:          s.newID("pg"),
		WorkspaceID: workspaceID,
		Title:       normalizeTitle(title, untitledPage),
		ParentID:    parentID,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.commit(ctx, "create page", store.NewBatch().Set(store.PagePath(workspaceID, page.ID), page.Fields())); err != nil {
		return "", err
	}
	s.indexAsync(page)
	return page.ID, nil
}

func insertOrder(siblings []store.Page, pos InsertPosition) (int64, error) {
	anchor := pos.Before
	if anchor == "" {
		anchor = pos.After
	}
	if anchor == "" {
		return appendOrder(siblings), nil
	}
	idx := -1
	for i, p := range siblings {
		if p.ID == anchor {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, domainError(ErrNotFound, "sibling page not found", map[string]any{"pageId": anchor})
	}

	var prev, next *int64
	if pos.Before != "" {
		next = &siblings[idx].Order
		if idx > 0 {
			prev = &siblings[idx-1].Order
		}
	} else {
		prev = &siblings[idx].Order
		if idx+1 < len(siblings) {
			next = &siblings[idx+1].Order
		}
	}
	return ordering.Compute(prev, next), nil
}

func (s *Service) RenamePage(ctx context.Context, actor Actor, workspaceID, pageID, title string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	page, err := s.getPage(ctx, workspaceID, pageID)
	if err != nil {
		return err
	}
	page.Title = normalizeTitle(title, untitledPage)
	page.UpdatedAt = s.nowMs()
	b := store.NewBatch().Update(store.PagePath(workspaceID, pageID), map[string]any{
		"title":     page.Title,
		"updatedAt": page.UpdatedAt,
	})
	if err := s.commit(ctx, "rename page", b); err != nil {
		return err
	}
	s.indexAsync(page)
	return nil
}

// SoftDeletePage moves a page to the trash. Its children are left alone and
// stay visible under their missing parent only through ChildrenByParent.
func (s *Service) SoftDeletePage(ctx context.Context, actor Actor, workspaceID, pageID string) error {
	return s.setPageDeleted(ctx, actor, workspaceID, pageID, true)
}

func (s *Service) RestorePage(ctx context.Context, actor Actor, workspaceID, pageID string) error {
	return s.setPageDeleted(ctx, actor, workspaceID, pageID, false)
}

func (s *Service) setPageDeleted(ctx context.Context, actor Actor, workspaceID, pageID string, deleted bool) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	page, err := s.getPage(ctx, workspaceID, pageID)
	if err != nil {
		return err
	}
	page.IsDeleted = deleted
	page.UpdatedAt = s.nowMs()
	b := store.NewBatch().Update(store.PagePath(workspaceID, pageID), map[string]any{
		"isDeleted": deleted,
		"updatedAt": page.UpdatedAt,
	})
	action := "restore page"
	if deleted {
		action = "soft delete page"
	}
	if err := s.commit(ctx, action, b); err != nil {
		return err
	}
	s.indexAsync(page)
	return nil
}

// MovePage reparents pageID and renumbers the destination group to match
// finalSiblingOrder, which must list the moved page. Everything is written in
// one batch; a sibling that no longer exists fails the whole move.
func (s *Service) MovePage(ctx context.Context, actor Actor, workspaceID, pageID string, newParentID *string, finalSiblingOrder []string) error {
	return s.MovePageWithOptions(ctx, actor, workspaceID, pageID, newParentID, finalSiblingOrder, MoveOptions{})
}

func (s *Service) MovePageWithOptions(ctx context.Context, actor Actor, workspaceID, pageID string, newParentID *string, finalSiblingOrder []string, opts MoveOptions) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := validateSiblingOrder(pageID, finalSiblingOrder); err != nil {
		return err
	}

	pages, err := s.loadPages(ctx, workspaceID)
	if err != nil {
		return err
	}
	// Trash included: a hidden descendant is still a descendant.
	tree := pagetree.Build(pages)
	if _, ok := tree.ChildrenByParent[pageID]; !ok {
		return domainError(ErrNotFound, "page not found", map[string]any{"pageId": pageID})
	}
	if newParentID != nil {
		if _, ok := tree.ChildrenByParent[*newParentID]; !ok {
			return domainError(ErrNotFound, "parent page not found", map[string]any{"parentId": *newParentID})
		}
	}
	if !pagetree.IsLegalMove(pageID, newParentID, tree.ChildrenByParent) {
		return domainError(ErrIllegalMove, "a page cannot be moved into itself or one of its descendants", map[string]any{
			"pageId":   pageID,
			"parentId": newParentID,
		})
	}

	var parent any
	if newParentID != nil {
		parent = *newParentID
	}
	now := s.nowMs()
	b := store.NewBatch()
	for i, id := range finalSiblingOrder {
		fields := map[string]any{"order": int64(i), "updatedAt": now}
		if id == pageID {
			fields["parentId"] = parent
		}
		op := store.Op{Kind: store.OpUpdate, Path: store.PagePath(workspaceID, id), Fields: fields}
		if v, ok := opts.ExpectVersions[id]; ok {
			op.IfVersion = &v
		}
		b.Add(op)
	}
	return s.commit(ctx, "move page", b)
}

func validateSiblingOrder(pageID string, order []string) error {
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if id == "" {
			return domainError(ErrInvalidArgument, "sibling order contains an empty id", nil)
		}
		if _, dup := seen[id]; dup {
			return domainError(ErrInvalidArgument, "sibling order lists a page twice", map[string]any{"pageId": id})
		}
		seen[id] = struct{}{}
	}
	if _, ok := seen[pageID]; !ok {
		return domainError(ErrInvalidArgument, "sibling order must include the moved page", map[string]any{"pageId": pageID})
	}
	return nil
}

// DropPage moves draggedID before, after or inside targetID, as a tree view
// does on drag-and-drop.
func (s *Service) DropPage(ctx context.Context, actor Actor, workspaceID, draggedID, targetID string, drop pagetree.Drop) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !drop.Valid() {
		return domainError(ErrInvalidArgument, "drop must be before, after or inside", map[string]any{"drop": drop})
	}
	tree, err := s.GetTree(ctx, workspaceID)
	if err != nil {
		return err
	}
	placement, err := pagetree.PlaceDrop(tree, draggedID, targetID, drop)
	switch {
	case errors.Is(err, pagetree.ErrDropOnSelf):
		return domainError(ErrIllegalMove, "a page cannot be dropped onto itself", map[string]any{"pageId": draggedID})
	case errors.Is(err, pagetree.ErrUnknownTarget):
		return domainError(ErrNotFound, "drop target not found", map[string]any{"pageId": targetID})
	case err != nil:
		return err
	}
	return s.MovePage(ctx, actor, workspaceID, draggedID, placement.ParentID, placement.SiblingOrder)
}

// MovePageToEnd reparents pageID as the last child of newParentID.
func (s *Service) MovePageToEnd(ctx context.Context, actor Actor, workspaceID, pageID string, newParentID *string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	tree, err := s.GetTree(ctx, workspaceID)
	if err != nil {
		return err
	}
	placement := pagetree.AppendTo(tree, pageID, newParentID)
	return s.MovePage(ctx, actor, workspaceID, pageID, placement.ParentID, placement.SiblingOrder)
}

func (s *Service) ListTrash(ctx context.Context, workspaceID string) ([]store.Page, error) {
	pages, err := s.loadPages(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return pagetree.Trashed(pages), nil
}

// EmptyTrash hard-deletes every soft-deleted page of the workspace. Pages are
// attempted independently; the returned count covers the ones that succeeded.
func (s *Service) EmptyTrash(ctx context.Context, actor Actor, workspaceID string) (int, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	trashed, err := s.ListTrash(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	var errs []error
	deleted := 0
	for _, p := range trashed {
		if err := s.HardDeletePage(ctx, actor, workspaceID, p.ID); err != nil {
			s.log.Error().Err(err).Str("workspace", workspaceID).Str("page", p.ID).Msg("empty trash: hard delete failed")
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}
