package app

import (
	"context"
	"errors"
	"strings"

	"folio/api/internal/ordering"
	"folio/api/internal/store"
)

const (
	untitledWorkspace = "Untitled workspace"
	hubWorkspace      = "Hub"
	homePage          = "Home"
)

// CreateWorkspace creates a workspace owned by actor together with its
// "Home" page, in one batch.
func (s *Service) CreateWorkspace(ctx context.Context, actor Actor, name string) (store.Workspace, store.Page, error) {
	if err := requireActor(actor); err != nil {
		return store.Workspace{}, store.Page{}, err
	}
	now := s.nowMs()
	ws := store.Workspace{
		ID:        s.newID("ws"),
		Name:      normalizeTitle(name, untitledWorkspace),
		OwnerID:   actor.UserID,
		MemberIDs: []string{actor.UserID},
		Order:     ordering.Compute(nil, nil),
		CreatedAt: now,
		UpdatedAt: now,
	}
	home := store.Page{
		ID:          s.newID("pg"),
		WorkspaceID: ws.ID,
		Title:       homePage,
		Order:       ordering.Compute(nil, nil),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b := store.NewBatch().
		Set(store.WorkspacePath(ws.ID), ws.Fields()).
		Set(store.PagePath(ws.ID, home.ID), home.Fields())
	if err := s.commit(ctx, "create workspace", b); err != nil {
		return store.Workspace{}, store.Page{}, err
	}
	s.indexAsync(home)
	return ws, home, nil
}

// EnsureHome returns the workspace and page a user lands on, creating a
// "Hub" workspace or a "Home" page when the user has none.
func (s *Service) EnsureHome(ctx context.Context, actor Actor) (store.Workspace, store.Page, error) {
	if err := requireActor(actor); err != nil {
		return store.Workspace{}, store.Page{}, err
	}
	owned, err := s.ownedWorkspaces(ctx, actor.UserID)
	if err != nil {
		return store.Workspace{}, store.Page{}, err
	}
	active := store.ActiveWorkspaces(owned)
	if len(active) == 0 {
		return s.CreateWorkspace(ctx, actor, hubWorkspace)
	}
	ws := active[0]

	tree, err := s.GetTree(ctx, ws.ID)
	if err != nil {
		return store.Workspace{}, store.Page{}, err
	}
	for _, p := range tree.Roots {
		if p.Title == homePage {
			return ws, p, nil
		}
	}
	if first, ok := tree.FirstRoot(); ok {
		return ws, first, nil
	}

	id, err := s.CreatePage(ctx, actor, ws.ID, nil, homePage)
	if err != nil {
		return store.Workspace{}, store.Page{}, err
	}
	page, err := s.getPage(ctx, ws.ID, id)
	if err != nil {
		return store.Workspace{}, store.Page{}, err
	}
	return ws, page, nil
}

// ListWorkspaces returns the active workspaces actor belongs to, in sidebar order.
func (s *Service) ListWorkspaces(ctx context.Context, actor Actor) ([]store.Workspace, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	records, err := s.store.Get(ctx, store.MemberQuery(actor.UserID))
	if err != nil {
		return nil, storeError("list workspaces", err)
	}
	return store.ActiveWorkspaces(store.WorkspacesFromRecords(records)), nil
}

// ListDeletedWorkspaces returns actor's workspaces that are in the trash.
func (s *Service) ListDeletedWorkspaces(ctx context.Context, actor Actor) ([]store.Workspace, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	owned, err := s.ownedWorkspaces(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]store.Workspace, 0)
	for _, ws := range owned {
		if ws.IsDeleted {
			out = append(out, ws)
		}
	}
	store.SortWorkspaces(out)
	return out, nil
}

func (s *Service) ownedWorkspaces(ctx context.Context, userID string) ([]store.Workspace, error) {
	records, err := s.store.Get(ctx, store.OwnerQuery(userID))
	if err != nil {
		return nil, storeError("list owned workspaces", err)
	}
	return store.WorkspacesFromRecords(records), nil
}

func (s *Service) RenameWorkspace(ctx context.Context, actor Actor, workspaceID, name string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	b := store.NewBatch().Update(store.WorkspacePath(workspaceID), map[string]any{
		"name":      normalizeTitle(name, untitledWorkspace),
		"updatedAt": s.nowMs(),
	})
	return s.commit(ctx, "rename workspace", b)
}

// SoftDeleteWorkspace moves a workspace to the trash. An owner cannot trash
// their last active workspace.
func (s *Service) SoftDeleteWorkspace(ctx context.Context, actor Actor, workspaceID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.IsDeleted {
		return nil
	}
	if ws.OwnerID == actor.UserID {
		if err := s.ensureAnotherOwnedWorkspace(ctx, actor, workspaceID); err != nil {
			return err
		}
	}
	return s.setWorkspaceDeleted(ctx, workspaceID, true)
}

func (s *Service) RestoreWorkspace(ctx context.Context, actor Actor, workspaceID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.setWorkspaceDeleted(ctx, workspaceID, false)
}

func (s *Service) setWorkspaceDeleted(ctx context.Context, workspaceID string, deleted bool) error {
	b := store.NewBatch().Update(store.WorkspacePath(workspaceID), map[string]any{
		"isDeleted": deleted,
		"updatedAt": s.nowMs(),
	})
	return s.commit(ctx, "update workspace", b)
}

func (s *Service) ensureAnotherOwnedWorkspace(ctx context.Context, actor Actor, workspaceID string) error {
	owned, err := s.ownedWorkspaces(ctx, actor.UserID)
	if err != nil {
		return err
	}
	for _, ws := range store.ActiveWorkspaces(owned) {
		if ws.ID != workspaceID {
			return nil
		}
	}
	return domainError(ErrLastWorkspace, "you must keep at least one active workspace", map[string]any{"workspaceId": workspaceID})
}

// LeaveWorkspace removes actor from the members of a workspace they do not own.
func (s *Service) LeaveWorkspace(ctx context.Context, actor Actor, workspaceID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if ws.OwnerID == actor.UserID {
		return domainError(ErrOwnerCannotLeave, "the owner cannot leave their workspace", map[string]any{"workspaceId": workspaceID})
	}
	return s.removeMember(ctx, workspaceID, actor.UserID)
}

func (s *Service) removeMember(ctx context.Context, workspaceID, userID string) error {
	b := store.NewBatch().Update(store.WorkspacePath(workspaceID), map[string]any{
		"memberIds": store.ArrayRemove(userID),
		"updatedAt": s.nowMs(),
	})
	return s.commit(ctx, "leave workspace", b)
}

func (s *Service) AddMembers(ctx context.Context, actor Actor, workspaceID string, userIDs []string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	var members []any
	seen := map[string]struct{}{}
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members) == 0 {
		return domainError(ErrInvalidArgument, "at least one user id is required", nil)
	}
	b := store.NewBatch().Update(store.WorkspacePath(workspaceID), map[string]any{
		"memberIds": store.ArrayUnion(members...),
		"updatedAt": s.nowMs(),
	})
	return s.commit(ctx, "add members", b)
}

// DeactivateAccount hard-deletes every workspace actor owns, leaves the ones
// shared with them and removes their profile. Each step is attempted even
// when an earlier one failed.
func (s *Service) DeactivateAccount(ctx context.Context, actor Actor) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	var errs []error

	owned, err := s.ownedWorkspaces(ctx, actor.UserID)
	if err != nil {
		return err
	}
	for _, ws := range owned {
		if err := s.hardDeleteWorkspace(ctx, ws.ID); err != nil {
			s.log.Error().Err(err).Str("workspace", ws.ID).Msg("deactivate: workspace delete failed")
			errs = append(errs, err)
		}
	}

	records, err := s.store.Get(ctx, store.MemberQuery(actor.UserID))
	if err != nil {
		errs = append(errs, storeError("list memberships", err))
	}
	for _, ws := range store.WorkspacesFromRecords(records) {
		if ws.OwnerID == actor.UserID {
			continue
		}
		if err := s.removeMember(ctx, ws.ID, actor.UserID); err != nil {
			s.log.Error().Err(err).Str("workspace", ws.ID).Msg("deactivate: leave workspace failed")
			errs = append(errs, err)
		}
	}

	if err := s.commit(ctx, "delete profile", store.NewBatch().Delete(store.UserPath(actor.UserID))); err != nil {
		s.log.Warn().Err(err).Str("user", actor.UserID).Msg("deactivate: profile delete failed")
	}
	return errors.Join(errs...)
}

// FirstRootPage returns the first live root page of a workspace, if any.
func (s *Service) FirstRootPage(ctx context.Context, workspaceID string) (store.Page, bool, error) {
	tree, err := s.GetTree(ctx, workspaceID)
	if err != nil {
		return store.Page{}, false, err
	}
	p, ok := tree.FirstRoot()
	return p, ok, nil
}

