package app

import (
	"context"
	"errors"
	"sort"

	"folio/api/internal/store"
)

// HardDeletePage permanently removes a page and its blocks. Blocks go first,
// in chunks that fit one batch; the page record is removed only once every
// chunk succeeded. Child pages are not touched and become orphans.
func (s *Service) HardDeletePage(ctx context.Context, actor Actor, workspaceID, pageID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if _, err := s.getPage(ctx, workspaceID, pageID); err != nil {
		return err
	}
	if err := s.deletePageBlocks(ctx, workspaceID, pageID); err != nil {
		return err
	}
	if err := s.commit(ctx, "delete page", store.NewBatch().Delete(store.PagePath(workspaceID, pageID))); err != nil {
		return err
	}
	s.unindexAsync(pageID)
	return nil
}

// HardDeleteWorkspace permanently removes a workspace with all of its pages
// and blocks. Failed chunks are logged and skipped so the remaining ones still
// run; the workspace record survives any failure so the delete can be retried.
func (s *Service) HardDeleteWorkspace(ctx context.Context, actor Actor, workspaceID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	ws, err := s.getWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !ws.IsDeleted && ws.OwnerID == actor.UserID {
		if err := s.ensureAnotherOwnedWorkspace(ctx, actor, workspaceID); err != nil {
			return err
		}
	}
	return s.hardDeleteWorkspace(ctx, workspaceID)
}

func (s *Service) hardDeleteWorkspace(ctx context.Context, workspaceID string) error {
	pages, err := s.loadPages(ctx, workspaceID)
	if err != nil {
		return err
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })

	var errs []error
	var emptied []string
	for _, p := range pages {
		if err := s.deletePageBlocks(ctx, workspaceID, p.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		emptied = append(emptied, p.ID)
	}

	paths := make([]string, len(emptied))
	for i, id := range emptied {
		paths[i] = store.PagePath(workspaceID, id)
	}
	for i, chunk := range store.Chunk(paths, s.cfg.DeleteChunkSize) {
		b := store.NewBatch()
		for _, path := range chunk {
			b.Delete(path)
		}
		if err := s.commit(ctx, "delete pages", b); err != nil {
			s.log.Error().Err(err).Str("workspace", workspaceID).Int("chunk", i).Int("pages", len(chunk)).Msg("page chunk delete failed")
			errs = append(errs, err)
			continue
		}
		s.log.Debug().Str("workspace", workspaceID).Int("chunk", i).Int("pages", len(chunk)).Msg("page chunk deleted")
	}
	s.unindexAsync(emptied...)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return s.commit(ctx, "delete workspace", store.NewBatch().Delete(store.WorkspacePath(workspaceID)))
}

// deletePageBlocks removes every block of a page, chunk by chunk. A failed
// chunk is logged and the rest are still attempted.
func (s *Service) deletePageBlocks(ctx context.Context, workspaceID, pageID string) error {
	blocks, err := s.loadBlocks(ctx, workspaceID, pageID)
	if err != nil {
		s.log.Error().Err(err).Str("workspace", workspaceID).Str("page", pageID).Msg("load blocks for delete failed")
		return err
	}

	var errs []error
	size := s.cfg.DeleteChunkSize
	for start, chunk := 0, 0; start < len(blocks); start, chunk = start+size, chunk+1 {
		end := min(start+size, len(blocks))
		part := blocks[start:end]
		b := store.NewBatch()
		for _, block := range part {
			b.Delete(store.BlockPath(workspaceID, pageID, block.ID))
		}
		if err := s.commit(ctx, "delete blocks", b); err != nil {
			s.log.Error().Err(err).Str("workspace", workspaceID).Str("page", pageID).Int("chunk", chunk).Int("blocks", len(part)).Msg("block chunk delete failed")
			errs = append(errs, err)
			continue
		}
		s.removeAssets(ctx, part)
	}
	return errors.Join(errs...)
}

func (s *Service) removeAssets(ctx context.Context, blocks []store.Block) {
	if s.assets == nil {
		return
	}
	if err := s.assets.RemoveBlockAssets(ctx, blocks); err != nil {
		s.log.Warn().Err(err).Int("blocks", len(blocks)).Msg("block asset removal failed")
	}
}

// ReorderWorkspaces renumbers the given workspaces to their index in ids.
func (s *Service) ReorderWorkspaces(ctx context.Context, actor Actor, ids []string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(ids))
	now := s.nowMs()
	b := store.NewBatch()
	for i, id := range ids {
		if id == "" {
			return domainError(ErrInvalidArgument, "workspace order contains an empty id", nil)
		}
		if _, dup := seen[id]; dup {
			return domainError(ErrInvalidArgument, "workspace order lists a workspace twice", map[string]any{"workspaceId": id})
		}
		seen[id] = struct{}{}
		b.Update(store.WorkspacePath(id), map[string]any{"order": int64(i), "updatedAt": now})
	}
	return s.commit(ctx, "reorder workspaces", b)
}
