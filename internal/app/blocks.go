package app

import (
	"context"
	"sort"

	"folio/api/internal/ordering"
	"folio/api/internal/store"
)

func (s *Service) loadBlocks(ctx context.Context, workspaceID, pageID string) ([]store.Block, error) {
	records, err := s.store.Get(ctx, store.Query{Collection: store.BlocksCollection(workspaceID, pageID)})
	if err != nil {
		return nil, storeError("load blocks", err)
	}
	blocks := store.BlocksFromRecords(records)
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Order != blocks[j].Order {
			return blocks[i].Order < blocks[j].Order
		}
		return blocks[i].ID < blocks[j].ID
	})
	return blocks, nil
}

// ListBlocks returns the blocks of a page in display order.
func (s *Service) ListBlocks(ctx context.Context, workspaceID, pageID string) ([]store.Block, error) {
	return s.loadBlocks(ctx, workspaceID, pageID)
}

// AddBlock appends a block after the page's last block.
func (s *Service) AddBlock(ctx context.Context, actor Actor, workspaceID, pageID string, blockType store.BlockType, data map[string]any) (store.Block, error) {
	if err := requireActor(actor); err != nil {
		return store.Block{}, err
	}
	if !blockType.Valid() {
		return store.Block{}, domainError(ErrInvalidArgument, "unknown block type", map[string]any{"type": blockType})
	}
	if _, err := s.getPage(ctx, workspaceID, pageID); err != nil {
		return store.Block{}, err
	}
	blocks, err := s.loadBlocks(ctx, workspaceID, pageID)
	if err != nil {
		return store.Block{}, err
	}

	var order int64
	if len(blocks) > 0 {
		last := blocks[len(blocks)-1].Order
		order = ordering.Compute(&last, nil)
	}
	if data == nil {
		data = map[string]any{}
	}
	now := s.nowMs()
	block := store.Block{
		ID:          s.newID("blk"),
		WorkspaceID: workspaceID,
		PageID:      pageID,
		Type:        blockType,
		Order:       order,
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.commit(ctx, "add block", store.NewBatch().Set(store.BlockPath(workspaceID, pageID, block.ID), block.Fields())); err != nil {
		return store.Block{}, err
	}
	return block, nil
}

// UpdateBlockData merges data into the block's data map field by field.
func (s *Service) UpdateBlockData(ctx context.Context, actor Actor, workspaceID, pageID, blockID string, data map[string]any) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if len(data) == 0 {
		return domainError(ErrInvalidArgument, "no block fields to update", nil)
	}
	fields := make(map[string]any, len(data)+1)
	for k, v := range data {
		fields["data."+k] = v
	}
	fields["updatedAt"] = s.nowMs()
	return s.commit(ctx, "update block", store.NewBatch().Update(store.BlockPath(workspaceID, pageID, blockID), fields))
}

func (s *Service) RemoveBlock(ctx context.Context, actor Actor, workspaceID, pageID, blockID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	record, err := s.store.GetDoc(ctx, store.BlockPath(workspaceID, pageID, blockID))
	if err != nil {
		return storeError("get block", err)
	}
	if err := s.commit(ctx, "remove block", store.NewBatch().Delete(record.Path)); err != nil {
		return err
	}
	s.removeAssets(ctx, []store.Block{store.BlockFromRecord(record)})
	return nil
}
