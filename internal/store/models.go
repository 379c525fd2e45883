package store

import "sort"

type Workspace struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"ownerId"`
	MemberIDs []string `json:"memberIds"`
	IsDeleted bool     `json:"isDeleted"`
	Order     int64    `json:"order"`
	CreatedAt int64    `json:"createdAt"`
	UpdatedAt int64    `json:"updatedAt"`
}

type Page struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspaceId"`
	Title       string  `json:"title"`
	ParentID    *string `json:"parentId"`
	Order       int64   `json:"order"`
	IsDeleted   bool    `json:"isDeleted"`
	CreatedAt   int64   `json:"createdAt"`
	UpdatedAt   int64   `json:"updatedAt"`
}

type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image"
	BlockBoard BlockType = "board"
	BlockTable BlockType = "table"
	BlockChart BlockType = "chart"
	BlockGantt BlockType = "gantt"
	BlockEmbed BlockType = "embed"
)

func (t BlockType) Valid() bool {
	switch t {
	case BlockText, BlockImage, BlockBoard, BlockTable, BlockChart, BlockGantt, BlockEmbed:
		return true
	}
	return false
}

type Block struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspaceId"`
	PageID      string         `json:"pageId"`
	Type        BlockType      `json:"type"`
	Order       int64          `json:"order"`
	Data        map[string]any `json:"data"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   int64          `json:"updatedAt"`
}

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

func WorkspaceFromRecord(r Record) Workspace {
	return Workspace{
		ID:        r.ID,
		Name:      r.String("name"),
		OwnerID:   r.String("ownerId"),
		MemberIDs: r.Strings("memberIds"),
		IsDeleted: r.Bool("isDeleted"),
		Order:     r.Int("order"),
		CreatedAt: r.Int("createdAt"),
		UpdatedAt: r.Int("updatedAt"),
	}
}

func (w Workspace) Fields() map[string]any {
	members := make([]any, len(w.MemberIDs))
	for i, id := range w.MemberIDs {
		members[i] = id
	}
	return map[string]any{
		"name":      w.Name,
		"ownerId":   w.OwnerID,
		"memberIds": members,
		"isDeleted": w.IsDeleted,
		"order":     w.Order,
		"createdAt": w.CreatedAt,
		"updatedAt": w.UpdatedAt,
	}
}

func PageFromRecord(r Record) Page {
	return Page{
		ID:          r.ID,
		WorkspaceID: parentSegment(r.Path, "pages"),
		Title:       r.String("title"),
		ParentID:    r.StringPtr("parentId"),
		Order:       r.Int("order"),
		IsDeleted:   r.Bool("isDeleted"),
		CreatedAt:   r.Int("createdAt"),
		UpdatedAt:   r.Int("updatedAt"),
	}
}

func (p Page) Fields() map[string]any {
	var parent any
	if p.ParentID != nil {
		parent = *p.ParentID
	}
	return map[string]any{
		"title":     p.Title,
		"parentId":  parent,
		"order":     p.Order,
		"isDeleted": p.IsDeleted,
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
	}
}

func PagesFromRecords(records []Record) []Page {
	pages := make([]Page, 0, len(records))
	for _, r := range records {
		pages = append(pages, PageFromRecord(r))
	}
	return pages
}

func BlockFromRecord(r Record) Block {
	data := r.Map("data")
	if data == nil {
		data = map[string]any{}
	}
	return Block{
		ID:          r.ID,
		WorkspaceID: parentSegment(r.Path, "pages"),
		PageID:      parentSegment(r.Path, "blocks"),
		Type:        BlockType(r.String("type")),
		Order:       r.Int("order"),
		Data:        data,
		CreatedAt:   r.Int("createdAt"),
		UpdatedAt:   r.Int("updatedAt"),
	}
}

func (b Block) Fields() map[string]any {
	data := b.Data
	if data == nil {
		data = map[string]any{}
	}
	return map[string]any{
		"type":      string(b.Type),
		"order":     b.Order,
		"data":      data,
		"createdAt": b.CreatedAt,
		"updatedAt": b.UpdatedAt,
	}
}

func WorkspacesFromRecords(records []Record) []Workspace {
	out := make([]Workspace, 0, len(records))
	for _, r := range records {
		out = append(out, WorkspaceFromRecord(r))
	}
	return out
}

func BlocksFromRecords(records []Record) []Block {
	out := make([]Block, 0, len(records))
	for _, r := range records {
		out = append(out, BlockFromRecord(r))
	}
	return out
}

// MemberQuery selects the workspaces userID is a member of.
func MemberQuery(userID string) Query {
	return Query{
		Collection: CollectionWorkspaces,
		Where:      []Predicate{ArrayContains("memberIds", userID)},
	}
}

// OwnerQuery selects the workspaces userID owns.
func OwnerQuery(userID string) Query {
	return Query{
		Collection: CollectionWorkspaces,
		Where:      []Predicate{Eq("ownerId", userID)},
	}
}

// ActiveWorkspaces drops trashed workspaces and sorts the rest.
func ActiveWorkspaces(all []Workspace) []Workspace {
	out := make([]Workspace, 0, len(all))
	for _, ws := range all {
		if !ws.IsDeleted {
			out = append(out, ws)
		}
	}
	SortWorkspaces(out)
	return out
}

// SortWorkspaces orders workspaces by order, creation time and id.
func SortWorkspaces(list []Workspace) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
}
