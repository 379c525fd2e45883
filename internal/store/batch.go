package store

// MaxBatchWrites is the largest number of ops a single Commit accepts.
const MaxBatchWrites = 500

type OpKind int

const (
	OpSet OpKind = iota + 1
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is a single write. Set replaces the document, Update merges fields
// into an existing one and Delete removes it if present. When IfVersion is
// set the op fails with ErrVersionConflict unless the stored version matches.
type Op struct {
	Kind      OpKind
	Path      string
	Fields    map[string]any
	IfVersion *int64
}

type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(path string, fields map[string]any) *Batch {
	return b.Add(Op{Kind: OpSet, Path: path, Fields: fields})
}

func (b *Batch) Update(path string, fields map[string]any) *Batch {
	return b.Add(Op{Kind: OpUpdate, Path: path, Fields: fields})
}

func (b *Batch) Delete(path string) *Batch {
	return b.Add(Op{Kind: OpDelete, Path: path})
}

func (b *Batch) Add(op Op) *Batch {
	b.ops = append(b.ops, op)
	return b
}

func (b *Batch) Ops() []Op {
	if b == nil {
		return nil
	}
	return b.ops
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

// Chunk splits paths into groups of at most size elements.
func Chunk(paths []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchWrites
	}
	var chunks [][]string
	for start := 0; start < len(paths); start += size {
		end := start + size
		if end > len(paths) {
			end = len(paths)
		}
		chunks = append(chunks, paths[start:end])
	}
	return chunks
}
