package mailbox

import (
	"fmt"
	"sync/atomic"
)

type BlockKind uint8

const (
	BlockMetadata BlockKind = iota + 1
	BlockPayload
)

func (k BlockKind) String() string {
	switch k {
	case BlockMetadata:
		return "metadata"
	case BlockPayload:
		return "payload"
	default:
		return "unknown"
	}
}

// Block is one allocation. Release must be safe to call more than once; only
// the first call returns the storage.
type Block interface {
	Bytes() []byte
	Release()
}

// Allocator backs message storage. Each queued message holds one metadata
// block and one payload block.
type Allocator interface {
	Allocate(kind BlockKind, size int) (Block, error)
}

// HeapAllocator allocates from the Go heap and counts live blocks.
type HeapAllocator struct {
	live  atomic.Int64
	total atomic.Int64
}

func NewHeapAllocator() *HeapAllocator {
	return &HeapAllocator{}
}

func (a *HeapAllocator) Allocate(kind BlockKind, size int) (Block, error) {
	if a == nil {
		return nil, fmt.Errorf("mailbox: allocator is not configured")
	}
	if size < 0 {
		return nil, fmt.Errorf("mailbox: negative %s allocation size %d", kind, size)
	}
	a.live.Add(1)
	a.total.Add(1)
	return &heapBlock{owner: a, data: make([]byte, size)}, nil
}

// Live reports the number of allocated, unreleased blocks.
func (a *HeapAllocator) Live() int64 {
	if a == nil {
		return 0
	}
	return a.live.Load()
}

// Total reports the number of blocks ever allocated.
func (a *HeapAllocator) Total() int64 {
	if a == nil {
		return 0
	}
	return a.total.Load()
}

type heapBlock struct {
	owner    *HeapAllocator
	data     []byte
	released atomic.Bool
}

func (b *heapBlock) Bytes() []byte { return b.data }

func (b *heapBlock) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	clear(b.data)
	b.data = nil
	b.owner.live.Add(-1)
}

var _ Allocator = (*HeapAllocator)(nil)
