package mailbox

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/goliatone/go-msgbox/boundary"
)

// MaxMessageSize is the largest payload, in bytes, a single message may carry.
const MaxMessageSize = 128

// metadata block layout: payload length (uint16 LE) followed by the tag.
const (
	metaLengthOffset = 0
	metaTagOffset    = 2
	metadataSize     = metaTagOffset + len(Tag{})
)

// Tag is an opaque caller-chosen label stored with a message. The mailbox
// never interprets it.
type Tag [16]byte

// Receipt describes the message a Receive call removed from the mailbox. It is
// populated whenever a message was removed, including when delivery failed.
type Receipt struct {
	Length  int
	Tag     Tag
	Removed bool
}

type message struct {
	prev    *message
	meta    Block
	payload Block
}

func (m *message) length() int {
	return int(binary.LittleEndian.Uint16(m.meta.Bytes()[metaLengthOffset:]))
}

func (m *message) tag() Tag {
	var tag Tag
	copy(tag[:], m.meta.Bytes()[metaTagOffset:])
	return tag
}

func (m *message) release() {
	m.payload.Release()
	m.meta.Release()
}

// Mailbox is a LIFO stack of bounded byte messages. It is safe for concurrent
// use. The lock covers only stack linkage: allocation and every copy across
// the boundary happen outside it.
//
// A message removed by Get is never returned to the stack. When Get fails
// with ErrInsufficientCapacity or ErrBadAddress the message has been
// discarded and cannot be retrieved again.
type Mailbox struct {
	mu        sync.Mutex
	top       *message
	depth     int
	allocator Allocator
}

type Option func(*Mailbox)

func WithAllocator(allocator Allocator) Option {
	return func(mb *Mailbox) {
		if allocator != nil {
			mb.allocator = allocator
		}
	}
}

func New(opts ...Option) *Mailbox {
	mb := &Mailbox{allocator: NewHeapAllocator()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(mb)
	}
	return mb
}

func (mb *Mailbox) Allocator() Allocator {
	if mb == nil {
		return nil
	}
	return mb.allocator
}

// Put copies length bytes from src into a new message on top of the stack.
func (mb *Mailbox) Put(src boundary.Region, length int) error {
	return mb.PutTagged(src, length, Tag{})
}

// PutTagged is Put with a tag stored alongside the message.
func (mb *Mailbox) PutTagged(src boundary.Region, length int, tag Tag) error {
	if boundary.IsNull(src) {
		return fmt.Errorf("%w: source buffer is null", ErrInvalidArgument)
	}
	if length < 0 || length > MaxMessageSize {
		return fmt.Errorf("%w: length %d outside [0,%d]", ErrInvalidArgument, length, MaxMessageSize)
	}
	if !src.Readable(length) {
		return fmt.Errorf("%w: source region of %d bytes is not readable", ErrBadAddress, length)
	}

	msg, err := mb.allocate(length, tag)
	if err != nil {
		return err
	}
	linked := false
	defer func() {
		if !linked {
			msg.release()
		}
	}()

	if err := src.CopyOut(msg.payload.Bytes()); err != nil {
		return fmt.Errorf("%w: %w", ErrBadAddress, err)
	}

	mb.mu.Lock()
	msg.prev = mb.top
	mb.top = msg
	mb.depth++
	mb.mu.Unlock()
	linked = true
	return nil
}

// Get copies the most recently put message into dst and returns its length.
func (mb *Mailbox) Get(dst boundary.Region, capacity int) (int, error) {
	receipt, err := mb.Receive(dst, capacity)
	if err != nil {
		return 0, err
	}
	return receipt.Length, nil
}

// Receive is Get returning the removed message's description. On
// ErrInsufficientCapacity or ErrBadAddress after removal the receipt still
// describes the discarded message.
func (mb *Mailbox) Receive(dst boundary.Region, capacity int) (Receipt, error) {
	if boundary.IsNull(dst) {
		return Receipt{}, fmt.Errorf("%w: destination buffer is null", ErrInvalidArgument)
	}
	if capacity < 0 || capacity > MaxMessageSize {
		return Receipt{}, fmt.Errorf("%w: capacity %d outside [0,%d]", ErrInvalidArgument, capacity, MaxMessageSize)
	}
	if !dst.Writable(capacity) {
		return Receipt{}, fmt.Errorf("%w: destination region of %d bytes is not writable", ErrBadAddress, capacity)
	}

	msg := mb.pop()
	if msg == nil {
		return Receipt{}, ErrEmpty
	}
	defer msg.release()

	receipt := Receipt{Length: msg.length(), Tag: msg.tag(), Removed: true}
	if receipt.Length > capacity {
		return receipt, fmt.Errorf("%w: message of %d bytes exceeds capacity %d", ErrInsufficientCapacity, receipt.Length, capacity)
	}
	if err := dst.CopyIn(msg.payload.Bytes()); err != nil {
		return receipt, fmt.Errorf("%w: %w", ErrBadAddress, err)
	}
	return receipt, nil
}

// Depth returns the number of queued messages.
func (mb *Mailbox) Depth() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.depth
}

// Drain removes and releases every queued message and returns how many there
// were.
func (mb *Mailbox) Drain() int {
	mb.mu.Lock()
	top := mb.top
	count := mb.depth
	mb.top = nil
	mb.depth = 0
	mb.mu.Unlock()

	for msg := top; msg != nil; {
		prev := msg.prev
		msg.prev = nil
		msg.release()
		msg = prev
	}
	return count
}

func (mb *Mailbox) pop() *message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	msg := mb.top
	if msg == nil {
		return nil
	}
	mb.top = msg.prev
	mb.depth--
	msg.prev = nil
	return msg
}

func (mb *Mailbox) allocate(length int, tag Tag) (*message, error) {
	meta, err := mb.allocator.Allocate(BlockMetadata, metadataSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s block: %w", ErrOutOfMemory, BlockMetadata, err)
	}
	if len(meta.Bytes()) < metadataSize {
		meta.Release()
		return nil, fmt.Errorf("%w: short %s block", ErrOutOfMemory, BlockMetadata)
	}

	payload, err := mb.allocator.Allocate(BlockPayload, length)
	if err != nil {
		meta.Release()
		return nil, fmt.Errorf("%w: %s block: %w", ErrOutOfMemory, BlockPayload, err)
	}
	if len(payload.Bytes()) != length {
		payload.Release()
		meta.Release()
		return nil, fmt.Errorf("%w: short %s block", ErrOutOfMemory, BlockPayload)
	}

	binary.LittleEndian.PutUint16(meta.Bytes()[metaLengthOffset:], uint16(length))
	copy(meta.Bytes()[metaTagOffset:], tag[:])
	return &message{meta: meta, payload: payload}, nil
}
