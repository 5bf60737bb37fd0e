package boundary

import (
	"errors"
	"fmt"
)

var ErrFault = errors.New("boundary: fault")

// Region is a reference to caller-owned memory starting at a fixed address.
type Region interface {
	// Readable reports whether n bytes from the start of the region may be read.
	Readable(n int) bool
	// Writable reports whether n bytes from the start of the region may be written.
	Writable(n int) bool
	// CopyOut copies len(dst) bytes from the region into dst.
	CopyOut(dst []byte) error
	// CopyIn copies src into the start of the region.
	CopyIn(src []byte) error
}

// Nullable is implemented by regions that can represent the null reference
// while still being a non-nil interface value.
type Nullable interface {
	IsNull() bool
}

// IsNull reports whether r is the null reference.
func IsNull(r Region) bool {
	if r == nil {
		return true
	}
	if nullable, ok := r.(Nullable); ok {
		return nullable.IsNull()
	}
	return false
}

// Bytes is a Region backed by an ordinary Go slice. A nil slice is the null
// reference; use Bytes{} for a valid zero-length region.
type Bytes []byte

func (b Bytes) IsNull() bool { return b == nil }

func (b Bytes) Readable(n int) bool { return n >= 0 && n <= len(b) }

func (b Bytes) Writable(n int) bool { return n >= 0 && n <= len(b) }

func (b Bytes) CopyOut(dst []byte) error {
	if len(dst) > len(b) {
		return fmt.Errorf("%w: read of %d bytes from %d byte region", ErrFault, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}

func (b Bytes) CopyIn(src []byte) error {
	if len(src) > len(b) {
		return fmt.Errorf("%w: write of %d bytes to %d byte region", ErrFault, len(src), len(b))
	}
	copy(b, src)
	return nil
}

var (
	_ Region   = Bytes(nil)
	_ Nullable = Bytes(nil)
)
