package mailbox

import "errors"

var (
	ErrInvalidArgument      = errors.New("mailbox: invalid argument")
	ErrBadAddress           = errors.New("mailbox: bad address")
	ErrOutOfMemory          = errors.New("mailbox: out of memory")
	ErrInsufficientCapacity = errors.New("mailbox: insufficient capacity")
	ErrEmpty                = errors.New("mailbox: empty")
)

type Kind uint8

const (
	KindNone Kind = iota
	KindInvalidArgument
	KindBadAddress
	KindOutOfMemory
	KindInsufficientCapacity
	KindEmpty
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindBadAddress:
		return "bad_address"
	case KindOutOfMemory:
		return "out_of_memory"
	case KindInsufficientCapacity:
		return "insufficient_capacity"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Discards reports whether a Get failing with this kind consumed a message.
func (k Kind) Discards() bool {
	return k == KindInsufficientCapacity || k == KindBadAddress
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrBadAddress):
		return KindBadAddress
	case errors.Is(err, ErrOutOfMemory):
		return KindOutOfMemory
	case errors.Is(err, ErrInsufficientCapacity):
		return KindInsufficientCapacity
	case errors.Is(err, ErrEmpty):
		return KindEmpty
	default:
		return KindUnknown
	}
}

// Linux errno values returned (negated) by the msgbox system calls.
const (
	errnoENOMEM  = 12
	errnoEFAULT  = 14
	errnoEINVAL  = 22
	errnoENOBUFS = 105
)

// Errno maps err to the return code of the system-call interface: 0 on
// success, a negated errno otherwise, and -1 for an empty mailbox.
func Errno(err error) int {
	switch KindOf(err) {
	case KindNone:
		return 0
	case KindInvalidArgument:
		return -errnoEINVAL
	case KindBadAddress:
		return -errnoEFAULT
	case KindOutOfMemory:
		return -errnoENOMEM
	case KindInsufficientCapacity:
		return -errnoENOBUFS
	default:
		return -1
	}
}
