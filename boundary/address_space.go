package boundary

import (
	"fmt"
	"sort"
	"sync"
)

type Addr uintptr

type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite

	PermNone      Perm = 0
	PermReadWrite      = PermRead | PermWrite
)

func (p Perm) allows(want Perm) bool { return p&want == want }

type Op string

const (
	OpRead  Op = "read"
	OpWrite Op = "write"
)

// FaultHook runs immediately before a copy crosses the boundary. A non-nil
// return aborts the copy with a fault. Hooks may also mutate the address space
// (unmap, protect) to model memory changing between validation and copy.
type FaultHook func(op Op, addr Addr, n int) error

type mapping struct {
	base Addr
	perm Perm
	data []byte
}

func (m *mapping) end() Addr { return m.base + Addr(len(m.data)) }

// contains compares against the space left in the mapping so addr+n never
// has to be formed and cannot wrap.
func (m *mapping) contains(addr Addr, n int) bool {
	if n < 0 || addr < m.base || addr > m.end() {
		return false
	}
	return Addr(n) <= m.end()-addr
}

// AddressSpace simulates a caller address space made of permissioned,
// non-overlapping mappings. Address 0 is never mapped and is the null pointer.
type AddressSpace struct {
	mu        sync.RWMutex
	mappings  []*mapping
	faultHook FaultHook
}

func NewAddressSpace() *AddressSpace {
	return &AddressSpace{}
}

func (s *AddressSpace) Map(base Addr, size int, perm Perm) error {
	if base == 0 {
		return fmt.Errorf("boundary: cannot map the null page")
	}
	if size <= 0 {
		return fmt.Errorf("boundary: mapping size must be > 0")
	}
	candidate := &mapping{base: base, perm: perm, data: make([]byte, size)}
	if candidate.end() < base {
		return fmt.Errorf("boundary: mapping at %#x overflows the address space", base)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.mappings {
		if candidate.base < existing.end() && existing.base < candidate.end() {
			return fmt.Errorf("boundary: mapping at %#x overlaps %#x", base, existing.base)
		}
	}
	s.mappings = append(s.mappings, candidate)
	sort.Slice(s.mappings, func(i, j int) bool { return s.mappings[i].base < s.mappings[j].base })
	return nil
}

func (s *AddressSpace) Unmap(base Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for index, existing := range s.mappings {
		if existing.base == base {
			s.mappings = append(s.mappings[:index], s.mappings[index+1:]...)
			return nil
		}
	}
	return fmt.Errorf("boundary: no mapping at %#x", base)
}

func (s *AddressSpace) Protect(base Addr, perm Perm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.mappings {
		if existing.base == base {
			existing.perm = perm
			return nil
		}
	}
	return fmt.Errorf("boundary: no mapping at %#x", base)
}

func (s *AddressSpace) SetFaultHook(hook FaultHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultHook = hook
}

// Store writes data at addr from the owning side. Permissions are not checked
// but the range must be mapped.
func (s *AddressSpace) Store(addr Addr, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.lookup(addr, len(data))
	if m == nil {
		return fmt.Errorf("%w: store of %d bytes at %#x is unmapped", ErrFault, len(data), addr)
	}
	copy(m.data[addr-m.base:], data)
	return nil
}

// Load reads n bytes at addr from the owning side.
func (s *AddressSpace) Load(addr Addr, n int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.lookup(addr, n)
	if m == nil {
		return nil, fmt.Errorf("%w: load of %d bytes at %#x is unmapped", ErrFault, n, addr)
	}
	out := make([]byte, n)
	copy(out, m.data[addr-m.base:])
	return out, nil
}

// Pointer returns a Region starting at addr. Address 0 yields nil.
func (s *AddressSpace) Pointer(addr Addr) Region {
	if s == nil || addr == 0 {
		return nil
	}
	return &pointer{space: s, addr: addr}
}

func (s *AddressSpace) lookup(addr Addr, n int) *mapping {
	if n < 0 {
		return nil
	}
	index := sort.Search(len(s.mappings), func(i int) bool { return s.mappings[i].end() > addr })
	if index == len(s.mappings) {
		return nil
	}
	m := s.mappings[index]
	if !m.contains(addr, n) {
		return nil
	}
	return m
}

func (s *AddressSpace) accessible(addr Addr, n int, want Perm) bool {
	if n < 0 {
		return false
	}
	if n == 0 {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.lookup(addr, n)
	return m != nil && m.perm.allows(want)
}

func (s *AddressSpace) runHook(op Op, addr Addr, n int) error {
	s.mu.RLock()
	hook := s.faultHook
	s.mu.RUnlock()
	if hook == nil {
		return nil
	}
	if err := hook(op, addr, n); err != nil {
		return fmt.Errorf("%w: %s of %d bytes at %#x: %w", ErrFault, op, n, addr, err)
	}
	return nil
}

func (s *AddressSpace) copyOut(addr Addr, dst []byte) error {
	if err := s.runHook(OpRead, addr, len(dst)); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.lookup(addr, len(dst))
	if m == nil || !m.perm.allows(PermRead) {
		return fmt.Errorf("%w: read of %d bytes at %#x", ErrFault, len(dst), addr)
	}
	copy(dst, m.data[addr-m.base:])
	return nil
}

func (s *AddressSpace) copyIn(addr Addr, src []byte) error {
	if err := s.runHook(OpWrite, addr, len(src)); err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.lookup(addr, len(src))
	if m == nil || !m.perm.allows(PermWrite) {
		return fmt.Errorf("%w: write of %d bytes at %#x", ErrFault, len(src), addr)
	}
	copy(m.data[addr-m.base:], src)
	return nil
}

type pointer struct {
	space *AddressSpace
	addr  Addr
}

func (p *pointer) Readable(n int) bool { return p.space.accessible(p.addr, n, PermRead) }

func (p *pointer) Writable(n int) bool { return p.space.accessible(p.addr, n, PermWrite) }

func (p *pointer) CopyOut(dst []byte) error { return p.space.copyOut(p.addr, dst) }

func (p *pointer) CopyIn(src []byte) error { return p.space.copyIn(p.addr, src) }

var _ Region = (*pointer)(nil)
