package core

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-msgbox/mailbox"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return l.values, nil
}

// failingAllocator fails every allocation of failOn while armed.
type failingAllocator struct {
	mu     sync.Mutex
	inner  *mailbox.HeapAllocator
	failOn mailbox.BlockKind
	armed  bool
}

func newFailingAllocator(failOn mailbox.BlockKind) *failingAllocator {
	return &failingAllocator{inner: mailbox.NewHeapAllocator(), failOn: failOn, armed: true}
}

func (a *failingAllocator) Allocate(kind mailbox.BlockKind, size int) (mailbox.Block, error) {
	a.mu.Lock()
	fail := a.armed && kind == a.failOn
	a.mu.Unlock()
	if fail {
		return nil, errors.New("allocator exhausted")
	}
	return a.inner.Allocate(kind, size)
}

func (a *failingAllocator) Live() int64 { return a.inner.Live() }

func sequentialIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	next := 0
	return func() uuid.UUID {
		mu.Lock()
		defer mu.Unlock()
		id := uuid.MustParse(ids[next%len(ids)])
		next++
		return id
	}
}

func newTestService(opts ...Option) *Service {
	svc, err := NewService(DefaultConfig(), append([]Option{WithLogger(stubLogger{})}, opts...)...)
	if err != nil {
		panic(err)
	}
	return svc
}
