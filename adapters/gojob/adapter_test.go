package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-msgbox/core"
	"github.com/goliatone/go-msgbox/mailbox"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

func TestMessageMappingRoundTrip(t *testing.T) {
	queued := PutJob{Payload: []byte{0x00, 0xff, 'h', 'i'}, IdempotencyKey: " idem-1 "}

	converted := ToExecutionMessage(queued)
	if converted.JobID != JobIDPut || converted.ScriptPath != ScriptPathPut {
		t.Fatalf("unexpected job identity %q %q", converted.JobID, converted.ScriptPath)
	}
	roundTrip, err := FromExecutionMessage(converted)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(roundTrip.Payload) != string(queued.Payload) {
		t.Fatalf("expected payload bytes to survive mapping, got %v", roundTrip.Payload)
	}
	if roundTrip.IdempotencyKey != "idem-1" {
		t.Fatalf("expected trimmed idempotency key, got %q", roundTrip.IdempotencyKey)
	}
}

func TestFromExecutionMessageRejectsMalformed(t *testing.T) {
	cases := []*job.ExecutionMessage{
		nil,
		{JobID: "other.job", Parameters: map[string]any{paramPayload: ""}},
		{JobID: JobIDPut, Parameters: map[string]any{}},
		{JobID: JobIDPut, Parameters: map[string]any{paramPayload: "%%%"}},
	}
	for index, msg := range cases {
		if _, err := FromExecutionMessage(msg); !errors.Is(err, mailbox.ErrInvalidArgument) {
			t.Fatalf("case %d: expected invalid argument, got %v", index, err)
		}
	}
}

func TestEnqueuePutRejectsOversizedPayload(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	adapter := NewEnqueuerAdapter(enqueuer)

	err := adapter.EnqueuePut(context.Background(), PutJob{Payload: make([]byte, core.MaxMessageSize+1)})
	if !errors.Is(err, mailbox.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if enqueuer.last != nil {
		t.Fatalf("expected nothing to be enqueued")
	}
	if err := adapter.EnqueuePut(context.Background(), PutJob{Payload: make([]byte, core.MaxMessageSize)}); err != nil {
		t.Fatalf("enqueue max sized payload: %v", err)
	}
}

func TestConsumerAppliesQueuedPut(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	enqueuer := &stubQueueEnqueuer{}
	if err := NewEnqueuerAdapter(enqueuer).EnqueuePut(ctx, PutJob{Payload: []byte("queued"), IdempotencyKey: "idem-1"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	delivery := &stubQueueDelivery{msg: enqueuer.last}
	consumer := NewConsumer(&stubQueueDequeuer{delivery: delivery}, svc, RetryPolicy{})
	result, err := consumer.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected delivery to be acked")
	}
	if result.Depth != 1 || result.Length != len("queued") {
		t.Fatalf("unexpected put result %#v", result)
	}

	buf := make([]byte, core.MaxMessageSize)
	got, err := svc.Get(ctx, core.NewGetRequest(buf))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(buf[:got.Length]) != "queued" {
		t.Fatalf("expected queued payload, got %q", buf[:got.Length])
	}
}

func TestConsumerRequeuesOutOfMemoryWithinPolicy(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, exhaustedAllocator{})
	delivery := &stubQueueDelivery{msg: ToExecutionMessage(PutJob{Payload: []byte("x"), IdempotencyKey: "idem-oom"})}
	consumer := NewConsumer(&stubQueueDequeuer{delivery: delivery}, svc, RetryPolicy{
		MaxAttempts:     2,
		MaxDelay:        time.Second,
		DeadLetterOnMax: true,
	}, WithRetryDelay(time.Minute))

	if _, err := consumer.ProcessNext(ctx); core.KindOf(err) != mailbox.KindOutOfMemory {
		t.Fatalf("expected out of memory, got %v", err)
	}
	if !delivery.nackOpts.Requeue || delivery.nackOpts.DeadLetter {
		t.Fatalf("expected first failure to requeue, got %#v", delivery.nackOpts)
	}
	if delivery.nackOpts.Delay != time.Second {
		t.Fatalf("expected retry delay to be bounded, got %s", delivery.nackOpts.Delay)
	}

	if _, err := consumer.ProcessNext(ctx); err == nil {
		t.Fatalf("expected second attempt to fail")
	}
	if delivery.nackOpts.Requeue || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %#v", delivery.nackOpts)
	}
}

func TestConsumerBoundsRetriesWithoutIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, exhaustedAllocator{})
	enqueuer := &stubQueueEnqueuer{}
	if err := NewEnqueuerAdapter(enqueuer).EnqueuePut(ctx, PutJob{Payload: []byte("x")}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if key, _ := enqueuer.last.Parameters[paramJobKey].(string); key == "" {
		t.Fatalf("expected a job key to be stamped at enqueue")
	}

	delivery := &stubQueueDelivery{msg: enqueuer.last}
	consumer := NewConsumer(&stubQueueDequeuer{delivery: delivery}, svc, RetryPolicy{
		MaxAttempts:     2,
		DeadLetterOnMax: true,
	})

	if _, err := consumer.ProcessNext(ctx); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	if !delivery.nackOpts.Requeue {
		t.Fatalf("expected first failure to requeue, got %#v", delivery.nackOpts)
	}
	if _, err := consumer.ProcessNext(ctx); err == nil {
		t.Fatalf("expected second attempt to fail")
	}
	if delivery.nackOpts.Requeue || !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %#v", delivery.nackOpts)
	}
}

func TestConsumerBoundsRetriesForForeignMessagesWithoutKeys(t *testing.T) {
	ctx := context.Background()
	msg := &job.ExecutionMessage{
		JobID:      JobIDPut,
		Parameters: map[string]any{paramPayload: "eA=="},
	}
	delivery := &stubQueueDelivery{msg: msg}
	consumer := NewConsumer(&stubQueueDequeuer{delivery: delivery}, newService(t, exhaustedAllocator{}), RetryPolicy{
		MaxAttempts:     2,
		DeadLetterOnMax: true,
	})

	for attempt := 1; attempt <= 2; attempt++ {
		if _, err := consumer.ProcessNext(ctx); err == nil {
			t.Fatalf("attempt %d: expected failure", attempt)
		}
	}
	if !delivery.nackOpts.DeadLetter {
		t.Fatalf("expected keyless message to be dead-lettered at max attempts, got %#v", delivery.nackOpts)
	}
}

func TestConsumerDeadLettersMalformedJobs(t *testing.T) {
	delivery := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: "other.job"}}
	consumer := NewConsumer(&stubQueueDequeuer{delivery: delivery}, newService(t, nil), RetryPolicy{})

	if _, err := consumer.ProcessNext(context.Background()); !errors.Is(err, mailbox.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if !delivery.nackOpts.DeadLetter || delivery.nackOpts.Requeue {
		t.Fatalf("expected malformed job to be dead-lettered, got %#v", delivery.nackOpts)
	}
	if delivery.acked {
		t.Fatalf("expected malformed job not to be acked")
	}
}

func TestNackRetryPolicyBoundaries(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, MaxDelay: 10 * time.Second}

	out := policy.NormalizeAttempt(queue.NackOptions{Delay: 30 * time.Second, Requeue: true, Reason: " transient "}, 1)
	if out.Delay != 10*time.Second || !out.Requeue || out.Reason != "transient" {
		t.Fatalf("unexpected normalized options %#v", out)
	}

	out = policy.NormalizeAttempt(queue.NackOptions{Requeue: true}, 3)
	if !out.Requeue {
		t.Fatalf("expected requeue fallback when dead-lettering is disabled")
	}

	out = policy.NormalizeAttempt(queue.NackOptions{Delay: -time.Second}, 0)
	if out.Delay != 0 || !out.Requeue {
		t.Fatalf("expected negative delay clamp and default requeue, got %#v", out)
	}
}

func TestLoggingHookReportsEvents(t *testing.T) {
	logger := &capturingLogger{}
	hook := NewLoggingHook(logger)

	hook.OnRetry(context.Background(), worker.Event{
		Message:  ToExecutionMessage(PutJob{Payload: []byte("x"), IdempotencyKey: "idem-hook"}),
		Attempt:  2,
		Delay:    5 * time.Second,
		Err:      errors.New("retry"),
		Duration: 250 * time.Millisecond,
	})

	if logger.lastWarn.msg != "put job retrying" {
		t.Fatalf("expected retry log, got %q", logger.lastWarn.msg)
	}
	fields := map[string]any{}
	for index := 0; index+1 < len(logger.lastWarn.args); index += 2 {
		fields[logger.lastWarn.args[index].(string)] = logger.lastWarn.args[index+1]
	}
	if fields["attempt"] != 2 || fields["delay_ms"] != int64(5000) || fields["duration_ms"] != int64(250) {
		t.Fatalf("unexpected event fields %#v", fields)
	}
	if fields["idempotency_key"] != "idem-hook" || fields["error"] != "retry" {
		t.Fatalf("expected message fields, got %#v", fields)
	}
}

func TestResolveLoggersBridgesToGoJob(t *testing.T) {
	providerLogger := &capturingLogger{}
	provider := &capturingProvider{logger: providerLogger}

	logger, jobProvider, jobLogger := ResolveLoggers(provider, nil)
	if logger != providerLogger {
		t.Fatalf("expected provider logger precedence")
	}
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job bridges")
	}
	jobProvider.GetLogger(loggerName).Warn("hello", "k", "v")
	if providerLogger.lastWarn.msg != "hello" {
		t.Fatalf("expected bridged message, got %q", providerLogger.lastWarn.msg)
	}

	if logger, _, _ := ResolveLoggers(nil, nil); logger == nil {
		t.Fatalf("expected nop logger fallback")
	}
}

func newService(t *testing.T, allocator mailbox.Allocator) *core.Service {
	t.Helper()
	opts := []core.Option{core.WithLogger(glog.Nop())}
	if allocator != nil {
		opts = append(opts, core.WithAllocator(allocator))
	}
	svc, err := core.NewService(core.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

type exhaustedAllocator struct{}

func (exhaustedAllocator) Allocate(mailbox.BlockKind, int) (mailbox.Block, error) {
	return nil, errors.New("exhausted")
}

type stubQueueEnqueuer struct {
	last *job.ExecutionMessage
}

func (s *stubQueueEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	s.last = msg
	return nil
}

type stubQueueDequeuer struct {
	delivery queue.Delivery
}

func (s *stubQueueDequeuer) Dequeue(context.Context) (queue.Delivery, error) {
	return s.delivery, nil
}

type stubQueueDelivery struct {
	msg      *job.ExecutionMessage
	acked    bool
	nackOpts queue.NackOptions
}

func (s *stubQueueDelivery) Message() *job.ExecutionMessage {
	return s.msg
}

func (s *stubQueueDelivery) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *stubQueueDelivery) Nack(_ context.Context, opts queue.NackOptions) error {
	s.nackOpts = opts
	return nil
}

type capturingProvider struct {
	logger *capturingLogger
}

func (p *capturingProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type logCall struct {
	msg  string
	args []any
}

type capturingLogger struct {
	lastWarn logCall
}

func (l *capturingLogger) Trace(string, ...any) {}
func (l *capturingLogger) Debug(string, ...any) {}
func (l *capturingLogger) Info(string, ...any)  {}
func (l *capturingLogger) Error(string, ...any) {}
func (l *capturingLogger) Fatal(string, ...any) {}

func (l *capturingLogger) Warn(msg string, args ...any) {
	l.lastWarn = logCall{msg: msg, args: append([]any(nil), args...)}
}

func (l *capturingLogger) WithContext(context.Context) glog.Logger {
	return l
}
