package gojob

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-msgbox/core"
	"github.com/goliatone/go-msgbox/mailbox"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDPut      = "msgbox.put"
	ScriptPathPut = "msgbox.put"

	paramPayload = "payload"
	paramJobKey  = "job_key"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// PutJob is a deferred put carried through a go-job queue. JobKey identifies one enqueued job across redeliveries. It is stamped at
// encode time when empty.
type PutJob struct {
	Payload        []byte
	IdempotencyKey string
	JobKey         string
}

// attemptKey is never empty: messages enqueued elsewhere without a job key
// fall back to the idempotency key, then to the encoded payload.
func (j PutJob) attemptKey() string {
	switch {
	case j.JobKey != "":
		return j.JobKey
	case j.IdempotencyKey != "":
		return "idem:" + j.IdempotencyKey
	default:
		return "payload:" + base64.StdEncoding.EncodeToString(j.Payload)
	}
}

// ToExecutionMessage encodes job as a go-job message. The payload travels
// base64 encoded so JSON backed queues keep arbitrary bytes intact.
func ToExecutionMessage(j PutJob) *job.ExecutionMessage {
	key := strings.TrimSpace(j.JobKey)
	if key == "" {
		key = uuid.NewString()
	}
	return &job.ExecutionMessage{
		JobID:      JobIDPut,
		ScriptPath: ScriptPathPut,
		Parameters: map[string]any{
			paramPayload: base64.StdEncoding.EncodeToString(j.Payload),
			paramJobKey:  key,
		},
		IdempotencyKey: strings.TrimSpace(j.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy("drop"),
	}
}

// FromExecutionMessage decodes a put job. Messages for other job IDs or with
// a malformed payload are reported as invalid arguments.
func FromExecutionMessage(msg *job.ExecutionMessage) (PutJob, error) {
	if msg == nil {
		return PutJob{}, fmt.Errorf("%w: execution message is required", mailbox.ErrInvalidArgument)
	}
	if strings.TrimSpace(msg.JobID) != JobIDPut {
		return PutJob{}, fmt.Errorf("%w: unexpected job id %q", mailbox.ErrInvalidArgument, msg.JobID)
	}
	encoded, ok := msg.Parameters[paramPayload].(string)
	if !ok {
		return PutJob{}, fmt.Errorf("%w: payload parameter is missing", mailbox.ErrInvalidArgument)
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return PutJob{}, fmt.Errorf("%w: payload parameter: %w", mailbox.ErrInvalidArgument, err)
	}
	jobKey, _ := msg.Parameters[paramJobKey].(string)
	return PutJob{
		Payload:        payload,
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		JobKey:         strings.TrimSpace(jobKey),
	}, nil
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

// EnqueuePut defers a put. Oversized payloads are rejected here instead of
// being dead-lettered by the consumer later.
func (a *EnqueuerAdapter) EnqueuePut(ctx context.Context, j PutJob) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if j.Payload == nil || len(j.Payload) > core.MaxMessageSize {
		return mailbox.ErrInvalidArgument
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(j))
}

// Putter is the slice of the mailbox service a consumer needs.
type Putter interface {
	Put(ctx context.Context, req core.PutRequest) (core.PutResult, error)
}

// Consumer dequeues put jobs and applies them to the mailbox.
type Consumer struct {
	dequeuer queue.Dequeuer
	service  Putter
	policy   RetryPolicy
	logger   glog.Logger
	retry    time.Duration

	mu       sync.Mutex
	attempts map[string]int
}

type ConsumerOption func(*Consumer)

func WithConsumerLogger(logger glog.Logger) ConsumerOption {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryDelay sets the delay requested when a put fails transiently.
func WithRetryDelay(delay time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if delay >= 0 {
			c.retry = delay
		}
	}
}

func NewConsumer(dequeuer queue.Dequeuer, service Putter, policy RetryPolicy, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		dequeuer: dequeuer,
		service:  service,
		policy:   policy,
		logger:   glog.Nop(),
		retry:    time.Second,
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// ProcessNext handles a single delivery. Out of memory failures are requeued
// with a bounded delay; every other failure is dead-lettered because retrying
// the same payload cannot succeed.
func (c *Consumer) ProcessNext(ctx context.Context) (core.PutResult, error) {
	if c == nil || c.dequeuer == nil || c.service == nil {
		return core.PutResult{}, fmt.Errorf("gojob: consumer is not configured")
	}
	delivery, err := c.dequeuer.Dequeue(ctx)
	if err != nil {
		return core.PutResult{}, err
	}
	if delivery == nil {
		return core.PutResult{}, fmt.Errorf("gojob: dequeuer returned no delivery")
	}

	msg := delivery.Message()
	putJob, err := FromExecutionMessage(msg)
	if err != nil {
		c.logger.Warn("dropping malformed put job", "error", err)
		return core.PutResult{}, c.nack(ctx, delivery, "", err, queue.NackOptions{DeadLetter: true, Reason: "malformed"})
	}

	key := putJob.attemptKey()
	result, err := c.service.Put(ctx, core.NewPutRequest(putJob.Payload))
	if err == nil {
		c.forget(key)
		if ackErr := delivery.Ack(ctx); ackErr != nil {
			return result, ackErr
		}
		c.logger.Debug("put job applied", "message_id", result.MessageID, "idempotency_key", putJob.IdempotencyKey)
		return result, nil
	}

	opts := queue.NackOptions{DeadLetter: true, Reason: core.KindOf(err).String()}
	if core.KindOf(err) == mailbox.KindOutOfMemory {
		opts = queue.NackOptions{Requeue: true, Delay: c.retry, Reason: mailbox.KindOutOfMemory.String()}
	}
	return result, c.nack(ctx, delivery, key, err, opts)
}

func (c *Consumer) nack(ctx context.Context, delivery queue.Delivery, key string, cause error, opts queue.NackOptions) error {
	normalized := c.policy.NormalizeAttempt(opts, c.attempt(key))
	if normalized.DeadLetter {
		c.forget(key)
	}
	c.logger.Warn("put job rejected",
		"attempt_key", key,
		"requeue", normalized.Requeue,
		"dead_letter", normalized.DeadLetter,
		"error", cause,
	)
	if err := delivery.Nack(ctx, normalized); err != nil {
		return err
	}
	return cause
}

func (c *Consumer) attempt(key string) int {
	if key == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts[key]++
	return c.attempts[key]
}

func (c *Consumer) forget(key string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	delete(c.attempts, key)
	c.mu.Unlock()
}

// LoggingHook reports go-job worker lifecycle events through a glog logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	if logger == nil {
		logger = glog.Nop()
	}
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) OnStart(_ context.Context, event worker.Event) {
	h.logger.Debug("put job started", eventFields(event)...)
}

func (h *LoggingHook) OnSuccess(_ context.Context, event worker.Event) {
	h.logger.Debug("put job succeeded", eventFields(event)...)
}

func (h *LoggingHook) OnFailure(_ context.Context, event worker.Event) {
	h.logger.Error("put job failed", eventFields(event)...)
}

func (h *LoggingHook) OnRetry(_ context.Context, event worker.Event) {
	h.logger.Warn("put job retrying", eventFields(event)...)
}

func eventFields(event worker.Event) []any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := []any{
		"attempt", event.Attempt,
		"delay_ms", event.Delay.Milliseconds(),
		"duration_ms", event.Duration.Milliseconds(),
	}
	if message != nil {
		fields = append(fields, "job_id", message.JobID, "idempotency_key", message.IdempotencyKey)
	}
	if event.Err != nil {
		fields = append(fields, "error", event.Err.Error())
	}
	return fields
}

var _ worker.Hook = (*LoggingHook)(nil)
