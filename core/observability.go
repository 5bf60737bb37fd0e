package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-msgbox/mailbox"
)

type logLevel uint8

const (
	levelDebug logLevel = iota
	levelInfo
	levelError
)

// operationEvent is the record emitted once per service call.
type operationEvent struct {
	operation string
	status    string
	elapsed   time.Duration
	fields    map[string]any
	tags      map[string]string
	err       error
}

func newOperationEvent(operation string, startedAt time.Time, err error, fields map[string]any) operationEvent {
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	event := operationEvent{
		operation: operation,
		status:    status,
		elapsed:   time.Since(startedAt),
		fields:    cloneFields(fields),
		tags:      map[string]string{"operation": operation, "status": status},
		err:       err,
	}
	event.fields["event_type"] = operation
	event.fields["status"] = status
	event.fields["duration_ms"] = event.elapsed.Milliseconds()
	if err == nil {
		return event
	}
	event.fields["error"] = err.Error()
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		event.fields["error_text_code"] = richErr.TextCode
		event.fields["error_category"] = string(richErr.Category)
		event.tags["error_text_code"] = richErr.TextCode
	}
	return event
}

// level puts successes at info (debug when quiet) and an empty mailbox at
// debug, since polling an empty box is routine.
func (e operationEvent) level(quietSuccess bool) (logLevel, string) {
	switch {
	case e.err == nil && quietSuccess:
		return levelDebug, e.operation + " succeeded"
	case e.err == nil:
		return levelInfo, e.operation + " succeeded"
	case KindOf(e.err) == mailbox.KindEmpty:
		return levelDebug, e.operation + " found mailbox empty"
	default:
		return levelError, e.operation + " failed"
	}
}

func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	event := newOperationEvent(operation, startedAt, err, fields)

	s.recordCounter(ctx, operationMetric(event.operation, metricTotal), 1, event.tags)
	s.recordHistogram(ctx, operationMetric(event.operation, metricDuration), float64(event.elapsed.Milliseconds()), event.tags)

	level, message := event.level(s.config.Observability.QuietSuccess)
	s.log(ctx, level, message, event.fields)
}

func (s *Service) log(ctx context.Context, level logLevel, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch level {
	case levelError:
		logger.Error(message, args...)
	case levelDebug:
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, name, value, cloneTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, name, value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

// flattenFields renders fields as sorted key/value pairs.
func flattenFields(fields map[string]any) []any {
	args := make([]any, 0, len(fields)*2)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(operation)))
}
