package core

import (
	"context"
	"maps"

	"github.com/goliatone/go-msgbox/mailbox"
)

const (
	metricPrefix    = "msgbox."
	metricTotal     = ".total"
	metricDuration  = ".duration_ms"
	metricDiscarded = metricPrefix + "messages.discarded"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func operationMetric(operation string, suffix string) string {
	return metricPrefix + operation + suffix
}

// discardReason names the get failure that consumed a message, or "" when
// the failure left the mailbox untouched.
func discardReason(kind mailbox.Kind) string {
	if !kind.Discards() {
		return ""
	}
	return kind.String()
}

func cloneTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

var _ MetricsRecorder = NopMetricsRecorder{}
