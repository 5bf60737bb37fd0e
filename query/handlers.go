package query

import (
	"context"

	"github.com/goliatone/go-msgbox/core"
)

type StatsReader interface {
	Stats(ctx context.Context) (core.Stats, error)
}

type StatsQuery struct {
	reader StatsReader
}

func NewStatsQuery(reader StatsReader) *StatsQuery {
	return &StatsQuery{reader: reader}
}

func (q *StatsQuery) Query(ctx context.Context, _ StatsMessage) (core.Stats, error) {
	if q == nil || q.reader == nil {
		return core.Stats{}, queryDependencyError("query: stats reader is required")
	}
	return q.reader.Stats(ctx)
}
