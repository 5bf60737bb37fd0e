package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-msgbox/core"
)

var _ gocmd.Querier[StatsMessage, core.Stats] = (*StatsQuery)(nil)
