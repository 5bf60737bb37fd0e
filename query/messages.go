package query

const TypeStats = "msgbox.query.stats"

type StatsMessage struct{}

func (StatsMessage) Type() string { return TypeStats }
