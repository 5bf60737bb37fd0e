package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[PutMessage]   = (*PutCommand)(nil)
	_ gocmd.Commander[GetMessage]   = (*GetCommand)(nil)
	_ gocmd.Commander[DrainMessage] = (*DrainCommand)(nil)
)
