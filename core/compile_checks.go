package core

import (
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-msgbox/mailbox"
)

var (
	_ MailboxService    = (*Service)(nil)
	_ AllocationCounter = (*mailbox.HeapAllocator)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
