// Package core contains the mailbox service: the single process-wide owner of
// a mailbox.Mailbox, plus the configuration, logging, metrics and error
// envelope concerns around it. The mailbox package itself never logs or maps
// errors; everything observable happens here.
package core
