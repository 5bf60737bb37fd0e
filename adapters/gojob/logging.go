package gojob

import (
	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

const loggerName = "msgbox.jobs"

// ResolveLoggers picks the queue logger with provider > logger > nop
// precedence and returns the same logger bridged to go-job's contracts.
func ResolveLoggers(provider glog.LoggerProvider, logger glog.Logger) (glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := glog.Resolve(loggerName, provider, logger)
	var jobProvider job.LoggerProvider
	if resolvedProvider != nil {
		jobProvider = job.GoLoggerProvider(resolvedProvider)
	}
	var jobLogger job.Logger
	if resolvedLogger != nil {
		jobLogger = job.GoLogger(resolvedLogger)
	}
	return resolvedLogger, jobProvider, jobLogger
}
