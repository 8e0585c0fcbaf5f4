package strategy

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// NewLogger returns a logfmt logger writing to w. Debug entries are dropped unless verbose.
func NewLogger(w io.Writer, verbose bool) log.Logger {
	klog := log.NewLogfmtLogger(log.NewSyncWriter(w))
	klog = log.With(klog, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(klog, level.AllowDebug())
	}
	return level.NewFilter(klog, level.AllowInfo())
}
