package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

const logTimeFormat = "15:04:05.00"

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level,
	})
}

// progress times the sequential steps of a command. Each call to done
// logs the time since the previous one.
type progress struct {
	logger *log.Logger
	now    func() time.Time
	last   time.Time
}

func newProgress(l *log.Logger) *progress {
	p := &progress{logger: l, now: time.Now}
	p.last = p.now()
	return p
}

// done logs msg with the step duration, e.g. "Loaded 5120 nodes (41ms)".
func (p *progress) done(msg string) {
	t := p.now()
	p.logger.Infof("%s (%s)", msg, t.Sub(p.last).Round(time.Millisecond))
	p.last = t
}
