package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// maxLogError is the longest error message kept in a run's log trail.
const maxLogError = 200

// runLog owns the ScrapeRun of one orchestrator invocation.
type runLog struct {
	run    *types.ScrapeRun
	failed bool
}

func beginRun(now time.Time) *runLog {
	return &runLog{run: &types.ScrapeRun{
		ID:        uuid.NewString(),
		StartTime: now.UTC(),
		Status:    types.RunStarted,
	}}
}

func (l *runLog) note(format string, args ...any) {
	l.run.Log = append(l.run.Log, fmt.Sprintf(format, args...))
}

// progress enters in_progress with the source count fixed.
func (l *runLog) progress(total int) {
	l.run.Status = types.RunInProgress
	l.run.Total = total
}

func (l *runLog) succeed(name string, found int) {
	l.run.Successful++
	l.note("✓ %s: Found %d items", name, found)
}

func (l *runLog) fail(serr *types.SourceError) {
	l.run.Errors++
	l.note("✗ %s: Error - %s", serr.Source, serr.Truncated(maxLogError))
}

// abort records a failure that is not attributable to a single source.
func (l *runLog) abort(what string, err error) {
	l.failed = true
	l.note("✗ %s: Error - %s", what, types.Truncate(err.Error(), maxLogError))
}

// finish is the only writer of EndTime. Later calls are ignored.
func (l *runLog) finish(now time.Time) {
	if l.run.Status.Terminal() {
		return
	}
	end := now.UTC()
	l.run.EndTime = &end
	if l.run.Errors > 0 || l.failed {
		l.run.Status = types.RunCompletedWithErrors
	} else {
		l.run.Status = types.RunCompleted
	}
}

func (l *runLog) snapshot() *types.ScrapeRun {
	return l.run.Clone()
}
