package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/kbukum/colpipe/logger"
	"github.com/kbukum/colpipe/observability"
)

// Stats summarises a run.
type Stats struct {
	// LinesSplit counts input lines whose field was handed to the subprocess.
	LinesSplit int64
	// LinesMerged counts output lines written.
	LinesMerged int64
	// QueueHighWater is the largest number of remainders waiting at once.
	QueueHighWater int64
	Duration       time.Duration
}

// Fields returns the stats as structured log fields.
func (s Stats) Fields() map[string]interface{} {
	return logger.MergeWithDuration(logger.Fields(
		"lines_split", s.LinesSplit,
		"lines_merged", s.LinesMerged,
		"queue_high_water", s.QueueHighWater,
	), s.Duration)
}

func (s Stats) summary(exitCode int, code string) observability.RunSummary {
	return observability.RunSummary{
		LinesSplit:     s.LinesSplit,
		LinesMerged:    s.LinesMerged,
		QueueHighWater: s.QueueHighWater,
		ExitCode:       exitCode,
		ErrorCode:      code,
	}
}

// counters are updated by the flows while a run is in progress.
type counters struct {
	split  atomic.Int64
	merged atomic.Int64
}
