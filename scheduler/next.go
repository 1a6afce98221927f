package scheduler

import (
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"

	"busnode/store"
)

// NextRun returns when job should next fire, given that it last fired at or
// before after and has fired count times. ok is false when it never fires
// again.
func NextRun(job store.Job, after time.Time, count int) (next time.Time, ok bool, err error) {
	switch job.JobType {
	case store.JobOneTime:
		if count > 0 {
			return time.Time{}, false, nil
		}
		return job.StartDate, true, nil

	case store.JobIntervalBased:
		interval := job.Interval()
		if interval <= 0 {
			return time.Time{}, false, fmt.Errorf("job %s: interval must be positive", job.Name)
		}
		if job.Repeats > 0 && count >= job.Repeats {
			return time.Time{}, false, nil
		}
		if after.Before(job.StartDate) {
			return job.StartDate, true, nil
		}
		k := after.Sub(job.StartDate)/interval + 1
		return job.StartDate.Add(k * interval), true, nil

	case store.JobCronStyle:
		expr, err := cronexpr.Parse(job.CronDefinition)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("job %s: %w", job.Name, err)
		}
		from := after
		if from.Before(job.StartDate) {
			from = job.StartDate.Add(-time.Second)
		}
		next := expr.Next(from)
		if next.IsZero() {
			return time.Time{}, false, nil
		}
		return next, true, nil

	default:
		return time.Time{}, false, fmt.Errorf("job %s: unknown job type %q", job.Name, job.JobType)
	}
}
