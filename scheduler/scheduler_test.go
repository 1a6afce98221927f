package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busnode/store"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNextRunOneTime(t *testing.T) {
	job := store.Job{Name: "once", JobType: store.JobOneTime, StartDate: base}

	next, ok, err := NextRun(job, base.Add(-time.Hour), 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base, next)

	_, ok, err = NextRun(job, base, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNextRunInterval(t *testing.T) {
	job := store.Job{Name: "every-90s", JobType: store.JobIntervalBased, StartDate: base, Minutes: 1, Seconds: 30}

	tests := []struct {
		after time.Time
		want  time.Time
	}{
		{base.Add(-time.Minute), base},
		{base, base.Add(90 * time.Second)},
		{base.Add(100 * time.Second), base.Add(180 * time.Second)},
		{base.Add(180 * time.Second), base.Add(270 * time.Second)},
	}
	for _, tc := range tests {
		next, ok, err := NextRun(job, tc.after, 0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, tc.want, next, "after %v", tc.after)
	}
}

func TestNextRunIntervalRepeats(t *testing.T) {
	job := store.Job{Name: "thrice", JobType: store.JobIntervalBased, StartDate: base, Seconds: 10, Repeats: 3}
	_, ok, _ := NextRun(job, base, 2)
	assert.True(t, ok)
	_, ok, _ = NextRun(job, base, 3)
	assert.False(t, ok)
}

func TestNextRunIntervalRejectsZero(t *testing.T) {
	_, _, err := NextRun(store.Job{Name: "zero", JobType: store.JobIntervalBased, StartDate: base}, base, 0)
	assert.Error(t, err)
}

func TestNextRunCron(t *testing.T) {
	job := store.Job{Name: "hourly", JobType: store.JobCronStyle, StartDate: base, CronDefinition: "0 * * * *"}

	next, ok, err := NextRun(job, base.Add(10*time.Minute), 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, base.Add(time.Hour), next)

	// Before the start date the first run is the start itself when it matches.
	next, _, err = NextRun(job, base.Add(-24*time.Hour), 0)
	require.NoError(t, err)
	assert.Equal(t, base, next)
}

func TestNextRunBadCronAndType(t *testing.T) {
	_, _, err := NextRun(store.Job{Name: "bad", JobType: store.JobCronStyle, CronDefinition: "not a cron"}, base, 0)
	assert.Error(t, err)
	_, _, err = NextRun(store.Job{Name: "odd", JobType: "weekly"}, base, 0)
	assert.Error(t, err)
}

func TestCreateEditDelete(t *testing.T) {
	s := New(func(context.Context, store.Job) error { return nil }, nil, nil)
	s.now = func() time.Time { return base }

	job := store.Job{Name: "b", IsActive: true, JobType: store.JobOneTime, StartDate: base.Add(time.Hour)}
	require.NoError(t, s.CreateEdit(ActionCreate, job))
	assert.Error(t, s.CreateEdit(ActionCreate, job))
	assert.Error(t, s.CreateEdit(ActionEdit, store.Job{Name: "missing", JobType: store.JobOneTime}))
	assert.Error(t, s.CreateEdit("upsert", job))

	require.NoError(t, s.CreateEdit(ActionCreate, store.Job{Name: "a", IsActive: false, JobType: store.JobOneTime}))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Job.Name)
	assert.False(t, jobs[0].Pending)
	assert.True(t, jobs[1].Pending)
	assert.Equal(t, base.Add(time.Hour), jobs[1].NextRun)

	job.StartDate = base.Add(2 * time.Hour)
	require.NoError(t, s.CreateEdit(ActionEdit, job))
	assert.Equal(t, base.Add(2*time.Hour), s.Jobs()[1].NextRun)

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Len(t, s.Jobs(), 1)
}

func TestLoopFiresDueJobOnce(t *testing.T) {
	fired := make(chan store.Job, 4)
	s := New(func(_ context.Context, job store.Job) error {
		fired <- job
		return nil
	}, nil, nil)

	require.NoError(t, s.CreateEdit(ActionCreate, store.Job{
		Name: "now", IsActive: true, JobType: store.JobOneTime, StartDate: time.Now().Add(-time.Second),
	}))
	s.Start(context.Background())
	defer s.Stop()

	select {
	case job := <-fired:
		assert.Equal(t, "now", job.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}

	select {
	case <-fired:
		t.Fatal("one-time job fired twice")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 1, s.Jobs()[0].Fired)
	assert.False(t, s.Jobs()[0].Pending)
}

func TestLoopPicksUpJobsAddedAfterStart(t *testing.T) {
	fired := make(chan string, 1)
	s := New(func(_ context.Context, job store.Job) error {
		fired <- job.Name
		return errors.New("broker unavailable")
	}, nil, nil)
	s.Start(context.Background())
	defer s.Stop()

	require.NoError(t, s.CreateEdit(ActionCreate, store.Job{
		Name: "late", IsActive: true, JobType: store.JobOneTime, StartDate: time.Now(),
	}))

	select {
	case name := <-fired:
		assert.Equal(t, "late", name)
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := New(nil, nil, nil)
	s.Stop()
}
