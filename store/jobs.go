package store

import (
	"context"
	"fmt"
	"time"
)

// Job types understood by the scheduler.
const (
	JobOneTime       = "one_time"
	JobIntervalBased = "interval_based"
	JobCronStyle     = "cron_style"
)

type Job struct {
	ID             int64
	Name           string
	IsActive       bool
	JobType        string
	StartDate      time.Time
	Extra          string
	Service        string
	Weeks          int
	Days           int
	Hours          int
	Minutes        int
	Seconds        int
	Repeats        int
	CronDefinition string
}

// Interval is the period of an interval-based job.
func (j Job) Interval() time.Duration {
	return time.Duration(j.Weeks)*7*24*time.Hour +
		time.Duration(j.Days)*24*time.Hour +
		time.Duration(j.Hours)*time.Hour +
		time.Duration(j.Minutes)*time.Minute +
		time.Duration(j.Seconds)*time.Second
}

func (db *DB) GetJobList(ctx context.Context, clusterID int64) ([]Job, error) {
	rows, err := db.QueryContext(ctx, db.Q(`
		SELECT id, name, is_active, job_type, start_date, extra, service,
		       weeks, days, hours, minutes, seconds, repeats, cron_definition
		FROM job WHERE cluster_id = ? ORDER BY name`), clusterID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var startDate any
		if err := rows.Scan(&j.ID, &j.Name, &j.IsActive, &j.JobType, &startDate, &j.Extra, &j.Service,
			&j.Weeks, &j.Days, &j.Hours, &j.Minutes, &j.Seconds, &j.Repeats, &j.CronDefinition); err != nil {
			return nil, err
		}
		j.StartDate = parseTime(startDate)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (db *DB) CreateJob(ctx context.Context, clusterID int64, j *Job) error {
	id, err := db.insertReturningID(ctx, `
		INSERT INTO job (cluster_id, name, is_active, job_type, start_date, extra, service,
		    weeks, days, hours, minutes, seconds, repeats, cron_definition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clusterID, j.Name, j.IsActive, j.JobType, formatTime(j.StartDate), j.Extra, j.Service,
		j.Weeks, j.Days, j.Hours, j.Minutes, j.Seconds, j.Repeats, j.CronDefinition)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	j.ID = id
	return nil
}
