package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	defaultJobLimit = 50
	maxJobLimit     = 500
)

type SettingsOperations struct {
	db *sql.DB
}

// GetSetting returns sql.ErrNoRows unwrapped when key was never set.
func (o *SettingsOperations) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{Key: key}
	err := o.db.QueryRowContext(ctx, GetSetting, key).Scan(&s.Value, &s.Encrypted, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return s, nil
}

func (o *SettingsOperations) SetSetting(ctx context.Context, key, value string, encrypted bool) error {
	_, err := o.db.ExecContext(ctx, SetSetting, key, value, encrypted)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (o *SettingsOperations) DeleteSetting(ctx context.Context, key string) error {
	_, err := o.db.ExecContext(ctx, DeleteSetting, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

type JobOperations struct {
	db *sql.DB
}

// RecordJob stores a finished job and bumps the counter for the day it
// finished on, in one transaction.
func (o *JobOperations) RecordJob(ctx context.Context, j *PrintJob) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, InsertJob,
		j.ID, j.OrderID, j.Kind, j.Transport, j.Status,
		j.RetryCount, j.ErrorMessage, j.CreatedAt.UTC(), j.CompletedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	counter := IncrementFailedCounter
	if j.Status == "completed" {
		counter = IncrementCompletedCounter
	}
	if _, err := tx.ExecContext(ctx, counter, j.CompletedAt.UTC().Format(dateLayout)); err != nil {
		return fmt.Errorf("failed to increment daily counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job: %w", err)
	}
	return nil
}

func (o *JobOperations) GetJobByID(ctx context.Context, id string) (*PrintJob, error) {
	j := &PrintJob{}
	err := o.db.QueryRowContext(ctx, GetJobByID, id).Scan(
		&j.ID, &j.OrderID, &j.Kind, &j.Transport, &j.Status,
		&j.RetryCount, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (o *JobOperations) ListJobs(ctx context.Context, filter JobFilter) ([]*PrintJob, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.OrderID != "" {
		conditions = append(conditions, "order_id = ?")
		args = append(args, filter.OrderID)
	}
	if filter.From != nil {
		conditions = append(conditions, "completed_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, "completed_at <= ?")
		args = append(args, filter.To.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultJobLimit
	}
	if limit > maxJobLimit {
		limit = maxJobLimit
	}

	query := ListJobsBase
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY completed_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := o.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*PrintJob{}
	for rows.Next() {
		j := &PrintJob{}
		if err := rows.Scan(
			&j.ID, &j.OrderID, &j.Kind, &j.Transport, &j.Status,
			&j.RetryCount, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// PurgeBefore deletes history rows that finished before cutoff.
func (o *JobOperations) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := o.db.ExecContext(ctx, DeleteJobsBefore, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}
	return result.RowsAffected()
}

type CounterOperations struct {
	db *sql.DB
}

func (o *CounterOperations) GetCounters(ctx context.Context, from, to time.Time) ([]*PrintCounter, error) {
	rows, err := o.db.QueryContext(ctx, GetPrintCountersByDateRange, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get counters: %w", err)
	}
	defer rows.Close()

	counters := []*PrintCounter{}
	for rows.Next() {
		c := &PrintCounter{}
		var dateStr string
		if err := rows.Scan(&dateStr, &c.Completed, &c.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		c.Date, _ = time.Parse(dateLayout, dateStr)
		counters = append(counters, c)
	}
	return counters, rows.Err()
}
