// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/danielhkuo/ranked-pick/models"
)

// Closer runs scheduled maintenance: closing open elections whose closes_at
// has passed, plus any extra jobs added with Schedule.
type Closer struct {
	db   *sql.DB
	cron *cron.Cron
}

func NewCloser(db *sql.DB) *Closer {
	return &Closer{db: db, cron: cron.New()}
}

// Start schedules the close sweep with a standard cron spec or descriptor
// such as "@every 1m" and starts the scheduler.
func (c *Closer) Start(spec string) error {
	if err := c.Schedule(spec, func() {
		if _, err := c.RunOnce(time.Now()); err != nil {
			slog.Error("scheduled close failed", "error", err)
		}
	}); err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Schedule adds a job to the same scheduler.
func (c *Closer) Schedule(spec string, job func()) error {
	if _, err := c.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Stop stops the scheduler. The returned context is done once running jobs
// finish.
func (c *Closer) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce closes every open election whose closes_at is not after now and
// returns the IDs it closed. An election closed concurrently is skipped.
func (c *Closer) RunOnce(now time.Time) ([]string, error) {
	due, err := c.dueElections(now)
	if err != nil {
		return nil, err
	}

	var closed []string
	var errs []error
	for _, id := range due {
		_, err := CloseElection(c.db, id)
		switch {
		case err == nil:
			closed = append(closed, id)
		case errors.Is(err, ErrNotOpen):
		default:
			slog.Error("failed to close election", "error", err, "election_id", id)
			errs = append(errs, fmt.Errorf("election %s: %w", id, err))
		}
	}

	if len(closed) > 0 {
		slog.Info("scheduled close complete", "closed", len(closed))
	}
	return closed, errors.Join(errs...)
}

func (c *Closer) dueElections(now time.Time) ([]string, error) {
	rows, err := c.db.Query(`
		SELECT id, closes_at FROM election
		WHERE status = $1 AND closes_at IS NOT NULL
		ORDER BY closes_at
	`, models.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to query open elections: %w", err)
	}
	defer rows.Close()

	var due []string
	for rows.Next() {
		var id string
		var closesAt time.Time
		if err := rows.Scan(&id, &closesAt); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		if !closesAt.After(now) {
			due = append(due, id)
		}
	}
	return due, rows.Err()
}
