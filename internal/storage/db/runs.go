package db

import (
	"fmt"
	"time"
)

// Run is one recorded restaround invocation
type Run struct {
	ID         int64
	Profile    string
	Command    string
	Args       string // the composed command line, shell quoted
	DryRun     bool
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RecordRun appends one invocation to the history
func (d *DB) RecordRun(r *Run) error {
	result, err := d.Exec(`
        INSERT INTO runs (profile, command, args, dry_run, exit_code, started_at, finished_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, r.Profile, r.Command, r.Args, r.DryRun, r.ExitCode, r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

// ListRuns returns the most recent invocations, newest first.
// A limit of 0 returns everything.
func (d *DB) ListRuns(limit int) ([]Run, error) {
	query := `
        SELECT id, profile, command, args, dry_run, exit_code, started_at, finished_at
        FROM runs ORDER BY id DESC
    `
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := d.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Profile, &r.Command, &r.Args,
			&r.DryRun, &r.ExitCode, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PruneRuns deletes history entries older than the given age
func (d *DB) PruneRuns(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result, err := d.Exec("DELETE FROM runs WHERE finished_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
