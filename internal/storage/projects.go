package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetProject loads the saved command list of root. It returns
// ErrProjectNotFound when nothing has been saved for root yet.
func (s *SQLiteStore) GetProject(ctx context.Context, root string) (*Project, error) {
	if root == "" {
		return nil, errors.New("root is required")
	}

	p := &Project{Root: root}
	err := s.db.QueryRowContext(ctx, `
		SELECT default_index, updated_at_unix_ms FROM projects WHERE root = ?
	`, root).Scan(&p.DefaultIndex, &p.UpdatedAtUnixMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT command FROM project_commands WHERE root = ? ORDER BY position
	`, root)
	if err != nil {
		return nil, fmt.Errorf("failed to query project commands: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cmd string
		if err := rows.Scan(&cmd); err != nil {
			return nil, fmt.Errorf("failed to scan project command: %w", err)
		}
		p.Commands = append(p.Commands, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project commands: %w", err)
	}

	if p.DefaultIndex >= len(p.Commands) {
		p.DefaultIndex = -1
	}
	return p, nil
}

// SaveProject replaces the saved state of p.Root with p. UpdatedAtUnixMs
// is set to the current time when zero.
func (s *SQLiteStore) SaveProject(ctx context.Context, p *Project) error {
	if p == nil {
		return errors.New("project cannot be nil")
	}
	if p.Root == "" {
		return errors.New("root is required")
	}
	if p.DefaultIndex < -1 || p.DefaultIndex >= len(p.Commands) {
		return fmt.Errorf("default index %d out of range for %d commands", p.DefaultIndex, len(p.Commands))
	}
	if p.UpdatedAtUnixMs == 0 {
		p.UpdatedAtUnixMs = time.Now().UnixMilli()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (root, default_index, updated_at_unix_ms)
		VALUES (?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET
			default_index = excluded.default_index,
			updated_at_unix_ms = excluded.updated_at_unix_ms
	`, p.Root, p.DefaultIndex, p.UpdatedAtUnixMs)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_commands WHERE root = ?`, p.Root); err != nil {
		return fmt.Errorf("failed to clear project commands: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_commands (root, position, command) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, cmd := range p.Commands {
		if _, err := stmt.ExecContext(ctx, p.Root, i, cmd); err != nil {
			return fmt.Errorf("failed to save project command: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListProjects returns every saved project, most recently updated first.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT root FROM projects ORDER BY updated_at_unix_ms DESC, root
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		roots = append(roots, root)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	// The pool holds one connection, so commands are read after the
	// outer rows are closed.
	projects := make([]Project, 0, len(roots))
	for _, root := range roots {
		p, err := s.GetProject(ctx, root)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// DeleteProject forgets root and its run log. Deleting an unknown project
// is not an error.
func (s *SQLiteStore) DeleteProject(ctx context.Context, root string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM project_commands WHERE root = ?`,
		`DELETE FROM project_runs WHERE root = ?`,
		`DELETE FROM projects WHERE root = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, root); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
	}
	return tx.Commit()
}

// RecordRun appends run to the run log and sets run.ID.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if run.Root == "" {
		return errors.New("root is required")
	}
	if run.Command == "" {
		return errors.New("command is required")
	}
	if run.RanAtUnixMs == 0 {
		run.RanAtUnixMs = time.Now().UnixMilli()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO project_runs (root, command, exit_code, duration_ms, ran_at_unix_ms)
		VALUES (?, ?, ?, ?, ?)
	`, run.Root, run.Command, run.ExitCode, run.DurationMs, run.RanAtUnixMs)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id
	return nil
}

// RecentRuns returns up to limit runs of root, newest first. A limit of
// zero or less means 20.
func (s *SQLiteStore) RecentRuns(ctx context.Context, root string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, command, exit_code, duration_ms, ran_at_unix_ms
		FROM project_runs
		WHERE root = ?
		ORDER BY ran_at_unix_ms DESC, id DESC
		LIMIT ?
	`, root, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Root, &r.Command, &r.ExitCode, &r.DurationMs, &r.RanAtUnixMs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
