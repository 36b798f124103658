package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	auraerrors "aura/internal/errors"
	"aura/internal/workflow"
)

// WorkflowStore implements workflow.Store on SQLite.
type WorkflowStore struct {
	db *DB
}

// NewWorkflowStore creates a workflow store.
func NewWorkflowStore(db *DB) *WorkflowStore {
	return &WorkflowStore{db: db}
}

// Create inserts a workflow and any steps it already carries.
func (s *WorkflowStore) Create(ctx context.Context, wf *workflow.Workflow) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workflows (id, title, description, status, issue_ref, issue_url, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, wf.ID, wf.Title, wf.Description, string(wf.Status), wf.IssueRef, wf.IssueURL,
			formatTime(wf.CreatedAt), formatTime(wf.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert workflow: %w", err)
		}
		for i := range wf.Steps {
			if err := insertStep(ctx, tx, &wf.Steps[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get loads a workflow and its steps.
func (s *WorkflowStore) Get(ctx context.Context, id string) (*workflow.Workflow, error) {
	row := s.db.conn.QueryRowContext(ctx, `
		SELECT id, title, description, status, issue_ref, issue_url, created_at, updated_at
		FROM workflows WHERE id = ?
	`, id)
	wf, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, auraerrors.NewNotFoundError("Workflow", id)
	}
	if err != nil {
		return nil, err
	}
	steps, err := s.steps(ctx, id)
	if err != nil {
		return nil, err
	}
	wf.Steps = steps
	return wf, nil
}

// List returns workflows newest first, each with its steps.
func (s *WorkflowStore) List(ctx context.Context, filter workflow.ListFilter) ([]*workflow.Workflow, error) {
	query := `SELECT id, title, description, status, issue_ref, issue_url, created_at, updated_at FROM workflows`
	var args []interface{}
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*workflow.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, wf)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, wf := range out {
		if wf.Steps, err = s.steps(ctx, wf.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// AddStep inserts a step.
func (s *WorkflowStore) AddStep(ctx context.Context, step *workflow.Step) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM workflows WHERE id = ?`, step.WorkflowID).Scan(&exists)
		if err == sql.ErrNoRows {
			return auraerrors.NewNotFoundError("Workflow", step.WorkflowID)
		}
		if err != nil {
			return err
		}
		return insertStep(ctx, tx, step)
	})
}

// UpdateStep writes a step's status, result and timestamp.
func (s *WorkflowStore) UpdateStep(ctx context.Context, step *workflow.Step) error {
	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE workflow_steps SET status = ?, result = ?, updated_at = ?
		WHERE id = ? AND workflow_id = ?
	`, string(step.Status), step.Result, formatTime(step.UpdatedAt), step.ID, step.WorkflowID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auraerrors.NewNotFoundError("Step", step.ID)
	}
	return nil
}

// SetStatus updates a workflow's derived status.
func (s *WorkflowStore) SetStatus(ctx context.Context, workflowID string, status workflow.Status, at time.Time) error {
	res, err := s.db.conn.ExecContext(ctx, `
		UPDATE workflows SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(at), workflowID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auraerrors.NewNotFoundError("Workflow", workflowID)
	}
	return nil
}

func (s *WorkflowStore) steps(ctx context.Context, workflowID string) ([]workflow.Step, error) {
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, workflow_id, position, title, description, status, result, created_at, updated_at
		FROM workflow_steps WHERE workflow_id = ? ORDER BY position
	`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps := []workflow.Step{}
	for rows.Next() {
		var st workflow.Step
		var status, created, updated string
		if err := rows.Scan(&st.ID, &st.WorkflowID, &st.Position, &st.Title, &st.Description,
			&status, &st.Result, &created, &updated); err != nil {
			return nil, err
		}
		st.Status = workflow.Status(status)
		st.CreatedAt, st.UpdatedAt = parseTime(created), parseTime(updated)
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

func insertStep(ctx context.Context, tx *sql.Tx, st *workflow.Step) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO workflow_steps (id, workflow_id, position, title, description, status, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.WorkflowID, st.Position, st.Title, st.Description, string(st.Status), st.Result,
		formatTime(st.CreatedAt), formatTime(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert step: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row scanner) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	var status, created, updated string
	if err := row.Scan(&wf.ID, &wf.Title, &wf.Description, &status, &wf.IssueRef, &wf.IssueURL, &created, &updated); err != nil {
		return nil, err
	}
	wf.Status = workflow.Status(status)
	wf.CreatedAt, wf.UpdatedAt = parseTime(created), parseTime(updated)
	wf.Steps = []workflow.Step{}
	return &wf, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

var _ workflow.Store = (*WorkflowStore)(nil)
