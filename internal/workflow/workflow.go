// Package workflow tracks multi-step development workflows (stories) and
// their step statuses.
package workflow

import (
	"context"
	"time"
)

// Status of a workflow or step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Statuses lists every valid status.
func Statuses() []string {
	return []string{
		string(StatusPending),
		string(StatusInProgress),
		string(StatusCompleted),
		string(StatusFailed),
		string(StatusSkipped),
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Step is one unit of work in a workflow.
type Step struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflowId"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Result      string    `json:"result,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Workflow is an ordered list of steps toward one goal.
type Workflow struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	IssueRef    string    `json:"issueRef,omitempty"`
	IssueURL    string    `json:"issueUrl,omitempty"`
	Steps       []Step    `json:"steps"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status Status
	Limit  int
}

// Store persists workflows. Get and UpdateStep return a NOT_FOUND
// AuraError for unknown ids.
type Store interface {
	Create(ctx context.Context, wf *Workflow) error
	Get(ctx context.Context, id string) (*Workflow, error)
	List(ctx context.Context, filter ListFilter) ([]*Workflow, error)
	AddStep(ctx context.Context, step *Step) error
	UpdateStep(ctx context.Context, step *Step) error
	SetStatus(ctx context.Context, workflowID string, status Status, at time.Time) error
}

// Derive computes a workflow status from its steps.
func Derive(steps []Step) Status {
	if len(steps) == 0 {
		return StatusPending
	}
	done, started := 0, false
	for _, s := range steps {
		switch s.Status {
		case StatusFailed:
			return StatusFailed
		case StatusCompleted, StatusSkipped:
			done++
			started = true
		case StatusInProgress:
			started = true
		}
	}
	switch {
	case done == len(steps):
		return StatusCompleted
	case started:
		return StatusInProgress
	default:
		return StatusPending
	}
}
