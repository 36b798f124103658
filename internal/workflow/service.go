package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"aura/internal/backends"
	auraerrors "aura/internal/errors"
	"aura/internal/slogutil"
)

// Service applies workflow rules on top of a Store.
type Service struct {
	store  Store
	issues backends.IssueTracker
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a service. issues may be nil.
func NewService(store Store, issues backends.IssueTracker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Service{store: store, issues: issues, logger: logger, now: time.Now}
}

// Create stores a new workflow with one pending step per title.
func (s *Service) Create(ctx context.Context, title, description string, steps []string) (*Workflow, error) {
	return s.create(ctx, &Workflow{Title: title, Description: description}, steps)
}

func (s *Service) create(ctx context.Context, wf *Workflow, steps []string) (*Workflow, error) {
	if strings.TrimSpace(wf.Title) == "" {
		return nil, auraerrors.NewInvalidArgumentError("title", "required")
	}
	now := s.now().UTC()
	wf.ID = uuid.NewString()
	wf.Status = StatusPending
	wf.Steps = []Step{}
	wf.CreatedAt, wf.UpdatedAt = now, now
	if err := s.store.Create(ctx, wf); err != nil {
		return nil, err
	}
	for _, st := range steps {
		if _, err := s.addStep(ctx, wf, st, ""); err != nil {
			return nil, err
		}
	}
	s.logger.Info("workflow created", "id", wf.ID, "steps", len(wf.Steps))
	return wf, nil
}

// Get returns a workflow with its steps.
func (s *Service) Get(ctx context.Context, id string) (*Workflow, error) {
	if id == "" {
		return nil, auraerrors.NewInvalidArgumentError("workflowId", "required")
	}
	return s.store.Get(ctx, id)
}

// List returns workflows, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Workflow, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, auraerrors.NewInvalidArgumentError("status", "must be one of "+strings.Join(Statuses(), ", "))
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.store.List(ctx, filter)
}

// AddStep appends a pending step.
func (s *Service) AddStep(ctx context.Context, workflowID, title, description string) (*Step, error) {
	if strings.TrimSpace(title) == "" {
		return nil, auraerrors.NewInvalidArgumentError("title", "required")
	}
	wf, err := s.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	step, err := s.addStep(ctx, wf, title, description)
	if err != nil {
		return nil, err
	}
	return step, s.syncStatus(ctx, wf)
}

func (s *Service) addStep(ctx context.Context, wf *Workflow, title, description string) (*Step, error) {
	now := s.now().UTC()
	step := Step{
		ID:          uuid.NewString(),
		WorkflowID:  wf.ID,
		Position:    len(wf.Steps) + 1,
		Title:       title,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.AddStep(ctx, &step); err != nil {
		return nil, err
	}
	wf.Steps = append(wf.Steps, step)
	return &step, nil
}

// UpdateStep sets a step's status and result, then re-derives the
// workflow status.
func (s *Service) UpdateStep(ctx context.Context, workflowID, stepID string, status Status, result string) (*Workflow, error) {
	if !status.Valid() {
		return nil, auraerrors.NewInvalidArgumentError("status", "must be one of "+strings.Join(Statuses(), ", "))
	}
	wf, err := s.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range wf.Steps {
		if wf.Steps[i].ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, auraerrors.NewNotFoundError("Step", stepID)
	}

	step := &wf.Steps[idx]
	step.Status = status
	if result != "" {
		step.Result = result
	}
	step.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateStep(ctx, step); err != nil {
		return nil, err
	}
	if err := s.syncStatus(ctx, wf); err != nil {
		return nil, err
	}
	s.logger.Debug("workflow step updated", "workflow", wf.ID, "step", stepID, "status", string(status))
	return wf, nil
}

func (s *Service) syncStatus(ctx context.Context, wf *Workflow) error {
	status := Derive(wf.Steps)
	if status == wf.Status {
		return nil
	}
	wf.Status = status
	wf.UpdatedAt = s.now().UTC()
	return s.store.SetStatus(ctx, wf.ID, status, wf.UpdatedAt)
}

// FromIssue creates a workflow from an issue. Unchecked task-list items
// ("- [ ] ...") in the issue body become steps.
func (s *Service) FromIssue(ctx context.Context, ref string) (*Workflow, error) {
	if ref == "" {
		return nil, auraerrors.NewInvalidArgumentError("issueRef", "required")
	}
	if s.issues == nil {
		return nil, auraerrors.NewBackendUnavailableError("issue tracker", "configure an issue tracker to import issues")
	}
	issue, err := s.issues.GetIssue(ctx, ref)
	if err != nil {
		return nil, err
	}
	if issue == nil {
		return nil, auraerrors.NewNotFoundError("Issue", ref)
	}

	steps := TaskItems(issue.Body)
	if len(steps) == 0 {
		steps = []string{"Implement " + issue.Title}
	}
	return s.create(ctx, &Workflow{
		Title:       fmt.Sprintf("%s: %s", issue.Ref, issue.Title),
		Description: issue.Body,
		IssueRef:    issue.Ref,
		IssueURL:    issue.URL,
	}, steps)
}

// TaskItems extracts unchecked markdown task-list items.
func TaskItems(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"- [ ] ", "* [ ] "} {
			if strings.HasPrefix(line, prefix) {
				if item := strings.TrimSpace(line[len(prefix):]); item != "" {
					out = append(out, item)
				}
			}
		}
	}
	return out
}
