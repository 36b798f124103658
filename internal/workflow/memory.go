package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	auraerrors "aura/internal/errors"
)

// MemoryStore is a Store held in memory. It is used when no database is
// configured.
type MemoryStore struct {
	mu        sync.Mutex
	workflows map[string]*Workflow
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{workflows: make(map[string]*Workflow)}
}

func (m *MemoryStore) Create(_ context.Context, wf *Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clone(wf)
	m.workflows[wf.ID] = &c
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, auraerrors.NewNotFoundError("Workflow", id)
	}
	c := clone(wf)
	return &c, nil
}

func (m *MemoryStore) List(_ context.Context, filter ListFilter) ([]*Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Workflow
	for _, wf := range m.workflows {
		if filter.Status != "" && wf.Status != filter.Status {
			continue
		}
		c := clone(wf)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryStore) AddStep(_ context.Context, step *Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[step.WorkflowID]
	if !ok {
		return auraerrors.NewNotFoundError("Workflow", step.WorkflowID)
	}
	wf.Steps = append(wf.Steps, *step)
	return nil
}

func (m *MemoryStore) UpdateStep(_ context.Context, step *Step) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[step.WorkflowID]
	if !ok {
		return auraerrors.NewNotFoundError("Workflow", step.WorkflowID)
	}
	for i := range wf.Steps {
		if wf.Steps[i].ID == step.ID {
			wf.Steps[i] = *step
			return nil
		}
	}
	return auraerrors.NewNotFoundError("Step", step.ID)
}

func (m *MemoryStore) SetStatus(_ context.Context, workflowID string, status Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[workflowID]
	if !ok {
		return auraerrors.NewNotFoundError("Workflow", workflowID)
	}
	wf.Status, wf.UpdatedAt = status, at
	return nil
}

func clone(wf *Workflow) Workflow {
	c := *wf
	c.Steps = append([]Step{}, wf.Steps...)
	return c
}
