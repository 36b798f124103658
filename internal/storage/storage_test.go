package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aura/internal/buildfix"
	auraerrors "aura/internal/errors"
	"aura/internal/workflow"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), ".aura", "aura.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aura.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()
	version, err := db.getSchemaVersion()
	if err != nil || version != currentSchemaVersion {
		t.Errorf("schema version = %d, %v", version, err)
	}
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(":memory:", nil)
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	defer db.Close()
	if _, err := NewWorkflowStore(db).List(context.Background(), workflow.ListFilter{}); err != nil {
		t.Errorf("List() error = %v", err)
	}
}

func TestWorkflowStore_ThroughService(t *testing.T) {
	ctx := context.Background()
	svc := workflow.NewService(NewWorkflowStore(openTestDB(t)), nil, nil)

	wf, err := svc.Create(ctx, "Ship pagination", "cursor based", []string{"types", "handlers"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.UpdateStep(ctx, wf.ID, wf.Steps[0].ID, workflow.StatusInProgress, ""); err != nil {
		t.Fatalf("UpdateStep() error = %v", err)
	}

	got, err := svc.Get(ctx, wf.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "Ship pagination" || got.Description != "cursor based" || got.Status != workflow.StatusInProgress {
		t.Errorf("Get() = %+v", got)
	}
	if len(got.Steps) != 2 || got.Steps[0].Status != workflow.StatusInProgress || got.Steps[1].Title != "handlers" {
		t.Errorf("steps = %+v", got.Steps)
	}
	if !got.CreatedAt.Equal(wf.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, wf.CreatedAt)
	}

	if _, err := svc.Create(ctx, "Second", "", nil); err != nil {
		t.Fatal(err)
	}
	all, err := svc.List(ctx, workflow.ListFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("List() = %d, %v", len(all), err)
	}
	active, _ := svc.List(ctx, workflow.ListFilter{Status: workflow.StatusInProgress})
	if len(active) != 1 || active[0].ID != wf.ID {
		t.Errorf("List(in_progress) = %+v", active)
	}
}

func TestWorkflowStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store := NewWorkflowStore(openTestDB(t))

	if _, err := store.Get(ctx, "missing"); !auraerrors.Is(err, auraerrors.NotFound) {
		t.Errorf("Get() error = %v, want NOT_FOUND", err)
	}
	err := store.AddStep(ctx, &workflow.Step{ID: "s", WorkflowID: "missing", Title: "x", Status: workflow.StatusPending})
	if !auraerrors.Is(err, auraerrors.NotFound) {
		t.Errorf("AddStep() error = %v, want NOT_FOUND", err)
	}
	if err := store.SetStatus(ctx, "missing", workflow.StatusCompleted, time.Now()); !auraerrors.Is(err, auraerrors.NotFound) {
		t.Errorf("SetStatus() error = %v, want NOT_FOUND", err)
	}
}

func TestRunStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	runs, err := NewRunStore(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	defer runs.Close()

	output := strings.Repeat("Foo.cs(1,1): error CS1002: ; expected\n", 200)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		res := &buildfix.Result{
			RunID:      id,
			Ecosystem:  buildfix.EcosystemDotnet,
			Root:       "/repo",
			Reason:     buildfix.ReasonMaxIterationsReached,
			Iterations: 2,
			StartedAt:  started.Add(time.Duration(i) * time.Minute),
			Duration:   1500 * time.Millisecond,
			History: []buildfix.Iteration{
				{Index: 1, Status: buildfix.StatusFailed, ErrorCount: 1, FilesTouched: []string{}, Output: output},
			},
		}
		if err := runs.SaveRun(ctx, res); err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
	}

	recent, err := runs.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "newer" || recent[0].Duration != 1500*time.Millisecond {
		t.Errorf("Recent() = %+v", recent)
	}

	got, err := runs.Get(ctx, "older")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Reason != buildfix.ReasonMaxIterationsReached || len(got.History) != 1 || got.History[0].Output != output {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := runs.Get(ctx, "missing"); !auraerrors.Is(err, auraerrors.NotFound) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}
}
