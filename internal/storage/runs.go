package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"aura/internal/buildfix"
	auraerrors "aura/internal/errors"
)

// RunStore records build-fix runs. The full result, including per
// iteration output, is stored as zstd-compressed JSON.
type RunStore struct {
	db  *DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewRunStore creates a run store.
func NewRunStore(db *DB) (*RunStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &RunStore{db: db, enc: enc, dec: dec}, nil
}

// Close releases the codec resources.
func (s *RunStore) Close() {
	s.enc.Close()
	s.dec.Close()
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         string        `json:"id"`
	Root       string        `json:"root"`
	Ecosystem  string        `json:"ecosystem"`
	Success    bool          `json:"success"`
	Reason     string        `json:"reason"`
	Iterations int           `json:"iterations"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"durationNs"`
}

// SaveRun implements buildfix.Recorder.
func (s *RunStore) SaveRun(ctx context.Context, r *buildfix.Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}
	blob := s.enc.EncodeAll(data, nil)

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO buildfix_runs (id, root, ecosystem, success, reason, iterations, started_at, duration_ms, history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Root, r.Ecosystem, boolToInt(r.Success), r.Reason, r.Iterations,
		formatTime(r.StartedAt), r.Duration.Milliseconds(), blob)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Recent lists the latest runs, newest first.
func (s *RunStore) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.QueryContext(ctx, `
		SELECT id, root, ecosystem, success, reason, iterations, started_at, duration_ms
		FROM buildfix_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var success int
		var started string
		var durationMs int64
		if err := rows.Scan(&r.ID, &r.Root, &r.Ecosystem, &success, &r.Reason, &r.Iterations, &started, &durationMs); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.StartedAt = parseTime(started)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get loads the full result of a run.
func (s *RunStore) Get(ctx context.Context, id string) (*buildfix.Result, error) {
	var blob []byte
	err := s.db.conn.QueryRowContext(ctx, `SELECT history FROM buildfix_runs WHERE id = ?`, id).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, auraerrors.NewNotFoundError("Run", id)
	}
	if err != nil {
		return nil, err
	}
	data, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress run %s: %w", id, err)
	}
	var r buildfix.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ buildfix.Recorder = (*RunStore)(nil)
