package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/bibixgo/internal/value"
)

// Status is the status of the latest build attempt of a target.
type Status string

const (
	StatusStarted   Status = "started"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// TargetState is the latest build attempt of a target.
type TargetState struct {
	RunID     string
	Status    Status
	InputHash string
	ObjectID  string
	StartedAt time.Time
	EndedAt   time.Time
	Err       string
}

// TargetResult is the last successful build of a target.
type TargetResult struct {
	RunID     string
	InputHash string
	ObjectID  string
	BuiltAt   time.Time
	// Transient results are only valid within the run that built them.
	Transient bool
	Value     value.Value
}

// Start tells a rule invocation what is known about its previous builds.
type Start struct {
	// Reused is set when the previous result can be used without calling
	// the rule. Prev then holds it.
	Reused bool
	// HashChanged is false when the previous successful build saw the same
	// inputs.
	HashChanged bool
	Prev        *TargetResult
}

// TargetStarted records the start of an invocation unless a previous result
// can be reused, and reports what the invocation may rely on.
//
// A successful result is reused when it was built earlier in this run, or
// when the reuse window of the run configuration allows it: the result is
// not transient, the latest attempt did not fail, the inputs are unchanged,
// and the result is younger than the window. A negative window reuses
// results of any age.
func (r *Repo) TargetStarted(ctx context.Context, targetID string, data []byte, inputHash, objectID string) (Start, error) {
	state, err := r.TargetState(ctx, targetID)
	if err != nil {
		return Start{}, err
	}
	prev, err := r.TargetResult(ctx, targetID)
	if err != nil {
		return Start{}, err
	}

	start := Start{Prev: prev, HashChanged: prev == nil || prev.InputHash != inputHash}
	if prev != nil && r.reusable(state, prev, inputHash) {
		start.Reused = true
		return start, nil
	}

	now := r.now().UnixNano()
	_, err = r.db.ExecContext(ctx, `INSERT OR REPLACE INTO target_ids (target_id, data) VALUES (?, ?)`, targetID, data)
	if err != nil {
		return Start{}, fmt.Errorf("recording target id %s: %w", targetID, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO target_states (target_id, run_id, status, input_hash, object_id, started_at, ended_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, NULL)`,
		targetID, r.RunID, StatusStarted, inputHash, objectID, now)
	if err != nil {
		return Start{}, fmt.Errorf("recording start of %s: %w", targetID, err)
	}
	return start, nil
}

func (r *Repo) reusable(state *TargetState, prev *TargetResult, inputHash string) bool {
	if prev.RunID == r.RunID {
		return true
	}
	if prev.Transient || r.Config == nil || r.Config.TargetResultReuse == nil {
		return false
	}
	if state != nil && state.Status == StatusFailed {
		return false
	}
	if prev.InputHash != inputHash {
		return false
	}
	window := *r.Config.TargetResultReuse
	if window < 0 {
		return true
	}
	return r.now().Sub(prev.BuiltAt) < window
}

// TargetSucceeded records the result of an invocation. A transient result
// is never reused by a later run.
func (r *Repo) TargetSucceeded(ctx context.Context, targetID string, result value.Value, transient bool) error {
	now := r.now().UnixNano()
	var inputHash, objectID string
	err := r.db.QueryRowContext(ctx, `SELECT input_hash, object_id FROM target_states WHERE target_id = ?`, targetID).Scan(&inputHash, &objectID)
	if err != nil {
		return fmt.Errorf("reading state of %s: %w", targetID, err)
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE target_states SET status = ?, ended_at = ? WHERE target_id = ?`,
		StatusSucceeded, now, targetID); err != nil {
		return fmt.Errorf("recording success of %s: %w", targetID, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO target_results (target_id, run_id, input_hash, object_id, built_at, transient, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		targetID, r.RunID, inputHash, objectID, now, transient, r.compress(value.Encode(result)))
	if err != nil {
		return fmt.Errorf("recording result of %s: %w", targetID, err)
	}
	return nil
}

// TargetFailed records a failed invocation. The last successful result is
// kept.
func (r *Repo) TargetFailed(ctx context.Context, targetID string, cause error) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE target_states SET status = ?, ended_at = ?, error = ? WHERE target_id = ?`,
		StatusFailed, r.now().UnixNano(), cause.Error(), targetID)
	if err != nil {
		return fmt.Errorf("recording failure of %s: %w", targetID, err)
	}
	return nil
}

// TargetState returns the latest attempt of a target, or nil.
func (r *Repo) TargetState(ctx context.Context, targetID string) (*TargetState, error) {
	var (
		s       TargetState
		status  string
		started int64
		ended   sql.NullInt64
		errText sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, status, input_hash, object_id, started_at, ended_at, error FROM target_states WHERE target_id = ?`,
		targetID).Scan(&s.RunID, &status, &s.InputHash, &s.ObjectID, &started, &ended, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state of %s: %w", targetID, err)
	}
	s.Status = Status(status)
	s.StartedAt = time.Unix(0, started)
	if ended.Valid {
		s.EndedAt = time.Unix(0, ended.Int64)
	}
	s.Err = errText.String
	return &s, nil
}

// TargetResult returns the last successful build of a target, or nil.
func (r *Repo) TargetResult(ctx context.Context, targetID string) (*TargetResult, error) {
	var (
		res   TargetResult
		built int64
		blob  []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id, input_hash, object_id, built_at, transient, result FROM target_results WHERE target_id = ?`,
		targetID).Scan(&res.RunID, &res.InputHash, &res.ObjectID, &built, &res.Transient, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading result of %s: %w", targetID, err)
	}
	raw, err := r.decompress(blob)
	if err != nil {
		return nil, fmt.Errorf("reading result of %s: %w", targetID, err)
	}
	v, err := value.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("reading result of %s: %w", targetID, err)
	}
	res.BuiltAt = time.Unix(0, built)
	res.Value = v
	return &res, nil
}

// TargetIDData returns the recorded identity of a target id.
func (r *Repo) TargetIDData(ctx context.Context, targetID string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM target_ids WHERE target_id = ?`, targetID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading target id %s: %w", targetID, err)
	}
	return data, nil
}
