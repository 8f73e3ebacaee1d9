package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LinkOutputName makes bbxbuild/outputs/<name> point at the object
// directory of targetID and records the mapping.
func (r *Repo) LinkOutputName(ctx context.Context, name, targetID string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO output_names (name, target_id) VALUES (?, ?)`, name, targetID); err != nil {
		return fmt.Errorf("recording output name %s: %w", name, err)
	}

	link := filepath.Join(r.BuildDir, "outputs", name)
	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replacing output link %s: %w", name, err)
	}
	if _, err := os.Stat(r.ObjectDirectory(targetID)); errors.Is(err, os.ErrNotExist) {
		// The rule produced no files.
		return nil
	}
	rel := filepath.Join("..", "objects", targetID)
	if err := os.Symlink(rel, link); err != nil {
		return fmt.Errorf("linking output %s: %w", name, err)
	}
	return nil
}

// OutputTarget returns the target id last linked to name.
func (r *Repo) OutputTarget(ctx context.Context, name string) (string, bool, error) {
	var targetID string
	err := r.db.QueryRowContext(ctx, `SELECT target_id FROM output_names WHERE name = ?`, name).Scan(&targetID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading output name %s: %w", name, err)
	}
	return targetID, true, nil
}
