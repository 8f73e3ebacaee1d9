package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/specialistvlad/bibixgo/internal/config"
	"github.com/specialistvlad/bibixgo/internal/ctxlog"

	_ "modernc.org/sqlite"
)

// BuildDirName is the name of the build directory inside the main project.
const BuildDirName = "bbxbuild"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS target_ids (
	target_id TEXT PRIMARY KEY,
	data BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS target_states (
	target_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	status TEXT NOT NULL,
	input_hash TEXT NOT NULL,
	object_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	error TEXT
);
CREATE TABLE IF NOT EXISTS target_results (
	target_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	input_hash TEXT NOT NULL,
	object_id TEXT NOT NULL,
	built_at INTEGER NOT NULL,
	transient INTEGER NOT NULL DEFAULT 0,
	result BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS output_names (
	name TEXT PRIMARY KEY,
	target_id TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	level INTEGER NOT NULL,
	logged_at INTEGER NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_logs_subject ON logs(subject, id);
`

// Repo is the repository of one run.
type Repo struct {
	MainBase string
	BuildDir string
	// RunID identifies this run in states and log blocks.
	RunID  string
	Config *config.Run

	db      *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	locker  *DirectoryLocker
	now     func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// Open opens the repository of the project rooted at mainBase, creating
// the build directory and database when needed.
func Open(ctx context.Context, mainBase string, run *config.Run) (*Repo, error) {
	logger := ctxlog.FromContext(ctx)
	buildDir := filepath.Join(mainBase, BuildDirName)
	for _, dir := range []string{buildDir, filepath.Join(buildDir, "objects"), filepath.Join(buildDir, "outputs"), filepath.Join(buildDir, "shared")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	dbPath := filepath.Join(buildDir, "repo.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers, which sqlite requires anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	r := &Repo{
		MainBase: mainBase,
		BuildDir: buildDir,
		RunID:    uuid.New().String(),
		Config:   run,
		db:       db,
		encoder:  encoder,
		decoder:  decoder,
		locker:   NewDirectoryLocker(),
		now:      time.Now,
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO runs (run_id, started_at) VALUES (?, ?)", r.RunID, r.now().UnixNano()); err != nil {
		r.Close()
		return nil, fmt.Errorf("recording run: %w", err)
	}
	logger.Debug("Opened repository.", "path", dbPath, "run_id", r.RunID)
	return r, nil
}

// Close releases the database. Calling it again is a no-op.
func (r *Repo) Close() error {
	r.closeOnce.Do(func() {
		r.decoder.Close()
		encErr := r.encoder.Close()
		dbErr := r.db.Close()
		r.closeErr = errors.Join(encErr, dbErr)
	})
	return r.closeErr
}

// ObjectDirectory returns the output directory of a target id. It is not
// created.
func (r *Repo) ObjectDirectory(targetID string) string {
	return filepath.Join(r.BuildDir, "objects", targetID)
}

// SharedDirectory returns the named shared directory, creating it if needed.
func (r *Repo) SharedDirectory(name string) (string, error) {
	dir := filepath.Join(r.BuildDir, "shared", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create shared directory %s: %w", name, err)
	}
	return dir, nil
}

// Locker returns the directory locker of the run.
func (r *Repo) Locker() *DirectoryLocker {
	return r.locker
}

func (r *Repo) compress(b []byte) []byte {
	return r.encoder.EncodeAll(b, nil)
}

func (r *Repo) decompress(b []byte) ([]byte, error) {
	out, err := r.decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}
