package repo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/specialistvlad/bibixgo/internal/ctxlog"
	"github.com/specialistvlad/bibixgo/internal/plugin"
)

// LogLine is one line of a log block.
type LogLine struct {
	RunID   string
	Level   slog.Level
	Time    time.Time
	Message string
}

// progressLogger writes the log block of one subject, a target id or an
// action name, and mirrors every line to the process logger.
type progressLogger struct {
	ctx     context.Context
	repo    *Repo
	subject string
	logger  *slog.Logger
}

var _ plugin.ProgressLogger = (*progressLogger)(nil)

// ProgressLogger returns the logger of a subject's log block.
func (r *Repo) ProgressLogger(ctx context.Context, subject string) plugin.ProgressLogger {
	return &progressLogger{
		ctx:     ctx,
		repo:    r,
		subject: subject,
		logger:  ctxlog.FromContext(ctx).With("subject", subject),
	}
}

func (l *progressLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *progressLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *progressLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *progressLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *progressLogger) log(level slog.Level, msg string, args []any) {
	l.logger.Log(l.ctx, level, msg, args...)
	if l.repo.Config != nil && level < l.repo.Config.MinLogLevel {
		return
	}
	line := formatLine(msg, args)
	_, err := l.repo.db.ExecContext(l.ctx,
		`INSERT INTO logs (run_id, subject, level, logged_at, message) VALUES (?, ?, ?, ?, ?)`,
		l.repo.RunID, l.subject, int(level), l.repo.now().UnixNano(), line)
	if err != nil {
		l.logger.Warn("Failed to persist progress log line.", "error", err)
	}
}

func formatLine(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " %v", args[len(args)-1])
	}
	return b.String()
}

// Logs returns the log lines recorded for a subject across runs, oldest
// first.
func (r *Repo) Logs(ctx context.Context, subject string) ([]LogLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_id, level, logged_at, message FROM logs WHERE subject = ? ORDER BY id`, subject)
	if err != nil {
		return nil, fmt.Errorf("reading logs of %s: %w", subject, err)
	}
	defer rows.Close()

	var lines []LogLine
	for rows.Next() {
		var (
			line  LogLine
			level int
			at    int64
		)
		if err := rows.Scan(&line.RunID, &level, &at, &line.Message); err != nil {
			return nil, fmt.Errorf("reading logs of %s: %w", subject, err)
		}
		line.Level = slog.Level(level)
		line.Time = time.Unix(0, at)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
