package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/specialistvlad/bibixgo/internal/app"
	"github.com/specialistvlad/bibixgo/internal/cli"
	"github.com/specialistvlad/bibixgo/internal/value"
)

// main is the entrypoint for the bibix application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Results go to outW and logs to logW.
func run(ctx context.Context, outW, logW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	bibix, err := app.NewApp(ctx, logW, appConfig)
	if err != nil {
		return fmt.Errorf("failed to start build: %w", err)
	}
	defer bibix.Close()

	results := bibix.Build(ctx, appConfig.Names)
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		r := results[name]
		if r.Err != nil {
			failed++
			fmt.Fprintf(outW, "%s: FAILED: %v\n", name, r.Err)
			continue
		}
		fmt.Fprintf(outW, "%s = %s\n", name, value.Stringify(r.Value))
	}
	if failed > 0 {
		return &cli.ExitError{Code: 1, Message: fmt.Sprintf("%d of %d names failed", failed, len(names))}
	}
	return nil
}
