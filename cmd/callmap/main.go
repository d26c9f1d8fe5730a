// Command callmap serves a workspace call graph over MCP.
//
// It scans the enclosing repository with tree-sitter, stores the
// discovered callables and references in the dependency graph, and
// exposes index and query tools over stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"callmap/internal/index"
	"callmap/internal/scanner"
	"callmap/internal/server"
	"callmap/internal/watcher"
	"callmap/util"
)

func main() {
	rootFlag := flag.String("root", "", "workspace root (defaults to the enclosing git repository)")
	dbFlag := flag.String("db", "", "index database path (defaults to $CALLMAP_DB, then <root>/.callmap/index.db)")
	watchFlag := flag.Bool("watch", false, "re-index automatically when workspace files change")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// stdout carries the MCP protocol; all logging goes to stderr.
	level := slog.LevelInfo
	if *debugFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger, *rootFlag, *dbFlag, *watchFlag); err != nil {
		logger.Error("callmap exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, rootFlag, dbFlag string, watch bool) error {
	root, err := util.FindGitRoot(rootFlag)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	dbPath, err := resolveDBPath(dbFlag, root)
	if err != nil {
		return err
	}

	sc, err := scanner.New(root, logger)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	ix, err := index.Open(dbPath, logger)
	if err != nil {
		return err
	}
	defer ix.Close()

	srv := server.New(root, sc, ix, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		w, err := watcher.New(root, scanner.SupportedExtensions(), watcher.DefaultDebounce,
			func(ctx context.Context) {
				if _, err := srv.Reindex(ctx, false); err != nil {
					logger.Error("re-index failed", "error", err)
				}
			}, logger)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("watcher stopped", "error", err)
			}
		}()
	}

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// resolveDBPath applies the index location precedence:
// -db flag, then $CALLMAP_DB, then <root>/.callmap/index.db.
func resolveDBPath(dbFlag, root string) (string, error) {
	path := dbFlag
	if path == "" {
		path = os.Getenv("CALLMAP_DB")
	}
	if path == "" {
		path = filepath.Join(root, ".callmap", "index.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create index directory: %w", err)
	}
	return path, nil
}
