// Package server exposes the call graph over MCP. Tools cover the
// index lifecycle and the read surface of the dependency store;
// resources publish usage guidelines and per-tool schemas.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"callmap/internal/graph"
	"callmap/internal/index"
	"callmap/internal/scanner"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const version = "0.1.0"

// IndexStatus tracks the workspace indexing lifecycle.
type IndexStatus string

const (
	IndexStatusPending    IndexStatus = "pending"
	IndexStatusInProgress IndexStatus = "in_progress"
	IndexStatusReady      IndexStatus = "ready"
	IndexStatusFailed     IndexStatus = "failed"
)

const systemPrompt = `# callmap

callmap indexes a workspace into a call graph: callables (functions,
methods, types) keyed by qualified name, with one edge per observed
reference occurrence. The same pair of callables can be connected by
many edges, one per call site.

Run the "index" tool once before querying. Use "direct_dependencies"
to ask what a callable references and at which call sites, and
"find_dependents" for the reverse, one-hop view.`

// Server wires the scanner, the in-memory call graph, and the SQLite
// index behind an MCP server.
type Server struct {
	mcpServer *mcp.Server
	scanner   *scanner.Scanner
	store     *index.Index
	logger    *slog.Logger
	root      string

	indexMu       sync.RWMutex
	g             *graph.CallGraph
	indexStatus   IndexStatus
	indexErr      error
	indexDuration time.Duration
	indexReady    chan struct{}
}

// New creates the server. The scanner and index are required; the
// graph starts empty until the first index run.
func New(root string, sc *scanner.Scanner, ix *index.Index, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		scanner:     sc,
		store:       ix,
		logger:      logger,
		root:        root,
		indexStatus: IndexStatusPending,
		indexReady:  make(chan struct{}),
	}

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "callmap",
		Version: version,
	}, nil)

	s.registerTools()
	s.registerResources()
	return s
}

// Run serves MCP over stdio until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio", "root", s.root)
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Graph returns the current sealed call graph, or nil before the first
// successful index run.
func (s *Server) Graph() *graph.CallGraph {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.g
}

// Reindex scans the workspace, assembles a sealed graph, swaps it in,
// and snapshots it to the index. Only one run may be in flight.
func (s *Server) Reindex(ctx context.Context, force bool) (graph.Stats, error) {
	s.indexMu.Lock()
	if s.indexStatus == IndexStatusInProgress {
		s.indexMu.Unlock()
		return graph.Stats{}, fmt.Errorf("indexing already in progress")
	}
	if s.indexStatus == IndexStatusReady || s.indexStatus == IndexStatusFailed {
		s.indexReady = make(chan struct{})
	}
	s.indexStatus = IndexStatusInProgress
	s.indexErr = nil
	s.indexMu.Unlock()

	if force {
		s.scanner.Invalidate()
	}

	start := time.Now()
	g, err := s.scanner.BuildGraph(ctx)
	if err != nil {
		s.setIndexStatus(IndexStatusFailed, fmt.Errorf("scan failed: %w", err), time.Since(start))
		return graph.Stats{}, err
	}

	if err := s.store.SaveGraph(ctx, g); err != nil {
		s.setIndexStatus(IndexStatusFailed, fmt.Errorf("failed to snapshot graph: %w", err), time.Since(start))
		return graph.Stats{}, err
	}

	s.indexMu.Lock()
	s.g = g
	s.indexMu.Unlock()

	s.setIndexStatus(IndexStatusReady, nil, time.Since(start))
	return g.Stats(), nil
}

// setIndexStatus records the outcome of an index run and unblocks
// waiters.
func (s *Server) setIndexStatus(status IndexStatus, err error, duration time.Duration) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	s.indexStatus = status
	s.indexErr = err
	s.indexDuration = duration

	if status == IndexStatusReady || status == IndexStatusFailed {
		select {
		case <-s.indexReady:
			// already closed
		default:
			close(s.indexReady)
		}
	}
}

// GetIndexStatus returns the current status, the error from the last
// failed run (if any), and the duration of the last completed run.
func (s *Server) GetIndexStatus() (IndexStatus, error, time.Duration) {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()
	return s.indexStatus, s.indexErr, s.indexDuration
}

// WaitForIndex blocks until an index run completes (ready or failed)
// or the context expires.
func (s *Server) WaitForIndex(ctx context.Context) error {
	s.indexMu.RLock()
	ready := s.indexReady
	s.indexMu.RUnlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
