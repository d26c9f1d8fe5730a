package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"callmap/internal/index"
	"callmap/internal/scanner"
)

const testSource = `package demo

func Leaf() int {
	return 1
}

func Root() int {
	return Leaf() + Leaf()
}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "demo.go"), []byte(testSource), 0o644); err != nil {
		t.Fatal(err)
	}

	sc, err := scanner.New(root, nil)
	if err != nil {
		t.Fatalf("scanner.New: %v", err)
	}
	ix, err := index.Open(filepath.Join(t.TempDir(), "index.db"), nil)
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	return New(root, sc, ix, nil)
}

func TestIndexLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, _, _ := s.GetIndexStatus()
	if status != IndexStatusPending {
		t.Fatalf("initial status = %s, want pending", status)
	}
	if s.Graph() != nil {
		t.Fatal("graph should be nil before first index")
	}

	stats, err := s.Reindex(context.Background(), false)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if stats.Nodes != 2 {
		t.Errorf("stats.Nodes = %d, want 2", stats.Nodes)
	}
	if stats.Edges != 2 {
		t.Errorf("stats.Edges = %d, want 2", stats.Edges)
	}

	status, indexErr, duration := s.GetIndexStatus()
	if status != IndexStatusReady {
		t.Errorf("status after reindex = %s, want ready", status)
	}
	if indexErr != nil {
		t.Errorf("unexpected index error: %v", indexErr)
	}
	if duration <= 0 {
		t.Error("index duration not recorded")
	}

	g := s.Graph()
	if g == nil {
		t.Fatal("graph missing after reindex")
	}
	if !g.Sealed() {
		t.Error("served graph should be sealed")
	}
}

func TestReindexIsRepeatable(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	first, err := s.Reindex(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Reindex(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("forced reindex changed stats: %+v vs %+v", first, second)
	}
}

func TestWaitForIndex(t *testing.T) {
	s := newTestServer(t)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- s.WaitForIndex(ctx)
	}()

	if _, err := s.Reindex(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitForIndex: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForIndex did not unblock after reindex")
	}
}

func TestWaitForIndexHonorsContext(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.WaitForIndex(ctx); err == nil {
		t.Error("expected context error while index is pending")
	}
}

func TestBuildSchemaMap(t *testing.T) {
	m := buildSchemaMap()
	for _, tool := range []string{
		"index", "index_status", "direct_dependencies",
		"find_dependents", "get_callable", "callables_in_file", "graph_stats",
	} {
		if m[tool] == "" {
			t.Errorf("no schema published for tool %q", tool)
		}
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := &Server{}
	got, err := s.readSource(path, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != "two\nthree" {
		t.Errorf("readSource = %q, want %q", got, "two\nthree")
	}
}
