package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"callmap/internal/graph"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const goSample = `package sample

func Helper() int {
	return 1
}

func Caller() int {
	a := Helper()
	b := Helper()
	return a + b
}
`

const pySample = `def leaf():
    return 1

def branch():
    return leaf()
`

func newTestScanner(t *testing.T, root string) *Scanner {
	t.Helper()
	s, err := New(root, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestScanExtractsDefinitionsAndCalls(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.go", goSample)

	s := newTestScanner(t, dir)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	defs := make(map[string]Definition)
	for _, d := range result.Definitions {
		defs[d.Name.Name] = d
	}
	for _, want := range []string{"Helper", "Caller"} {
		if _, ok := defs[want]; !ok {
			t.Errorf("missing definition %q", want)
		}
	}
	if d := defs["Helper"]; d.Name.Namespace != "sample" {
		t.Errorf("Helper namespace = %q, want %q", d.Name.Namespace, "sample")
	}
	if d := defs["Caller"]; d.Kind != graph.KindFunction {
		t.Errorf("Caller kind = %q, want function", d.Kind)
	}

	var helperCalls int
	for _, c := range result.Calls {
		if c.Callee == "Helper" {
			helperCalls++
			if c.Caller.Name != "Caller" {
				t.Errorf("Helper call attributed to %s, want Caller", c.Caller)
			}
			if c.Span.IsZero() {
				t.Error("call site span is missing")
			}
		}
	}
	if helperCalls != 2 {
		t.Errorf("found %d Helper call sites, want 2", helperCalls)
	}
}

func TestScanMultipleLanguages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.go", goSample)
	writeFile(t, dir, "lib/util.py", pySample)

	s := newTestScanner(t, dir)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(result.Files) != 2 {
		t.Fatalf("visited %d files, want 2: %v", len(result.Files), result.Files)
	}

	namespaces := make(map[string]bool)
	for _, d := range result.Definitions {
		namespaces[d.Name.Namespace] = true
	}
	if !namespaces["lib/util"] {
		t.Errorf("python namespace not derived from path: %v", namespaces)
	}
}

func TestScanHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "generated/\n")
	writeFile(t, dir, "sample.go", goSample)
	writeFile(t, dir, "generated/gen.go", goSample)

	s := newTestScanner(t, dir)
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	for _, f := range result.Files {
		if filepath.ToSlash(f) == "generated/gen.go" {
			t.Error("ignored file was scanned")
		}
	}
}

func TestScanCacheServesUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.go", goSample)

	s := newTestScanner(t, dir)
	first, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	second, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Definitions) != len(first.Definitions) {
		t.Errorf("cached rescan changed definitions: %d vs %d",
			len(second.Definitions), len(first.Definitions))
	}

	s.Invalidate()
	third, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(third.Definitions) != len(first.Definitions) {
		t.Errorf("invalidated rescan changed definitions: %d vs %d",
			len(third.Definitions), len(first.Definitions))
	}
}

func TestBuildGraphEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.go", goSample)

	s := newTestScanner(t, dir)
	g, err := s.BuildGraph(context.Background())
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	if !g.Sealed() {
		t.Error("built graph should be sealed")
	}

	caller, ok := g.Lookup(graph.QualifiedName{Namespace: "sample", Name: "Caller"})
	if !ok {
		t.Fatal("Caller missing from graph")
	}
	deps, err := g.DirectDependencies(caller)
	if err != nil {
		t.Fatal(err)
	}
	helperKey := graph.QualifiedName{Namespace: "sample", Name: "Helper"}
	if got := len(deps[helperKey]); got != 2 {
		t.Errorf("Caller -> Helper edges = %d, want 2 (one per call site)", got)
	}
}

func TestAssembleGraphResolution(t *testing.T) {
	ns1 := graph.QualifiedName{Namespace: "a", Name: "Shared"}
	ns2 := graph.QualifiedName{Namespace: "b", Name: "Shared"}
	caller := graph.QualifiedName{Namespace: "a", Name: "Run"}
	unique := graph.QualifiedName{Namespace: "c", Name: "Only"}

	span := graph.Span{StartLine: 5, StartCol: 1, EndLine: 5, EndCol: 9}
	result := &Result{
		Definitions: []Definition{
			{Name: ns1, Kind: graph.KindFunction, Decl: span, File: "a.go"},
			{Name: ns2, Kind: graph.KindFunction, Decl: span, File: "b.go"},
			{Name: caller, Kind: graph.KindFunction, Decl: span, File: "a.go"},
			{Name: unique, Kind: graph.KindFunction, Decl: span, File: "c.go"},
		},
		Calls: []CallSite{
			// Same-namespace candidate wins over the one in b.
			{Caller: caller, Callee: "Shared", Span: span, File: "a.go"},
			// Globally unique name resolves across namespaces.
			{Caller: caller, Callee: "Only", Span: span, File: "a.go"},
			// Unknown callee is skipped, not an error.
			{Caller: caller, Callee: "External", Span: span, File: "a.go"},
		},
	}

	g, err := AssembleGraph(result, nil)
	if err != nil {
		t.Fatalf("AssembleGraph: %v", err)
	}

	node, ok := g.Lookup(caller)
	if !ok {
		t.Fatal("caller missing")
	}
	deps, err := g.DirectDependencies(node)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps[ns1]) != 1 {
		t.Errorf("expected same-namespace resolution to a.Shared, got %v", deps)
	}
	if len(deps[ns2]) != 0 {
		t.Error("call resolved to the wrong namespace")
	}
	if len(deps[unique]) != 1 {
		t.Error("globally unique callee did not resolve")
	}
	if st := g.Stats(); st.Edges != 2 {
		t.Errorf("Stats.Edges = %d, want 2 (external call skipped)", st.Edges)
	}
}

func TestNamespaceForFile(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"sample.go", "sample"},
		{"lib/util.py", "lib/util"},
		{filepath.Join("a", "b", "c.ts"), "a/b/c"},
	}
	for _, tt := range tests {
		if got := namespaceForFile(tt.rel); got != tt.want {
			t.Errorf("namespaceForFile(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestLanguageForExt(t *testing.T) {
	tests := []struct {
		ext  string
		want string
		ok   bool
	}{
		{".go", "go", true},
		{".py", "python", true},
		{".ts", "typescript", true},
		{".tsx", "typescript", true},
		{".rb", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			lang, ok := LanguageForExt(tt.ext)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && lang.Name != tt.want {
				t.Errorf("language = %q, want %q", lang.Name, tt.want)
			}
		})
	}
}
