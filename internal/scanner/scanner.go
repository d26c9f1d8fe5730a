package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"callmap/internal/graph"
	"callmap/util"

	ignore "github.com/sabhiram/go-gitignore"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Definition is one callable declaration discovered in a file.
type Definition struct {
	Name graph.QualifiedName
	Kind graph.CallableKind
	Decl graph.Span
	File string
}

// CallSite is one reference occurrence discovered in a file. The callee
// is recorded by simple name; resolution against the definition set
// happens when the graph is assembled.
type CallSite struct {
	Caller graph.QualifiedName
	Callee string
	Span   graph.Span
	File   string
}

// Result holds everything one scan pass discovered.
type Result struct {
	Definitions []Definition
	Calls       []CallSite

	// Files lists every file the pass visited, including unchanged
	// ones served from cache.
	Files []string
}

// fileResult caches the extraction for one file keyed by content hash,
// so an unchanged file is not re-parsed on rescan.
type fileResult struct {
	hash  string
	defs  []Definition
	calls []CallSite
}

type compiledQueries struct {
	defs  *tree_sitter.Query
	calls *tree_sitter.Query
}

// Scanner walks a workspace, parses supported sources with tree-sitter,
// and extracts callable definitions and reference sites. It is the
// single writer that feeds the dependency store.
//
// Not safe for concurrent use; run one scan at a time.
type Scanner struct {
	root    string
	ignorer *ignore.GitIgnore
	queries map[string]compiledQueries // keyed by language registry key
	cache   map[string]fileResult      // keyed by relative file path
	logger  *slog.Logger
}

// New creates a scanner rooted at the given workspace directory.
// A .gitignore at the root is honored when present.
func New(root string, logger *slog.Logger) (*Scanner, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: workspace root is required", graph.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var ignorer *ignore.GitIgnore
	ignorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(ignorePath); err == nil {
		ignorer, err = ignore.CompileIgnoreFile(ignorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to compile .gitignore: %w", err)
		}
	}

	queries := make(map[string]compiledQueries, len(languages))
	for key, lang := range languages {
		defs, err := compileQuery(lang.Grammar, DefinitionQueries[lang.Name])
		if err != nil {
			return nil, fmt.Errorf("%s definition query: %w", key, err)
		}
		calls, err := compileQuery(lang.Grammar, CallQueries[lang.Name])
		if err != nil {
			return nil, fmt.Errorf("%s call query: %w", key, err)
		}
		queries[key] = compiledQueries{defs: defs, calls: calls}
	}

	return &Scanner{
		root:    root,
		ignorer: ignorer,
		queries: queries,
		cache:   make(map[string]fileResult),
		logger:  logger,
	}, nil
}

func compileQuery(grammar *tree_sitter.Language, source string) (*tree_sitter.Query, error) {
	q, qerr := tree_sitter.NewQuery(grammar, source)
	if qerr != nil {
		return nil, fmt.Errorf("query compile failed: %s", qerr.Message)
	}
	return q, nil
}

// Invalidate drops the per-file cache so the next scan re-parses
// everything.
func (s *Scanner) Invalidate() {
	s.cache = make(map[string]fileResult)
}

// Root returns the workspace root the scanner walks.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the workspace and extracts definitions and call sites
// from every supported file. Unchanged files are served from the
// per-file cache.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	result := &Result{}

	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			if s.ignorer != nil && s.ignorer.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if s.ignorer != nil && s.ignorer.MatchesPath(rel) {
			return nil
		}

		lang, ok := LanguageForExt(filepath.Ext(path))
		if !ok {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			s.logger.Warn("skipping unreadable file", "path", rel, "error", readErr)
			return nil
		}

		result.Files = append(result.Files, rel)

		hash := util.HashContent(content)
		if cached, ok := s.cache[rel]; ok && cached.hash == hash {
			result.Definitions = append(result.Definitions, cached.defs...)
			result.Calls = append(result.Calls, cached.calls...)
			return nil
		}

		defs, calls, extractErr := s.extractFile(rel, lang, content)
		if extractErr != nil {
			s.logger.Warn("failed to parse file", "path", rel, "error", extractErr)
			return nil
		}

		s.cache[rel] = fileResult{hash: hash, defs: defs, calls: calls}
		result.Definitions = append(result.Definitions, defs...)
		result.Calls = append(result.Calls, calls...)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("workspace walk failed: %w", walkErr)
	}

	s.logger.Info("scan complete",
		"files", len(result.Files),
		"definitions", len(result.Definitions),
		"calls", len(result.Calls),
	)
	return result, nil
}

// extractFile parses one file and runs the definition and call queries
// against it.
func (s *Scanner) extractFile(rel string, lang *Language, content []byte) ([]Definition, []CallSite, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang.Grammar); err != nil {
		return nil, nil, fmt.Errorf("set language: %w", err)
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, nil, fmt.Errorf("parse produced no tree")
	}
	defer tree.Close()
	root := tree.RootNode()

	namespace := namespaceForFile(rel)
	key := registryKeyForExt(filepath.Ext(rel))
	queries := s.queries[key]

	defs := s.extractDefinitions(queries.defs, root, content, namespace, rel, lang)
	calls := s.extractCalls(queries.calls, root, content, namespace, rel, lang)
	return defs, calls, nil
}

func (s *Scanner) extractDefinitions(q *tree_sitter.Query, root *tree_sitter.Node, content []byte, namespace, rel string, lang *Language) []Definition {
	var defs []Definition
	names := q.CaptureNames()

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(q, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var defNode, nameNode *tree_sitter.Node
		for _, capture := range match.Captures {
			switch names[capture.Index] {
			case "def":
				defNode = &capture.Node
			case "name":
				nameNode = &capture.Node
			}
		}
		if defNode == nil || nameNode == nil {
			continue
		}

		qualified, err := graph.NewQualifiedName(namespace, nameNode.Utf8Text(content))
		if err != nil {
			continue
		}
		defs = append(defs, Definition{
			Name: qualified,
			Kind: kindForNode(defNode.Kind()),
			Decl: spanOf(defNode),
			File: rel,
		})
	}
	return defs
}

func (s *Scanner) extractCalls(q *tree_sitter.Query, root *tree_sitter.Node, content []byte, namespace, rel string, lang *Language) []CallSite {
	var calls []CallSite
	names := q.CaptureNames()

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(q, root, content)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var callNode, calleeNode *tree_sitter.Node
		for _, capture := range match.Captures {
			switch names[capture.Index] {
			case "call":
				callNode = &capture.Node
			case "callee":
				calleeNode = &capture.Node
			}
		}
		if callNode == nil || calleeNode == nil {
			continue
		}

		caller, ok := enclosingDefinition(callNode, content, namespace, lang)
		if !ok {
			// Top-level call with no enclosing callable.
			continue
		}

		calls = append(calls, CallSite{
			Caller: caller,
			Callee: calleeNode.Utf8Text(content),
			Span:   spanOf(callNode),
			File:   rel,
		})
	}
	return calls
}

// enclosingDefinition ascends from a call site to the nearest ancestor
// that declares a callable and returns its qualified name.
func enclosingDefinition(node *tree_sitter.Node, content []byte, namespace string, lang *Language) (graph.QualifiedName, bool) {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if !lang.defKinds[parent.Kind()] {
			continue
		}
		nameNode := parent.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		qualified, err := graph.NewQualifiedName(namespace, nameNode.Utf8Text(content))
		if err != nil {
			continue
		}
		return qualified, true
	}
	return graph.QualifiedName{}, false
}

// BuildGraph runs a scan, resolves call sites against the discovered
// definitions, and assembles a sealed call graph.
//
// Every definition becomes a node; every call site whose callee
// resolves to a known definition becomes one edge. Unresolved callees
// (externals, ambiguous names) are skipped, not errors.
func (s *Scanner) BuildGraph(ctx context.Context) (*graph.CallGraph, error) {
	result, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return AssembleGraph(result, s.logger)
}

// AssembleGraph builds a sealed call graph from a scan result.
func AssembleGraph(result *Result, logger *slog.Logger) (*graph.CallGraph, error) {
	if logger == nil {
		logger = slog.Default()
	}

	g := graph.NewCallGraph()

	callables := make(map[graph.QualifiedName]graph.Callable, len(result.Definitions))
	bySimpleName := make(map[string][]graph.QualifiedName)

	for _, def := range result.Definitions {
		c, err := graph.NewCallable(def.Name, def.Kind, def.Decl, def.File)
		if err != nil {
			return nil, fmt.Errorf("definition %s: %w", def.Name, err)
		}
		if _, seen := callables[def.Name]; !seen {
			callables[def.Name] = c
			bySimpleName[def.Name.Name] = append(bySimpleName[def.Name.Name], def.Name)
		}
		if err := g.AddNode(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Name, err)
		}
	}

	resolved, skipped := 0, 0
	for _, call := range result.Calls {
		target, ok := resolveCallee(call, bySimpleName)
		if !ok {
			skipped++
			continue
		}

		edge, err := graph.NewReference(call.Caller, target, call.Span, call.File)
		if err != nil {
			return nil, fmt.Errorf("reference %s -> %s: %w", call.Caller, target, err)
		}
		from, fromOK := callables[call.Caller]
		to, toOK := callables[target]
		if !fromOK || !toOK {
			skipped++
			continue
		}
		if err := g.AddDependency(from, to, edge); err != nil {
			return nil, fmt.Errorf("record %s -> %s: %w", call.Caller, target, err)
		}
		resolved++
	}

	g.Seal()
	logger.Info("graph assembled",
		"nodes", g.Count(),
		"references", resolved,
		"unresolved", skipped,
	)
	return g, nil
}

// resolveCallee maps a callee simple name to a definition: a definition
// in the caller's namespace wins; otherwise a globally unique name
// resolves; anything else is treated as external.
func resolveCallee(call CallSite, bySimpleName map[string][]graph.QualifiedName) (graph.QualifiedName, bool) {
	candidates := bySimpleName[call.Callee]
	if len(candidates) == 0 {
		return graph.QualifiedName{}, false
	}
	for _, candidate := range candidates {
		if candidate.Namespace == call.Caller.Namespace {
			return candidate, true
		}
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}
	return graph.QualifiedName{}, false
}

// namespaceForFile derives a callable namespace from a relative file
// path: the slash-separated path without its extension.
func namespaceForFile(rel string) string {
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

func registryKeyForExt(ext string) string {
	if key, ok := extensions[ext]; ok {
		return key
	}
	return ""
}

func kindForNode(nodeKind string) graph.CallableKind {
	switch nodeKind {
	case "method_declaration", "method_definition":
		return graph.KindMethod
	case "class_declaration", "class_definition":
		return graph.KindClass
	case "interface_declaration":
		return graph.KindInterface
	case "type_declaration":
		return graph.KindType
	default:
		return graph.KindFunction
	}
}

func spanOf(node *tree_sitter.Node) graph.Span {
	start := node.StartPosition()
	end := node.EndPosition()
	return graph.Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}
