package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"callmap/internal/graph"
	"callmap/util"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Arguments structs

type IndexArgs struct {
	Force bool `json:"force" jsonschema:"description:Force a full re-scan even for files that have not changed"`
}

type IndexStatusArgs struct{}

type DirectDependenciesArgs struct {
	Namespace string `json:"namespace" jsonschema:"description:The namespace of the callable (empty for top-level entities)"`
	Name      string `json:"name" jsonschema:"required,description:The simple name of the callable"`
}

type FindDependentsArgs struct {
	Namespace string `json:"namespace" jsonschema:"description:The namespace of the callable (empty for top-level entities)"`
	Name      string `json:"name" jsonschema:"required,description:The simple name of the callable"`
}

type GetCallableArgs struct {
	Name       string `json:"name" jsonschema:"required,description:The simple name of the callable to locate"`
	WithSource bool   `json:"with_source" jsonschema:"description:If true, includes the source code of the callable in the response"`
}

type CallablesInFileArgs struct {
	FilePath string `json:"file_path" jsonschema:"required,description:The path of the file to list callables for"`
}

type GraphStatsArgs struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "index",
		Description: "Scans the workspace and rebuilds the call graph",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args IndexArgs) (*mcp.CallToolResult, any, error) {
		start := time.Now()
		stats, err := s.Reindex(ctx, args.Force)
		if err != nil {
			return errorResult(fmt.Sprintf("Indexing failed: %v", err)), nil, nil
		}
		msg := fmt.Sprintf("Indexed %d callables and %d references (%d pairs) in %.2fs",
			stats.Nodes, stats.Edges, stats.Pairs, time.Since(start).Seconds())
		return textResult(msg), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "index_status",
		Description: "Returns the current indexing status of the workspace",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args IndexStatusArgs) (*mcp.CallToolResult, any, error) {
		status, err, duration := s.GetIndexStatus()

		result := map[string]any{
			"status": string(status),
		}
		if duration > 0 {
			result["duration_seconds"] = duration.Seconds()
		}
		if err != nil {
			result["error"] = err.Error()
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "direct_dependencies",
		Description: "Lists the callables a callable references, with every call site",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DirectDependenciesArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		g := s.Graph()
		node, ok := g.Lookup(graph.QualifiedName{Namespace: args.Namespace, Name: args.Name})
		if !ok {
			return textResult("Callable not found in the graph."), nil, nil
		}

		deps, err := g.DirectDependencies(node)
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}
		if len(deps) == 0 {
			return textResult("No outgoing references."), nil, nil
		}

		type dependency struct {
			Target      string   `json:"target"`
			CallSites   []string `json:"call_sites"`
			Occurrences int      `json:"occurrences"`
		}
		var out []dependency
		for target, refs := range deps {
			d := dependency{Target: target.String(), Occurrences: len(refs)}
			for _, ref := range refs {
				d.CallSites = append(d.CallSites, ref.Span().String())
			}
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })

		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_dependents",
		Description: "Finds the callables that directly reference a callable",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args FindDependentsArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		name := graph.QualifiedName{Namespace: args.Namespace, Name: args.Name}
		rows, err := s.store.DirectDependents(ctx, name)
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}
		if len(rows) == 0 {
			return textResult("No dependents found."), nil, nil
		}

		type dependent struct {
			Name     string `json:"name"`
			Kind     string `json:"kind"`
			FilePath string `json:"file_path"`
		}
		var out []dependent
		for _, r := range rows {
			out = append(out, dependent{
				Name:     r.QualifiedName().String(),
				Kind:     r.Kind,
				FilePath: r.FilePath,
			})
		}

		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_callable",
		Description: "Finds the location and optionally the source code of a callable",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetCallableArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		rows, err := s.store.LookupCallable(ctx, args.Name)
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}
		if len(rows) == 0 {
			return textResult("Callable not found."), nil, nil
		}

		type callableInfo struct {
			Name     string `json:"name"`
			Kind     string `json:"kind"`
			FilePath string `json:"file_path"`
			URI      string `json:"uri"`
			Range    string `json:"range"`
			Source   string `json:"source,omitempty"`
		}

		var info []callableInfo
		for _, r := range rows {
			abs := filepath.Join(s.root, filepath.FromSlash(r.FilePath))
			ci := callableInfo{
				Name:     r.QualifiedName().String(),
				Kind:     r.Kind,
				FilePath: r.FilePath,
				URI:      util.PathToURI(abs),
				Range:    r.FormatRange(),
			}
			if args.WithSource {
				source, err := s.readSource(abs, r.StartLine, r.EndLine)
				if err != nil {
					s.logger.Warn("failed to read source", "callable", ci.Name, "path", r.FilePath, "error", err)
				} else {
					ci.Source = source
				}
			}
			info = append(info, ci)
		}

		jsonBytes, _ := json.MarshalIndent(info, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "callables_in_file",
		Description: "Returns the callables declared in a file",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args CallablesInFileArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		rel := args.FilePath
		if filepath.IsAbs(rel) {
			if r, err := filepath.Rel(s.root, rel); err == nil {
				rel = r
			}
		}
		rel = filepath.ToSlash(rel)

		rows, err := s.store.CallablesInFile(ctx, rel)
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}

		type simpleCallable struct {
			Name  string `json:"name"`
			Kind  string `json:"kind"`
			Range string `json:"range"`
		}
		var simple []simpleCallable
		for _, r := range rows {
			simple = append(simple, simpleCallable{
				Name:  r.QualifiedName().String(),
				Kind:  r.Kind,
				Range: r.FormatRange(),
			})
		}

		jsonBytes, _ := json.MarshalIndent(simple, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "graph_stats",
		Description: "Returns node, edge, and pair counts for the call graph",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GraphStatsArgs) (*mcp.CallToolResult, any, error) {
		if res := s.awaitIndex(ctx); res != nil {
			return res, nil, nil
		}

		stats := s.Graph().Stats()
		indexedCallables, indexedRefs, err := s.store.Counts(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
		}

		result := map[string]any{
			"graph":             stats,
			"indexed_callables": indexedCallables,
			"indexed_refs":      indexedRefs,
		}
		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})
}

// awaitIndex blocks a query tool until the initial index run completes.
// Returns a non-nil result to hand back to the client when the graph is
// not queryable.
func (s *Server) awaitIndex(ctx context.Context) *mcp.CallToolResult {
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := s.WaitForIndex(waitCtx); err != nil {
		status, indexErr, _ := s.GetIndexStatus()
		if indexErr != nil {
			return errorResult(fmt.Sprintf("Indexing failed: %v", indexErr))
		}
		if status == IndexStatusInProgress {
			return errorResult("Indexing in progress, please try again")
		}
		if status == IndexStatusPending {
			return errorResult("Workspace not indexed yet; run the index tool first")
		}
		return errorResult(fmt.Sprintf("Indexing wait failed: %v", err))
	}

	status, indexErr, _ := s.GetIndexStatus()
	if status == IndexStatusFailed {
		return errorResult(fmt.Sprintf("Indexing failed: %v", indexErr))
	}
	if s.Graph() == nil {
		return errorResult("Workspace not indexed yet; run the index tool first")
	}
	return nil
}

func (s *Server) readSource(filePath string, lineStart, lineEnd int) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var builder strings.Builder
	sc := bufio.NewScanner(f)
	currentLine := 1
	first := true
	for sc.Scan() {
		if currentLine >= lineStart && currentLine <= lineEnd {
			if !first {
				builder.WriteByte('\n')
			}
			builder.Write(sc.Bytes())
			first = false
		}
		if currentLine > lineEnd {
			break
		}
		currentLine++
	}

	if err := sc.Err(); err != nil {
		return "", err
	}

	return builder.String(), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
