// Package index persists a built call graph to SQLite so query tools
// can serve lookups without holding the whole workspace in memory and
// so a graph survives across runs.
//
// The index is a downstream consumer of the dependency store: it reads
// Nodes and DirectDependencies from a sealed graph and never feeds data
// back into one.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"callmap/internal/graph"

	_ "github.com/mattn/go-sqlite3"
)

// CallableRow is the serialized form of a callable node.
type CallableRow struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// QualifiedName reassembles the row's identity key.
func (r CallableRow) QualifiedName() graph.QualifiedName {
	return graph.QualifiedName{Namespace: r.Namespace, Name: r.Name}
}

// ReferenceRow is the serialized form of one reference occurrence.
type ReferenceRow struct {
	SourceNamespace string `json:"source_namespace"`
	SourceName      string `json:"source_name"`
	TargetNamespace string `json:"target_namespace"`
	TargetName      string `json:"target_name"`
	FilePath        string `json:"file_path"`
	StartLine       int    `json:"start_line"`
	StartCol        int    `json:"start_col"`
	EndLine         int    `json:"end_line"`
	EndCol          int    `json:"end_col"`
}

const schema = `
CREATE TABLE IF NOT EXISTS callables (
	namespace  TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	start_col  INTEGER NOT NULL,
	end_line   INTEGER NOT NULL,
	end_col    INTEGER NOT NULL,
	PRIMARY KEY (namespace, name)
);

CREATE TABLE IF NOT EXISTS refs (
	source_namespace TEXT NOT NULL,
	source_name      TEXT NOT NULL,
	target_namespace TEXT NOT NULL,
	target_name      TEXT NOT NULL,
	file_path        TEXT NOT NULL,
	start_line       INTEGER NOT NULL,
	start_col        INTEGER NOT NULL,
	end_line         INTEGER NOT NULL,
	end_col          INTEGER NOT NULL,
	UNIQUE (source_namespace, source_name, target_namespace, target_name,
	        file_path, start_line, start_col, end_line, end_col)
);

CREATE INDEX IF NOT EXISTS idx_callables_name ON callables(name);
CREATE INDEX IF NOT EXISTS idx_callables_file ON callables(file_path);
CREATE INDEX IF NOT EXISTS idx_refs_source ON refs(source_namespace, source_name);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target_namespace, target_name);
`

// Index is a SQLite-backed snapshot of a call graph.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the index database at path.
func Open(path string, logger *slog.Logger) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: index path is required", graph.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Index{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// SaveGraph snapshots a sealed graph into the index in one transaction:
// every node is upserted, every edge inserted (value-identical edges
// are kept once), and callables from files no longer present are
// pruned.
func (ix *Index) SaveGraph(ctx context.Context, g *graph.CallGraph) error {
	if g == nil {
		return fmt.Errorf("%w: graph is required", graph.ErrInvalidArgument)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO callables
		(namespace, name, kind, file_path, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare callable upsert: %w", err)
	}
	defer nodeStmt.Close()

	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO refs
		(source_namespace, source_name, target_namespace, target_name,
		 file_path, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare reference insert: %w", err)
	}
	defer edgeStmt.Close()

	files := make(map[string]bool)
	nodes, edges := 0, 0

	for _, node := range g.Nodes() {
		key := node.Key()
		decl := node.Decl()
		if _, err := nodeStmt.ExecContext(ctx,
			key.Namespace, key.Name, string(node.Kind()), node.File(),
			decl.StartLine, decl.StartCol, decl.EndLine, decl.EndCol,
		); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", key, err)
		}
		nodes++
		if node.File() != "" {
			files[node.File()] = true
		}

		deps, err := g.DirectDependencies(node)
		if err != nil {
			return err
		}
		for _, refs := range deps {
			for _, ref := range refs {
				span := ref.Span()
				if _, err := edgeStmt.ExecContext(ctx,
					ref.Source().Namespace, ref.Source().Name,
					ref.Target().Namespace, ref.Target().Name,
					ref.File(), span.StartLine, span.StartCol, span.EndLine, span.EndCol,
				); err != nil {
					return fmt.Errorf("failed to insert reference %s: %w", ref, err)
				}
				edges++
			}
		}
	}

	if err := pruneStaleTx(ctx, tx, files); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	ix.logger.Info("graph snapshot saved", "callables", nodes, "references", edges)
	return nil
}

// pruneStaleTx removes callables (and their references) from files that
// no longer contribute to the graph.
func pruneStaleTx(ctx context.Context, tx *sql.Tx, validFiles map[string]bool) error {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT file_path FROM callables`)
	if err != nil {
		return fmt.Errorf("failed to list indexed files: %w", err)
	}
	var stale []string
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			rows.Close()
			return err
		}
		if file != "" && !validFiles[file] {
			stale = append(stale, file)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, file := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM callables WHERE file_path = ?`, file); err != nil {
			return fmt.Errorf("failed to prune %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE file_path = ?`, file); err != nil {
			return fmt.Errorf("failed to prune references in %s: %w", file, err)
		}
	}

	// References from surviving files can still point at pruned
	// callables; drop any ref whose endpoint row is gone.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM refs WHERE
			NOT EXISTS (SELECT 1 FROM callables c
				WHERE c.namespace = refs.source_namespace AND c.name = refs.source_name)
			OR NOT EXISTS (SELECT 1 FROM callables c
				WHERE c.namespace = refs.target_namespace AND c.name = refs.target_name)`); err != nil {
		return fmt.Errorf("failed to prune dangling references: %w", err)
	}
	return nil
}

// CallablesInFile returns every callable declared in the given file,
// ordered by declaration position.
func (ix *Index) CallablesInFile(ctx context.Context, filePath string) ([]CallableRow, error) {
	return ix.queryCallables(ctx, `
		SELECT namespace, name, kind, file_path, start_line, start_col, end_line, end_col
		FROM callables WHERE file_path = ? ORDER BY start_line, start_col`, filePath)
}

// LookupCallable returns every callable with the given simple name,
// across all namespaces.
func (ix *Index) LookupCallable(ctx context.Context, name string) ([]CallableRow, error) {
	return ix.queryCallables(ctx, `
		SELECT namespace, name, kind, file_path, start_line, start_col, end_line, end_col
		FROM callables WHERE name = ? ORDER BY namespace`, name)
}

// DirectDependents returns the callables that reference the named
// callable in exactly one hop.
func (ix *Index) DirectDependents(ctx context.Context, name graph.QualifiedName) ([]CallableRow, error) {
	return ix.queryCallables(ctx, `
		SELECT DISTINCT c.namespace, c.name, c.kind, c.file_path,
		       c.start_line, c.start_col, c.end_line, c.end_col
		FROM refs r
		JOIN callables c
		  ON c.namespace = r.source_namespace AND c.name = r.source_name
		WHERE r.target_namespace = ? AND r.target_name = ?
		ORDER BY c.namespace, c.name`, name.Namespace, name.Name)
}

// References returns every recorded occurrence between the ordered
// pair, in source order.
func (ix *Index) References(ctx context.Context, source, target graph.QualifiedName) ([]ReferenceRow, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT source_namespace, source_name, target_namespace, target_name,
		       file_path, start_line, start_col, end_line, end_col
		FROM refs
		WHERE source_namespace = ? AND source_name = ?
		  AND target_namespace = ? AND target_name = ?
		ORDER BY file_path, start_line, start_col`,
		source.Namespace, source.Name, target.Namespace, target.Name)
	if err != nil {
		return nil, fmt.Errorf("reference query failed: %w", err)
	}
	defer rows.Close()

	var out []ReferenceRow
	for rows.Next() {
		var r ReferenceRow
		if err := rows.Scan(&r.SourceNamespace, &r.SourceName, &r.TargetNamespace, &r.TargetName,
			&r.FilePath, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counts returns the number of indexed callables and references.
func (ix *Index) Counts(ctx context.Context) (callables, references int, err error) {
	if err = ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM callables`).Scan(&callables); err != nil {
		return 0, 0, fmt.Errorf("callable count failed: %w", err)
	}
	if err = ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM refs`).Scan(&references); err != nil {
		return 0, 0, fmt.Errorf("reference count failed: %w", err)
	}
	return callables, references, nil
}

func (ix *Index) queryCallables(ctx context.Context, query string, args ...any) ([]CallableRow, error) {
	rows, err := ix.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("callable query failed: %w", err)
	}
	defer rows.Close()

	var out []CallableRow
	for rows.Next() {
		var r CallableRow
		if err := rows.Scan(&r.Namespace, &r.Name, &r.Kind, &r.FilePath,
			&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FormatRange renders a row's declaration range the way tool responses
// present locations.
func (r CallableRow) FormatRange() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.StartLine, r.StartCol, r.EndLine, r.EndCol)
}
