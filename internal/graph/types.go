package graph

import "fmt"

// QualifiedName uniquely identifies a callable: the namespace it lives
// in (package, module, or file scope) plus its simple name. It is the
// store's key type; two names are the same key exactly when both fields
// are equal.
type QualifiedName struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// NewQualifiedName builds a qualified name from its two parts.
// The simple name is required; the namespace may be empty for
// top-level entities.
func NewQualifiedName(namespace, name string) (QualifiedName, error) {
	if name == "" {
		return QualifiedName{}, fmt.Errorf("%w: qualified name requires a simple name", ErrInvalidArgument)
	}
	return QualifiedName{Namespace: namespace, Name: name}, nil
}

// IsZero reports whether the qualified name is missing.
func (q QualifiedName) IsZero() bool {
	return q.Name == "" && q.Namespace == ""
}

// String renders the name as "Namespace.Name", or just the simple name
// when there is no namespace.
func (q QualifiedName) String() string {
	if q.Namespace == "" {
		return q.Name
	}
	return q.Namespace + "." + q.Name
}

// Span is the source-location range of a reference occurrence.
// Lines and columns are 1-based; a zero Span means "no location".
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// IsZero reports whether the span is missing.
func (s Span) IsZero() bool {
	return s == Span{}
}

// String renders the span as "startLine:startCol-endLine:endCol".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// Node is the identity contract for store keys. Implementations expose
// a stable, value-comparable qualified name; any richer payload a
// concrete variant carries is not part of identity and must not affect
// key collision.
type Node interface {
	Key() QualifiedName
}

// Edge is the identity contract for reference occurrences: source key,
// target key, and the span of the reference. Equality is structural
// over the three fields. Edges that differ only in span are distinct;
// that is the multigraph property.
type Edge interface {
	Source() QualifiedName
	Target() QualifiedName
	Span() Span
}
