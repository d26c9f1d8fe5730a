package graph

import "fmt"

// CallableKind classifies a callable node.
type CallableKind string

const (
	KindFunction  CallableKind = "function"
	KindMethod    CallableKind = "method"
	KindType      CallableKind = "type"
	KindClass     CallableKind = "class"
	KindInterface CallableKind = "interface"
)

// Callable is the concrete node variant for scanned code. Identity is
// the qualified name alone; kind, declaration span, and file path are
// payload and never affect key collision. Two Callable values built
// independently from equal qualified names occupy the same store slot.
//
// Immutable after construction.
type Callable struct {
	name QualifiedName
	kind CallableKind
	decl Span
	file string
}

// NewCallable builds a callable node. The qualified name is required;
// kind, declaration span, and file path are optional payload.
func NewCallable(name QualifiedName, kind CallableKind, decl Span, file string) (Callable, error) {
	if name.IsZero() {
		return Callable{}, fmt.Errorf("%w: callable requires a qualified name", ErrInvalidArgument)
	}
	return Callable{name: name, kind: kind, decl: decl, file: file}, nil
}

// Key returns the qualified name that identifies the callable.
func (c Callable) Key() QualifiedName { return c.name }

// Kind returns the callable's classification.
func (c Callable) Kind() CallableKind { return c.kind }

// Decl returns the span of the callable's declaration.
func (c Callable) Decl() Span { return c.decl }

// File returns the path of the file declaring the callable.
func (c Callable) File() string { return c.file }

func (c Callable) String() string {
	if c.kind == "" {
		return c.name.String()
	}
	return fmt.Sprintf("%s %s", c.kind, c.name)
}

// Reference is the concrete edge variant: one observed reference from
// one callable to another, at one call site. Distinguishing references
// between the same pair of callables is solely the job of the span plus
// multiplicity in the store. The file path is payload.
//
// Reference is a comparable value type: == is structural equality over
// all fields. Immutable after construction.
type Reference struct {
	source QualifiedName
	target QualifiedName
	span   Span
	file   string
}

// NewReference builds a reference edge. Source, target, and span are
// all required; the file path of the referencing site is optional.
func NewReference(source, target QualifiedName, span Span, file string) (Reference, error) {
	if source.IsZero() {
		return Reference{}, fmt.Errorf("%w: reference requires a source name", ErrInvalidArgument)
	}
	if target.IsZero() {
		return Reference{}, fmt.Errorf("%w: reference requires a target name", ErrInvalidArgument)
	}
	if span.IsZero() {
		return Reference{}, fmt.Errorf("%w: reference requires a span", ErrInvalidArgument)
	}
	return Reference{source: source, target: target, span: span, file: file}, nil
}

// Source returns the qualified name of the referencing callable.
func (r Reference) Source() QualifiedName { return r.source }

// Target returns the qualified name of the referenced callable.
func (r Reference) Target() QualifiedName { return r.target }

// Span returns the source-location range of the reference.
func (r Reference) Span() Span { return r.span }

// File returns the path of the file containing the reference.
func (r Reference) File() string { return r.file }

func (r Reference) String() string {
	return fmt.Sprintf("%s -> %s at %s", r.source, r.target, r.span)
}

// CallGraph is the store instantiation used throughout the scanner,
// index, and server: callable nodes with reference edges.
type CallGraph = Store[Callable, Reference]

// NewCallGraph creates an empty call graph.
func NewCallGraph() *CallGraph {
	return NewStore[Callable, Reference]()
}
