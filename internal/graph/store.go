package graph

import (
	"fmt"
	"reflect"
	"time"
)

// Store is the adjacency engine: for every registered node it holds,
// per distinct child, the ordered list of edges recorded between the
// pair. It is generic over the node and edge variants so concrete call
// graphs can attach payload beyond the identity fields without the
// payload leaking into key semantics.
//
// The store is append-only. Nodes and edges are never removed or
// overwritten; every node that ever appears as an edge endpoint is a
// top-level key, even when it has no outgoing edges of its own.
//
// Not safe for concurrent use during building. Safe for concurrent
// readers once Seal has been called.
type Store[N Node, E Edge] struct {
	// nodes holds the node value registered for each qualified name.
	// The first registration wins; later registrations of an equal key
	// are no-ops regardless of payload.
	nodes map[QualifiedName]N

	// deps is the two-level adjacency: source key -> target key ->
	// edges between the pair, in insertion order.
	deps map[QualifiedName]map[QualifiedName][]E

	sealed   bool
	sealedAt time.Time
}

// NewStore creates an empty, unsealed store.
func NewStore[N Node, E Edge]() *Store[N, E] {
	return &Store[N, E]{
		nodes: make(map[QualifiedName]N),
		deps:  make(map[QualifiedName]map[QualifiedName][]E),
	}
}

// Count returns the number of distinct qualified names registered,
// whether they arrived as sources, targets, or via AddNode.
func (s *Store[N, E]) Count() int {
	return len(s.nodes)
}

// Nodes returns every registered node, deduplicated by qualified name.
// Order is unspecified.
func (s *Store[N, E]) Nodes() []N {
	out := make([]N, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// Lookup returns the node registered under the given qualified name.
func (s *Store[N, E]) Lookup(name QualifiedName) (N, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// DirectDependencies returns, for each distinct child reachable from
// node in exactly one hop, every edge recorded between node and that
// child, in insertion order.
//
// An unknown node, or a known node with no outgoing edges, yields an
// empty map; neither is an error. The only failure is a missing node
// argument.
func (s *Store[N, E]) DirectDependencies(node N) (map[QualifiedName][]E, error) {
	if missing(node) {
		return nil, fmt.Errorf("%w: node is required", ErrInvalidArgument)
	}

	children := s.deps[node.Key()]
	out := make(map[QualifiedName][]E, len(children))
	for child, edges := range children {
		cp := make([]E, len(edges))
		copy(cp, edges)
		out[child] = cp
	}
	return out, nil
}

// AddDependency records one reference occurrence from one callable to
// another. The edge is appended to the sequence stored under the
// (from, to) pair; earlier edges for the pair are never overwritten.
// Both endpoints are registered as store keys, so a target that never
// appears as a source still shows up in Nodes.
//
// All three arguments are required. Validation happens before any
// mutation: a failed call leaves the store unchanged.
func (s *Store[N, E]) AddDependency(from, to N, edge E) error {
	if s.sealed {
		return ErrSealed
	}
	if missing(from) {
		return fmt.Errorf("%w: from node is required", ErrInvalidArgument)
	}
	if missing(to) {
		return fmt.Errorf("%w: to node is required", ErrInvalidArgument)
	}
	if missing(edge) {
		return fmt.Errorf("%w: edge is required", ErrInvalidArgument)
	}

	s.register(from)
	s.register(to)

	fromKey, toKey := from.Key(), to.Key()
	pairs := s.deps[fromKey]
	if pairs == nil {
		pairs = make(map[QualifiedName][]E)
		s.deps[fromKey] = pairs
	}
	pairs[toKey] = append(pairs[toKey], edge)
	return nil
}

// AddNode idempotently registers a node as a store key. Used for
// isolated callables (referenced nowhere, with no outgoing references)
// that would otherwise never appear via AddDependency.
func (s *Store[N, E]) AddNode(node N) error {
	if s.sealed {
		return ErrSealed
	}
	if missing(node) {
		return fmt.Errorf("%w: node is required", ErrInvalidArgument)
	}
	s.register(node)
	return nil
}

// register records the node under its key unless an equal key is
// already present. Node equality governs the collision, not payload.
func (s *Store[N, E]) register(node N) {
	key := node.Key()
	if _, ok := s.nodes[key]; !ok {
		s.nodes[key] = node
	}
}

// Seal transitions the store to read-only mode. One-way: after Seal,
// AddNode and AddDependency return ErrSealed, and the store may be
// read from multiple goroutines without synchronization.
func (s *Store[N, E]) Seal() {
	if s.sealed {
		return
	}
	s.sealed = true
	s.sealedAt = time.Now()
}

// Sealed reports whether Seal has been called.
func (s *Store[N, E]) Sealed() bool {
	return s.sealed
}

// SealedAt returns when Seal was called, or the zero time if the store
// is still accepting writes.
func (s *Store[N, E]) SealedAt() time.Time {
	return s.sealedAt
}

// Stats summarizes the store.
type Stats struct {
	// Nodes is the number of distinct qualified names registered.
	Nodes int `json:"nodes"`

	// Edges is the total number of recorded reference occurrences.
	Edges int `json:"edges"`

	// Pairs is the number of ordered (source, target) pairs with at
	// least one edge.
	Pairs int `json:"pairs"`

	// Sealed reports whether the store is read-only.
	Sealed bool `json:"sealed"`
}

// Stats returns counts over the current contents. Safe for concurrent
// use only on a sealed store.
func (s *Store[N, E]) Stats() Stats {
	st := Stats{Nodes: len(s.nodes), Sealed: s.sealed}
	for _, pairs := range s.deps {
		st.Pairs += len(pairs)
		for _, edges := range pairs {
			st.Edges += len(edges)
		}
	}
	return st
}

// missing reports whether a generic node or edge argument is absent:
// a nil interface, a nil pointer behind the interface, or a zero value
// (for value-typed variants, one that was never constructed).
func missing(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}
