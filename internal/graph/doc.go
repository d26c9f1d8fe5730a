// Package graph implements the dependency store for the call graph:
// a directed, labeled multigraph of callables discovered while scanning
// a codebase.
//
// Nodes are identified solely by their qualified name. Edges record one
// reference occurrence each; because a callable may reference another at
// several call sites, the store keeps every edge between the same ordered
// pair of nodes, in insertion order.
//
// # Lifecycle
//
// A Store is built by a single writer through AddNode and AddDependency,
// then sealed with Seal. After Seal the store is read-only and safe for
// concurrent readers. Mutation after Seal fails with ErrSealed.
//
// The store holds no resources other than memory and performs no
// validation beyond argument presence; it assumes a well-formed upstream
// scan. It deliberately contains no graph algorithms: consumers build
// cycle detection, ordering, and reachability on top of Nodes and
// DirectDependencies.
package graph
