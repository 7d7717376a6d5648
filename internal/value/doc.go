// Package value provides the value tree the reactive engine observes.
//
// Every value is classified once by Kind: a Leaf (Null, Absent, String, Int,
// Float, Bool), a Callable (*Func), or a container (*Object for map-like
// data, *List for list-like data). Containers are pointers so their identity
// is stable; the engine keys its wrapper cache on that identity.
//
// This package imports nothing internal. path and reactive build on it.
//
// Key design constraints:
//   - Absent is distinct from Null: it marks a missing key or a list hole
//   - Object keeps insertion order; canonical encoding sorts keys
//   - Frozen containers reject every write with ErrFrozen
package value
