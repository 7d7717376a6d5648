// Package path implements property paths: the canonical, interned address
// of a location inside a value tree.
//
// A Path is a sequence of Segments. Textual forms are accepted in dotted and
// bracketed notation and may be mixed:
//
//	user.name
//	items[0].title
//	[items][0][title]
//	config[api.url]        // brackets keep dots literal
//	user.fullName()        // invoked segment
//	user[full.name]()      // invoked segment with a bracketed name
//
// Paths are interned. Two textually equivalent inputs return the same *Path,
// so *Path is usable as a map key and pointer comparison is path equality.
// The table lives for the life of the process; Purge empties it.
package path
