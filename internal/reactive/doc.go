// Package reactive implements the reactive state engine.
//
// A State wraps a value tree so that writes at any depth are observed.
// Observers subscribe to a canonical path in one of two tables:
//
//	change  called before a write, may cancel it or replace the value
//	notify  called after a write, batched and deduplicated per flush
//
// ARCHITECTURE:
//
// Wrapping:
// Containers are wrapped lazily in *Node values. The arena maps each
// underlying container (by identity) to exactly one NodeID and *Node, so a
// self-referential tree resolves back to the same wrapper and repeated reads
// return the same instance. A node remembers the first path it was reached
// by.
//
// Mutation pipeline:
//  1. Read the old value; equal values are a no-op
//  2. Dispatch a cancelable Change to change observers on the exact path
//  3. Apply the write to the underlying container
//  4. Enqueue the path, the diff of old against new, and every ancestor
//  5. Flush immediately when no flush interval is configured
//
// Bulk list operations (Push, Splice, Sort, ...) raise one Change for the
// list path and enqueue the list path plus the diff of a pre-operation
// snapshot against the live list.
//
// Concurrency:
// A periodic flush runs on the Scheduler's goroutine, so State guards its
// arena, registry and queue with a mutex. The mutex is never held while an
// observer runs. Observers may read and write the state; writes made during
// a flush are delivered by the same flush loop.
//
// Ordering:
// Every Change is stamped with a seq from the logical Clock. Notifications
// are delivered in enqueue order, then observer registration order.
package reactive
