// Package store defines the pristine store capability (spec.md §6.1): a
// transactional ordered key/value map with cursor-based range iteration.
// It is deliberately small — open, begin a read or write transaction,
// get/put/delete, iterate from a key or over a range, commit or abort —
// because the graph engine in pkg/graph, pkg/apply, pkg/alive, pkg/record
// and pkg/unrecord is meant to run unmodified over any implementation that
// satisfies it. Two implementations ship in this module: a badger-backed
// one (badger_store.go) for real repositories and an in-memory one
// (memory_store.go) for tests, matching spec.md §9's requirement that both
// must pass the same test suite.
package store

import "context"

// Table names one of the pristine's ordered multi-maps (spec.md §3.3).
// Each is a single logical keyspace; implementations are free to multiplex
// tables onto one physical keyspace via a key prefix (as BadgerStore does)
// or keep them as separate maps (as MemoryStore does).
type Table string

const (
	TableGraph          Table = "graph"
	TableInternal       Table = "internal"
	TableExternal       Table = "external"
	TableChangeset      Table = "changeset"
	TableRevchangeset   Table = "revchangeset"
	TableStates         Table = "states"
	TableTags           Table = "tags"
	TableDep            Table = "dep"
	TableRevdep         Table = "revdep"
	TableTouchedFiles   Table = "touched_files"
	TableRevTouchedFiles Table = "rev_touched_files"
	TableTree           Table = "tree"
	TableRevtree        Table = "revtree"
	TableInodes         Table = "inodes"
	TableRevinodes      Table = "revinodes"
	TableRemotes        Table = "remotes"
)

// AllTables lists every table a Store implementation must provision.
var AllTables = []Table{
	TableGraph, TableInternal, TableExternal, TableChangeset, TableRevchangeset,
	TableStates, TableTags, TableDep, TableRevdep, TableTouchedFiles,
	TableRevTouchedFiles, TableTree, TableRevtree, TableInodes, TableRevinodes,
	TableRemotes,
}

// KV is a single key/value pair yielded by a Cursor.
type KV struct {
	Key   []byte
	Value []byte
}

// Cursor iterates a Table's entries in key order starting from a seek
// point. Cursors are bound to the Txn that created them; implementations
// must make them inert once the owning Txn commits or aborts (spec.md §9,
// "Cursor lifetime").
type Cursor interface {
	// Next advances the cursor and reports whether an entry is available.
	Next() bool
	// KV returns the current entry. Valid only after a Next call returned
	// true and before the cursor is closed.
	KV() KV
	// Close releases the cursor. Safe to call multiple times.
	Close()
}

// Txn is a single read or write transaction over every table. Write
// transactions are exclusive per Store (spec.md §5: "single writer
// transaction at a time per pristine store"); read transactions are
// snapshot-isolated and may run concurrently with each other and with the
// one active writer.
type Txn interface {
	// Get returns the value stored for key in table, or (nil, false) if
	// absent.
	Get(table Table, key []byte) ([]byte, bool)
	// Put stores value for key in table. Only valid on a write Txn.
	Put(table Table, key, value []byte)
	// Delete removes key from table if present. Only valid on a write Txn.
	Delete(table Table, key []byte)
	// IterateFrom returns a Cursor starting at the first key >= from
	// (inclusive), in ascending key order, until the table ends.
	IterateFrom(table Table, from []byte) Cursor
	// IterateRange returns a Cursor over [lo, hi) in ascending key order.
	IterateRange(table Table, lo, hi []byte) Cursor
	// Commit persists every mutation made on this Txn. A write Txn that is
	// never committed has no effect once Abort or garbage collection
	// reclaims it.
	Commit() error
	// Abort discards every mutation made on this Txn.
	Abort()
	// Writable reports whether this Txn accepts Put/Delete.
	Writable() bool
}

// Store is the top-level handle a repository opens once. BeginRead and
// BeginWrite both accept a context so long-running scans can be
// cancelled; the graph algorithms themselves have no suspension points
// (spec.md §5) but the store's I/O does.
type Store interface {
	BeginRead(ctx context.Context) (Txn, error)
	BeginWrite(ctx context.Context) (Txn, error)
	Close() error
}

// WithWrite opens a write transaction, runs fn, and commits on success or
// aborts on error or panic. This is the shape every engine entry point
// (Apply, Unrecord, Record) uses to guarantee all-or-nothing semantics
// (spec.md §7, "Propagation policy").
func WithWrite(ctx context.Context, s Store, fn func(Txn) error) (err error) {
	txn, err := s.BeginWrite(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			txn.Abort()
			panic(p)
		}
	}()
	if err = fn(txn); err != nil {
		txn.Abort()
		return err
	}
	return txn.Commit()
}

// WithRead opens a read transaction, runs fn, and always aborts it
// afterward (read transactions never mutate state, so "abort" just
// releases the snapshot).
func WithRead(ctx context.Context, s Store, fn func(Txn) error) error {
	txn, err := s.BeginRead(ctx)
	if err != nil {
		return err
	}
	defer txn.Abort()
	return fn(txn)
}
