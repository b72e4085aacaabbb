package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// tablePrefix assigns each logical Table a single leading byte inside
// badger's flat keyspace, the same scheme the teacher's badger engine uses
// for its node/edge/index tables (one prefix byte per logical table,
// physical keys built as prefix||logicalKey).
var tablePrefix = map[Table]byte{
	TableGraph:           0x01,
	TableInternal:        0x02,
	TableExternal:        0x03,
	TableChangeset:       0x04,
	TableRevchangeset:    0x05,
	TableStates:          0x06,
	TableTags:            0x07,
	TableDep:             0x08,
	TableRevdep:          0x09,
	TableTouchedFiles:    0x0a,
	TableRevTouchedFiles: 0x0b,
	TableTree:            0x0c,
	TableRevtree:         0x0d,
	TableInodes:          0x0e,
	TableRevinodes:       0x0f,
	TableRemotes:         0x10,
}

func physicalKey(table Table, key []byte) []byte {
	out := make([]byte, 0, 1+len(key))
	out = append(out, tablePrefix[table])
	out = append(out, key...)
	return out
}

// BadgerOptions configures a BadgerStore, mirroring the teacher's
// BadgerOptions{DataDir, InMemory, SyncWrites, Logger} shape.
type BadgerOptions struct {
	DataDir    string
	InMemory   bool
	SyncWrites bool
}

// BadgerStore is the on-disk Store implementation, backed by badger's
// transactional, ordered, LSM-tree key/value engine. It is the reference
// store a real repository opens; pkg/changestore and pkg/workingcopy have
// their own, independent on-disk footprints (spec.md §6 treats them as
// separate external collaborators).
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		bopts = bopts.WithInMemory(true)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites)
	bopts = bopts.WithLogger(nil)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) BeginRead(ctx context.Context) (Txn, error) {
	return &badgerTxn{txn: s.db.NewTransaction(false), writable: false}, nil
}

func (s *BadgerStore) BeginWrite(ctx context.Context) (Txn, error) {
	return &badgerTxn{txn: s.db.NewTransaction(true), writable: true}, nil
}

type badgerTxn struct {
	txn      *badger.Txn
	writable bool
}

func (t *badgerTxn) Writable() bool { return t.writable }

func (t *badgerTxn) Get(table Table, key []byte) ([]byte, bool) {
	item, err := t.txn.Get(physicalKey(table, key))
	if err != nil {
		return nil, false
	}
	var out []byte
	err = item.Value(func(val []byte) error {
		out = append([]byte(nil), val...)
		return nil
	})
	if err != nil {
		return nil, false
	}
	return out, true
}

func (t *badgerTxn) Put(table Table, key, value []byte) {
	if err := t.txn.Set(physicalKey(table, key), value); err != nil {
		// badger.Txn.Set only errors when the transaction has grown past
		// its configured size limit; the graph engine never batches that
		// much into a single change, so this indicates a caller bug, not
		// a recoverable store condition.
		panic(err)
	}
}

func (t *badgerTxn) Delete(table Table, key []byte) {
	if err := t.txn.Delete(physicalKey(table, key)); err != nil {
		panic(err)
	}
}

func (t *badgerTxn) IterateFrom(table Table, from []byte) Cursor {
	prefix := []byte{tablePrefix[table]}
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	start := physicalKey(table, from)
	return &badgerCursor{it: it, prefix: prefix, start: start, first: true}
}

func (t *badgerTxn) IterateRange(table Table, lo, hi []byte) Cursor {
	prefix := []byte{tablePrefix[table]}
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	start := physicalKey(table, lo)
	var end []byte
	if hi != nil {
		end = physicalKey(table, hi)
	}
	return &badgerCursor{it: it, prefix: prefix, start: start, end: end, first: true}
}

func (t *badgerTxn) Commit() error {
	return t.txn.Commit()
}

func (t *badgerTxn) Abort() {
	t.txn.Discard()
}

type badgerCursor struct {
	it     *badger.Iterator
	prefix []byte
	start  []byte
	end    []byte
	first  bool
}

func (c *badgerCursor) Next() bool {
	if c.first {
		c.it.Seek(c.start)
		c.first = false
	} else {
		c.it.Next()
	}
	if !c.it.ValidForPrefix(c.prefix) {
		return false
	}
	if c.end != nil {
		key := c.it.Item().Key()
		if cmp(key, c.end) >= 0 {
			return false
		}
	}
	return true
}

func (c *badgerCursor) KV() KV {
	item := c.it.Item()
	key := append([]byte(nil), item.Key()[1:]...)
	var val []byte
	_ = item.Value(func(v []byte) error {
		val = append([]byte(nil), v...)
		return nil
	})
	return KV{Key: key, Value: val}
}

func (c *badgerCursor) Close() {
	c.it.Close()
}

func cmp(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
