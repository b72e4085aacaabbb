// Package channel implements spec.md §3.4 (Channel) and the bookkeeping
// tables of §3.3 that are keyed per channel or track dependencies: the
// internal/external ChangeId<->Hash bijection, changeset/revchangeset,
// states (Merkle), and dep/revdep. The tags table is not read or written
// here or anywhere else in the engine. pkg/apply and pkg/unrecord call
// into this package to allocate ChangeIds, record/remove a change from a
// channel, and check dependency closure; they never touch these tables
// directly.
package channel

import (
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
)

// internalCounterKey stores the next ChangeId to allocate, a single
// counter shared process-wide per store (ChangeIds are process-local and
// dense, per spec.md §3.1).
var internalCounterKey = []byte("internal:counter")

// Intern maintains the Hash<->ChangeId bijection (spec.md §3.3 "internal" and
// "external" tables). If h is already known its existing ChangeId is
// returned; otherwise a fresh one is allocated.
func Intern(txn store.Txn, h pristine.Hash) pristine.ChangeId {
	if v, ok := txn.Get(store.TableExternal, h[:]); ok {
		return pristine.ChangeId(pristine.DecodeUint64(v))
	}
	next := nextChangeId(txn)
	txn.Put(store.TableExternal, h[:], pristine.EncodeUint64(uint64(next)))
	txn.Put(store.TableInternal, pristine.EncodeUint64(uint64(next)), h[:])
	return next
}

func nextChangeId(txn store.Txn) pristine.ChangeId {
	cur := pristine.ChangeId(1)
	if v, ok := txn.Get(store.TableInternal, internalCounterKey); ok {
		cur = pristine.ChangeId(pristine.DecodeUint64(v))
	}
	txn.Put(store.TableInternal, internalCounterKey, pristine.EncodeUint64(uint64(cur+1)))
	return cur
}

// HashOf returns the Hash a ChangeId was interned from.
func HashOf(txn store.Txn, id pristine.ChangeId) (pristine.Hash, bool) {
	v, ok := txn.Get(store.TableInternal, pristine.EncodeUint64(uint64(id)))
	if !ok {
		return pristine.Hash{}, false
	}
	var h pristine.Hash
	copy(h[:], v)
	return h, true
}

func changesetKey(channel string, id pristine.ChangeId) []byte {
	key := []byte(channel + "\x00")
	return append(key, pristine.EncodeUint64(uint64(id))...)
}

func depKey(id pristine.ChangeId, dep pristine.ChangeId) []byte {
	key := pristine.EncodeUint64(uint64(id))
	return append(key, pristine.EncodeUint64(uint64(dep))...)
}

func revdepKey(dep pristine.ChangeId, id pristine.ChangeId) []byte {
	key := pristine.EncodeUint64(uint64(dep))
	return append(key, pristine.EncodeUint64(uint64(id))...)
}

// IsOnChannel reports whether id is currently recorded on channel.
func IsOnChannel(txn store.Txn, channelName string, id pristine.ChangeId) bool {
	_, ok := txn.Get(store.TableChangeset, changesetKey(channelName, id))
	return ok
}

// RecordOnChannel adds id to channel's changeset/revchangeset, advances the
// channel's Merkle state, and records its dependency edges in dep/revdep.
func RecordOnChannel(txn store.Txn, channelName string, id pristine.ChangeId, h pristine.Hash, deps []pristine.ChangeId) {
	txn.Put(store.TableChangeset, changesetKey(channelName, id), nil)
	txn.Put(store.TableRevchangeset, revchangesetKey(channelName, id), nil)

	prev := CurrentState(txn, channelName)
	next := pristine.NextMerkle(prev, h)
	txn.Put(store.TableStates, []byte(channelName), next[:])

	for _, d := range deps {
		txn.Put(store.TableDep, depKey(id, d), nil)
		txn.Put(store.TableRevdep, revdepKey(d, id), nil)
	}
}

// RemoveFromChannel is RecordOnChannel's inverse, used by pkg/unrecord. It
// does not restore the previous Merkle state (Merkle is a rolling digest,
// not a snapshot); callers that need the old state must have recorded it
// themselves before applying the change being unrecorded.
func RemoveFromChannel(txn store.Txn, channelName string, id pristine.ChangeId, deps []pristine.ChangeId) {
	txn.Delete(store.TableChangeset, changesetKey(channelName, id))
	txn.Delete(store.TableRevchangeset, revchangesetKey(channelName, id))
	for _, d := range deps {
		txn.Delete(store.TableDep, depKey(id, d))
		txn.Delete(store.TableRevdep, revdepKey(d, id))
	}
}

func revchangesetKey(channel string, id pristine.ChangeId) []byte {
	// revchangeset orders by ChangeId first so "every change currently on
	// this channel, in application order" can be scanned without needing
	// the channel name as a prefix discriminator beyond a cheap filter.
	key := pristine.EncodeUint64(uint64(id))
	return append(key, []byte("\x00"+channel)...)
}

// Dependents returns every ChangeId that depends on id, across all
// channels (spec.md §7 ChangeIsDependedUpon).
func Dependents(txn store.Txn, id pristine.ChangeId) []pristine.ChangeId {
	prefix := pristine.EncodeUint64(uint64(id))
	cur := txn.IterateFrom(store.TableRevdep, prefix)
	defer cur.Close()
	var out []pristine.ChangeId
	for cur.Next() {
		kv := cur.KV()
		if len(kv.Key) < 16 {
			break
		}
		if string(kv.Key[:8]) != string(prefix) {
			break
		}
		out = append(out, pristine.ChangeId(pristine.DecodeUint64(kv.Key[8:16])))
	}
	return out
}

// CurrentState returns the channel's current Merkle digest, the zero value
// for a channel with no changes applied yet.
func CurrentState(txn store.Txn, channelName string) pristine.Merkle {
	v, ok := txn.Get(store.TableStates, []byte(channelName))
	if !ok {
		return pristine.Merkle{}
	}
	var m pristine.Merkle
	copy(m[:], v)
	return m
}

// ChangesOn lists every ChangeId currently recorded on channelName, in
// changeset key order. CLI callers use it to build a new change's
// Dependencies list (every change already on the channel is a safe,
// if coarse, dependency set — spec.md leaves the exact minimal-dependency
// computation to the caller, not the engine).
func ChangesOn(txn store.Txn, channelName string) []pristine.ChangeId {
	cur := txn.IterateFrom(store.TableChangeset, []byte(channelName+"\x00"))
	defer cur.Close()
	var ids []pristine.ChangeId
	for cur.Next() {
		kv := cur.KV()
		if len(kv.Key) < len(channelName)+1 || string(kv.Key[:len(channelName)+1]) != channelName+"\x00" {
			break
		}
		ids = append(ids, pristine.ChangeId(pristine.DecodeUint64(kv.Key[len(channelName)+1:])))
	}
	return ids
}

// Fork creates a new channel name that starts from the same changeset as
// from (spec.md §3.4). Both channels share the underlying graph; forking
// only copies the changeset/revchangeset rows and the Merkle state, since
// the graph and dep/revdep tables are global to the pristine, not
// per-channel.
func Fork(txn store.Txn, from, to string) {
	ids := ChangesOn(txn, from)
	for _, id := range ids {
		txn.Put(store.TableChangeset, changesetKey(to, id), nil)
		txn.Put(store.TableRevchangeset, revchangesetKey(to, id), nil)
	}
	if v, ok := txn.Get(store.TableStates, []byte(from)); ok {
		txn.Put(store.TableStates, []byte(to), v)
	}
}
