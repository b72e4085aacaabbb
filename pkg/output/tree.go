package output

import (
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"golang.org/x/crypto/blake2b"
)

// treeKey/revtreeKey/inodeKey/revinodeKey implement the tree/revtree and
// inodes/revinodes tables of spec.md §3.3: the working copy's inode
// namespace and its two bijections to (parent inode, basename) and to a
// graph Position.

func treeKey(parent pristine.Inode, basename string) []byte {
	key := pristine.EncodeUint64(uint64(parent))
	return append(key, []byte(basename)...)
}

func revtreeKey(inode pristine.Inode) []byte {
	return pristine.EncodeUint64(uint64(inode))
}

func inodeKey(inode pristine.Inode) []byte {
	return pristine.EncodeUint64(uint64(inode))
}

func positionKey(pos pristine.Position) []byte {
	key := pristine.EncodeUint64(uint64(pos.Change))
	return append(key, pristine.EncodeUint64(uint64(pos.Pos))...)
}

func putTree(txn store.Txn, parent pristine.Inode, basename string, inode pristine.Inode) {
	txn.Put(store.TableTree, treeKey(parent, basename), pristine.EncodeUint64(uint64(inode)))
	txn.Put(store.TableRevtree, revtreeKey(inode), treeKey(parent, basename))
}

func getTree(txn store.Txn, parent pristine.Inode, basename string) (pristine.Inode, bool) {
	v, ok := txn.Get(store.TableTree, treeKey(parent, basename))
	if !ok {
		return 0, false
	}
	return pristine.Inode(pristine.DecodeUint64(v)), true
}

func delTree(txn store.Txn, parent pristine.Inode, basename string, inode pristine.Inode) {
	txn.Delete(store.TableTree, treeKey(parent, basename))
	txn.Delete(store.TableRevtree, revtreeKey(inode))
}

// getRevtree recovers the (parent, basename) pair an inode is currently
// filed under, used to find its current path before a move.
func getRevtree(txn store.Txn, inode pristine.Inode) (parent pristine.Inode, basename string, ok bool) {
	v, found := txn.Get(store.TableRevtree, revtreeKey(inode))
	if !found || len(v) < 8 {
		return 0, "", false
	}
	return pristine.Inode(pristine.DecodeUint64(v[:8])), string(v[8:]), true
}

func putInode(txn store.Txn, inode pristine.Inode, pos pristine.Position) {
	txn.Put(store.TableInodes, inodeKey(inode), positionKey(pos))
	txn.Put(store.TableRevinodes, positionKey(pos), inodeKey(inode))
}

func getInode(txn store.Txn, inode pristine.Inode) (pristine.Position, bool) {
	v, ok := txn.Get(store.TableInodes, inodeKey(inode))
	if !ok || len(v) < 16 {
		return pristine.Position{}, false
	}
	return pristine.Position{Change: pristine.ChangeId(pristine.DecodeUint64(v[:8])), Pos: pristine.ChangePosition(pristine.DecodeUint64(v[8:]))}, true
}

func getRevinode(txn store.Txn, pos pristine.Position) (pristine.Inode, bool) {
	v, ok := txn.Get(store.TableRevinodes, positionKey(pos))
	if !ok {
		return 0, false
	}
	return pristine.Inode(pristine.DecodeUint64(v)), true
}

func delInode(txn store.Txn, inode pristine.Inode, pos pristine.Position) {
	txn.Delete(store.TableInodes, inodeKey(inode))
	txn.Delete(store.TableRevinodes, positionKey(pos))
}

// createNewInode derives a fresh Inode from (parent, basename, salt) by
// hashing with blake2b and linearly probing past collisions, so repeated
// output passes over an unchanged tree assign the same inodes without
// needing a persistent counter (spec.md §9, working copy Inode stability).
func createNewInode(txn store.Txn, parent pristine.Inode, basename string, salt uint64) pristine.Inode {
	h, _ := blake2b.New256(nil)
	h.Write(pristine.EncodeUint64(uint64(parent)))
	h.Write([]byte(basename))
	h.Write(pristine.EncodeUint64(salt))
	sum := h.Sum(nil)
	i := pristine.DecodeUint64(sum[:8])
	if i == uint64(pristine.RootInode) {
		i++
	}
	for {
		inode := pristine.Inode(i)
		if _, _, ok := getRevtree(txn, inode); !ok {
			return inode
		}
		i++
	}
}
