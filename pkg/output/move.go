package output

import (
	"fmt"
	"time"

	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

// moveOrCreate reconciles one OutputItem's inode against the tree/revtree
// and inodes/revinodes tables: an item that already has an inode is moved
// if its current path differs from item.Path; one that does not yet have an
// inode is assigned a fresh one. Any entry already occupying the target
// tree slot is evicted first (spec.md's "overwriting an existing one").
func moveOrCreate(txn store.Txn, repo workingcopy.WorkingCopy, item OutputItem, priorInode pristine.Inode, hasPrior bool, actualMoves *[][2]string) pristine.Inode {
	basename := basenameOf(item.Path)

	if hasPrior {
		currentPath, ok := inodeFilename(txn, priorInode)
		if ok && currentPath != item.Path {
			if oldParent, oldBasename, ok := getRevtree(txn, priorInode); ok {
				delTree(txn, oldParent, oldBasename, priorInode)
			}
			tmpPath := currentPath + ".pristine-tmp"
			*actualMoves = append(*actualMoves, [2]string{tmpPath, item.Path})
			if existing, ok := getTree(txn, item.Parent, basename); ok && existing != priorInode {
				evict(txn, existing)
			}
			putInode(txn, priorInode, item.Pos)
			putTree(txn, item.Parent, basename, priorInode)
		}
		return priorInode
	}

	if existing, ok := getTree(txn, item.Parent, basename); ok {
		evict(txn, existing)
	}
	inode := createNewInode(txn, item.Parent, basename, uint64(item.Pos.Change)<<32|uint64(item.Pos.Pos))
	putInode(txn, inode, item.Pos)
	putTree(txn, item.Parent, basename, inode)
	return inode
}

// evict removes inode's tree/revtree and inodes/revinodes rows, used when
// a new file is about to take over a tree slot some now-dead inode still
// occupies. Recursing into a directory's own children is out of scope for
// this pass; collectDeadFiles/killDeadFiles handle that sweep separately.
func evict(txn store.Txn, inode pristine.Inode) {
	if parent, basename, ok := getRevtree(txn, inode); ok {
		delTree(txn, parent, basename, inode)
	}
	if pos, ok := getInode(txn, inode); ok {
		delInode(txn, inode, pos)
	}
}

// inodeFilename reconstructs an inode's current full path by walking the
// revtree chain up to the root.
func inodeFilename(txn store.Txn, inode pristine.Inode) (string, bool) {
	if inode == pristine.RootInode {
		return "", true
	}
	var segments []string
	cur := inode
	for cur != pristine.RootInode {
		parent, basename, ok := getRevtree(txn, cur)
		if !ok {
			return "", false
		}
		segments = append([]string{basename}, segments...)
		cur = parent
	}
	path := ""
	for _, s := range segments {
		path = pathJoin(path, s)
	}
	return path, true
}

func basenameOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

// makeConflictingName disambiguates a contested name by suffixing the
// ChangeId of the change that introduced the losing candidate's
// name-vertex, matching the original's "basename.<id>" convention without
// depending on base32 hash formatting for a value that is only a
// tie-breaker, not a content address.
func makeConflictingName(parentDir, basename string, nameVertex pristine.Vertex) string {
	return pathJoin(parentDir, fmt.Sprintf("%s.%d", basename, nameVertex.Change))
}

// needsOutput reports whether path's mtime is after modSince, letting
// Output skip re-rendering files nothing has touched since the working
// copy was last synchronised (spec.md §9's "needs_output mtime skip"). A
// nil modSince (the common full-output case) always needs output.
func needsOutput(repo workingcopy.WorkingCopy, path string, modSince *time.Time) bool {
	if modSince == nil {
		return true
	}
	last, err := repo.ModifiedTime(path)
	if err != nil {
		return true
	}
	return last.After(*modSince)
}
