// Package output implements spec.md §4.3/§9: rendering the pristine's
// alive subgraph back onto a working copy, reconciling file adds, deletes
// and renames against the tree/inodes bookkeeping tables as it goes.
//
// Output walks the folder subgraph breadth-first, one directory level at a
// time. Every FOLDER child collected under a directory is inserted into the
// next level's work map under its *tentative* full path (parent path plus
// the basename its own name-vertex carries); two candidates landing on the
// same key is exactly a name conflict, detected without ever touching the
// working copy's own directory listing. File bodies are rendered on a
// worker pool; tree/inode mutations and renames are funnelled back through
// the coordinator goroutine, since those tables are shared mutable state
// the workers must not race on (spec.md §9, "Output parallelism").
package output

import (
	"context"
	"sort"
	"time"

	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/telemetry"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

// Options controls a single Output run.
type Options struct {
	// OutputNameConflicts, when true, renders every candidate for a
	// contested name under a disambiguated path (see makeConflictingName)
	// instead of dropping every candidate past the first.
	OutputNameConflicts bool
	// NWorkers is the size of the file-rendering worker pool. A value below
	// 1 is treated as 1; rendering always runs on the pool's goroutines.
	NWorkers int
	// ModifiedSince, when set, skips re-rendering any file whose working
	// copy mtime is not after it (spec.md §9, "needs_output mtime skip").
	ModifiedSince *time.Time
}

// Output synchronises repo with channelName's alive subgraph, reporting
// every Conflict encountered (name clashes, zombie files, cyclic or
// ordering conflicts surfaced while rendering a file's body).
//
// **WARNING**: this overwrites repo, discarding any unrecorded edit.
func Output(ctx context.Context, s store.Store, cs changestore.Changestore, repo workingcopy.WorkingCopy, tel *telemetry.Telemetry, channelName string, opts Options) ([]Conflict, error) {
	stop := tel.StartTimer("output")
	defer stop()

	var conflicts []Conflict
	err := store.WithWrite(ctx, s, func(txn store.Txn) error {
		var innerErr error
		conflicts, innerErr = outputTxn(txn, cs, repo, opts)
		return innerErr
	})
	return conflicts, err
}

func outputTxn(txn store.Txn, cs changestore.Changestore, repo workingcopy.WorkingCopy, opts Options) ([]Conflict, error) {
	nWorkers := opts.NWorkers
	if nWorkers < 1 {
		nWorkers = 1
	}

	pool := newPool(nWorkers, txn, cs, repo)
	defer pool.stop()

	var conflicts []Conflict
	rootItem := OutputItem{Pos: pristine.RootVertex.StartPos(), Parent: pristine.RootInode, Meta: workingcopy.Metadata{IsDir: true}}
	files := map[string][]candidate{"": {{name: pristine.RootVertex, item: rootItem}}}

	doneInodes := make(map[pristine.Inode]bool)
	doneVertices := make(map[pristine.Position]pathEntry)
	var actualMoves [][2]string

	for len(files) > 0 {
		next := make(map[string][]candidate)
		for fullPath, cands := range files {
			sort.Slice(cands, func(i, j int) bool {
				return cands[i].name.Change < cands[j].name.Change
			})

			firstName := true
			for _, cand := range cands {
				if existing, seen := doneVertices[cand.item.Pos]; seen {
					if existing.name != cand.name {
						conflicts = append(conflicts, Conflict{Kind: ConflictMultipleNames, Pos: cand.item.Pos, Path: existing.path})
					}
					continue
				}

				existingInode, hasInode := getRevinode(txn, cand.item.Pos)
				if hasInode && doneInodes[existingInode] {
					continue
				}

				path := fullPath
				if !firstName {
					if opts.OutputNameConflicts {
						path = makeConflictingName(parentOf(fullPath), basenameOf(fullPath), cand.name)
						conflicts = append(conflicts, Conflict{Kind: ConflictName, Path: path})
					} else {
						conflicts = append(conflicts, Conflict{Kind: ConflictName, Path: fullPath})
						continue
					}
				} else {
					firstName = false
				}

				doneVertices[cand.item.Pos] = pathEntry{name: cand.name, path: path}
				cand.item.Path = path

				var priorInode pristine.Inode
				if hasInode {
					priorInode = existingInode
					doneInodes[existingInode] = true
				}

				var inode pristine.Inode
				if cand.item.Pos.Change == pristine.RootChangeId && cand.item.Pos.Pos == 0 {
					// The repository root is always Inode 1; it never goes
					// through moveOrCreate's tree-slot bookkeeping.
					inode = pristine.RootInode
				} else {
					inode = moveOrCreate(txn, repo, cand.item, priorInode, hasInode, &actualMoves)
				}
				doneInodes[inode] = true

				if cand.item.Meta.IsDir {
					if path != "" {
						if err := repo.CreateDirAll(path); err != nil {
							return conflicts, err
						}
					}
					for childPath, c := range collectChildren(txn, cs, cand.item.Pos, inode, path) {
						next[childPath] = append(next[childPath], c...)
					}
					if err := repo.SetPermissions(path, cand.item.Meta.Mode); err != nil {
						return conflicts, err
					}
				} else if needsOutput(repo, path, opts.ModifiedSince) {
					pool.submit(renderJob{item: cand.item, path: path})
				}

				if cand.item.IsZombie {
					conflicts = append(conflicts, Conflict{Kind: ConflictZombieFile, Path: path})
				}
			}
		}
		files = next
	}

	jobConflicts, err := pool.drain()
	conflicts = append(conflicts, jobConflicts...)
	if err != nil {
		return conflicts, err
	}

	for _, mv := range actualMoves {
		if err := repo.Rename(mv[0], mv[1]); err != nil {
			return conflicts, err
		}
	}

	dead := collectDeadFiles(txn, pristine.RootInode)
	if len(dead) > 0 {
		if err := killDeadFiles(txn, repo, dead); err != nil {
			return conflicts, err
		}
	}

	return conflicts, nil
}

type pathEntry struct {
	name pristine.Vertex
	path string
}

func pathJoin(dir, base string) string {
	if dir == "" {
		return base
	}
	return dir + "/" + base
}

func parentOf(path string) string {
	base := basenameOf(path)
	parent := path[:len(path)-len(base)]
	if len(parent) > 0 {
		parent = parent[:len(parent)-1]
	}
	return parent
}
