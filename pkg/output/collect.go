package output

import (
	"github.com/orneryd/pristine/pkg/changestore"
	"github.com/orneryd/pristine/pkg/graph"
	"github.com/orneryd/pristine/pkg/pristine"
	"github.com/orneryd/pristine/pkg/store"
	"github.com/orneryd/pristine/pkg/workingcopy"
)

// Every directory entry in the graph is a pair of FOLDER edges: one from
// the directory's own content position to a "name vertex" whose bytes
// encode (is_dir, mode, basename), and one from that name vertex onward to
// the entry's own content position (the position collectChildren reports
// as the candidate's OutputItem.Pos, and the position a file's body is
// rendered from). This mirrors the original's name_vertex/inode_vertex
// split without carrying over its packed binary header format, which is
// this module's own Non-goal (spec.md never prescribes it).

func nameVertexMeta(basename string, isDir bool, mode uint32) []byte {
	b := make([]byte, 0, len(basename)+2)
	if isDir {
		b = append(b, 1)
	} else {
		b = append(b, 0)
	}
	b = append(b, byte(mode))
	return append(b, []byte(basename)...)
}

func decodeNameVertexMeta(raw []byte) (isDir bool, mode uint32, basename string) {
	if len(raw) < 2 {
		return false, 0, ""
	}
	return raw[0] == 1, uint32(raw[1]), string(raw[2:])
}

// collectChildren walks parentPos's FOLDER children (one level), resolving
// each name vertex's metadata and its onward content position, grouping
// results by the tentative full path a child claims.
func collectChildren(txn store.Txn, cs changestore.Changestore, parentPos pristine.Position, parentInode pristine.Inode, parentPath string) map[string][]candidate {
	result := make(map[string][]candidate)
	parentVertex, err := graph.FindBlock(txn, parentPos)
	if err != nil {
		return result
	}

	resolver := changestore.ContentsResolver(txn, cs)
	for _, e := range graph.ForwardEdges(txn, parentVertex) {
		if !e.Flags.Has(pristine.EdgeFolder) || e.Flags.Has(pristine.EdgeDeleted) {
			continue
		}
		nameVertex := e.Target
		raw := make([]byte, nameVertex.Len())
		n, err := resolver(nameVertex, raw)
		if err != nil {
			continue
		}
		isDir, mode, basename := decodeNameVertexMeta(raw[:n])
		if basename == "" {
			continue
		}

		childPos, isZombie, ok := childPosition(txn, nameVertex)
		if !ok {
			continue
		}

		fullPath := pathJoin(parentPath, basename)
		result[fullPath] = append(result[fullPath], candidate{
			name: nameVertex,
			item: OutputItem{
				Pos:      childPos,
				Parent:   parentInode,
				Meta:     workingcopy.Metadata{Mode: mode, IsDir: isDir},
				IsZombie: isZombie,
			},
		})
	}
	return result
}

// childPosition finds the onward FOLDER edge from a name vertex to the
// entry's own content position. isZombie reports whether that edge is only
// a PSEUDO repair rather than a real edge from some recorded change
// (spec.md's zombie: alive only through context-repair).
func childPosition(txn store.Txn, nameVertex pristine.Vertex) (pos pristine.Position, isZombie bool, ok bool) {
	for _, e := range graph.ForwardEdges(txn, nameVertex) {
		if !e.Flags.Has(pristine.EdgeFolder) || e.Flags.Has(pristine.EdgeDeleted) {
			continue
		}
		return e.Target.StartPos(), e.Flags.Has(pristine.EdgePseudo), true
	}
	return pristine.Position{}, false, false
}

// isAliveOrZombie reports whether v still has a non-deleted parent edge
// that is PSEUDO, BLOCK, or (for an empty v) of any kind, distinguishing a
// genuinely dead file (no reachable parent at all) from one kept reachable
// only by context repair. The FOLDER flag is not checked.
func isAliveOrZombie(txn store.Txn, v pristine.Vertex) bool {
	if v.IsRoot() {
		return true
	}
	for _, e := range graph.ReverseEdges(txn, v) {
		if e.Flags.Has(pristine.EdgeDeleted) {
			continue
		}
		if !e.Flags.Has(pristine.EdgePseudo) && (e.Flags.Has(pristine.EdgeBlock) || v.Len() == 0) {
			return true
		}
		if e.Flags.Has(pristine.EdgePseudo) {
			return true
		}
	}
	return false
}

// collectDeadFiles walks the tree table under root, returning every
// (parent, basename) -> (inode, current path) entry whose graph position
// is no longer alive or zombie: a file or directory some change deleted
// since the working copy was last output.
func collectDeadFiles(txn store.Txn, root pristine.Inode) map[treeEntry]deadFile {
	dead := make(map[treeEntry]deadFile)
	queue := []pristine.Inode{root}
	for len(queue) > 0 {
		var nextQueue []pristine.Inode
		for _, parent := range queue {
			for _, child := range listTreeChildren(txn, parent) {
				pos, hasPos := getInode(txn, child.inode)
				isDead := hasPos && !isAliveOrZombie(txn, pristine.Vertex{Change: pos.Change, Start: pos.Pos, End: pos.Pos})
				if !hasPos {
					isDead = true
				}
				if isDead {
					name, _ := inodeFilename(txn, child.inode)
					dead[treeEntry{parent: parent, basename: child.basename}] = deadFile{inode: child.inode, path: name}
				}
				nextQueue = append(nextQueue, child.inode)
			}
		}
		queue = nextQueue
	}
	return dead
}

type treeEntry struct {
	parent   pristine.Inode
	basename string
}

type deadFile struct {
	inode pristine.Inode
	path  string
}

type treeChild struct {
	basename string
	inode    pristine.Inode
}

// listTreeChildren scans the tree table for every entry directly under
// parent.
func listTreeChildren(txn store.Txn, parent pristine.Inode) []treeChild {
	prefix := pristine.EncodeUint64(uint64(parent))
	cur := txn.IterateFrom(store.TableTree, prefix)
	defer cur.Close()

	var out []treeChild
	for cur.Next() {
		kv := cur.KV()
		if len(kv.Key) < 8 || string(kv.Key[:8]) != string(prefix) {
			break
		}
		out = append(out, treeChild{
			basename: string(kv.Key[8:]),
			inode:    pristine.Inode(pristine.DecodeUint64(kv.Value)),
		})
	}
	return out
}

// killDeadFiles removes every dead entry's tree/revtree and inodes/revinodes
// rows and, if the working copy still holds the file, its path.
func killDeadFiles(txn store.Txn, repo workingcopy.WorkingCopy, dead map[treeEntry]deadFile) error {
	for entry, df := range dead {
		delTree(txn, entry.parent, entry.basename, df.inode)
		if pos, ok := getInode(txn, df.inode); ok {
			delInode(txn, df.inode, pos)
		}
		if df.path != "" {
			if err := repo.RemovePath(df.path, true); err != nil {
				return err
			}
		}
	}
	return nil
}
