// Package render implements spec.md §6.4 (the VertexBuffer rendering
// callback interface) and a concrete textual renderer that walks an
// alive.Path, producing output with conflict markers the way the original
// implementation's diff/vertex_buffer.rs does.
package render

import "github.com/orneryd/pristine/pkg/pristine"

// ContentsResolver reads the bytes a vertex covers into buf, returning the
// number of bytes written. Backed by a changestore's get_contents in a
// real repository.
type ContentsResolver func(v pristine.Vertex, buf []byte) (int, error)

// VertexBuffer is the rendering callback interface the output engine
// drives (spec.md §6.4). Conflict ids are scoped to one output pass and
// only meaningful as correlation tokens between Begin*/Next/End calls.
type VertexBuffer interface {
	OutputLine(v pristine.Vertex, contents ContentsResolver) error
	BeginConflict(id int, sides []pristine.Hash)
	ConflictNext(id int, side pristine.Hash)
	EndConflict(id int)
	BeginCyclicConflict(id int)
	EndCyclicConflict(id int)
	BeginZombieConflict(id int, sides []pristine.Hash)
	EndZombieConflict(id int)
}
