package tsgraph

import (
	"io"

	"github.com/jward/tsgraph/internal/emitter"
	"github.com/jward/tsgraph/internal/graph"
)

// Version is the tool version recorded in the metaData vertex.
const Version = "0.1.0"

// Public type aliases for internal types used in the Indexer API. These are
// Go type aliases (=) — identical to the internal types at compile time.

type ProjectInfo = graph.ProjectInfo
type Emitter = emitter.Emitter
type LineEmitter = emitter.LineEmitter
type SQLiteEmitter = emitter.SQLiteEmitter

// NewLineEmitter returns an emitter writing one JSON element per line to w.
// The caller retains ownership of w; Close flushes but does not close it.
func NewLineEmitter(w io.Writer) *LineEmitter {
	return emitter.NewLineEmitter(w)
}

// NewSQLiteEmitter returns an emitter writing the element stream into a
// SQLite database at dbPath.
func NewSQLiteEmitter(dbPath string) (*SQLiteEmitter, error) {
	return emitter.NewSQLiteEmitter(dbPath)
}
