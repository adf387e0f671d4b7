// Package emitter owns the output side of an indexing run. Exactly one
// Emitter exists per run and every producer funnels through it, so the
// stream's element order is exactly the call order. An Emitter never holds
// more than the element currently being written; the whole-run graph is
// never materialized in memory.
package emitter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jward/tsgraph/internal/protocol"
)

// Element is the narrow view the emitter requires of a vertex or edge: an
// identifier and a serializable body. The concrete shape is owned by the
// protocol package.
type Element interface {
	Header() protocol.Element
}

// Emitter appends one textual record per graph element to the output sink,
// in call order, with no reordering or batching. Emitted elements cannot be
// undone.
type Emitter interface {
	Emit(el Element) error
	Close() error
}

// LineEmitter writes one JSON object per line to an io.Writer.
type LineEmitter struct {
	w     *bufio.Writer
	count uint64
}

var _ Emitter = (*LineEmitter)(nil)

// NewLineEmitter wraps w in a buffered line-delimited JSON emitter. The
// caller retains ownership of w; Close flushes but does not close it.
func NewLineEmitter(w io.Writer) *LineEmitter {
	return &LineEmitter{w: bufio.NewWriter(w)}
}

// Emit serializes el to exactly one line.
func (e *LineEmitter) Emit(el Element) error {
	data, err := json.Marshal(el)
	if err != nil {
		return fmt.Errorf("marshal element %d: %w", el.Header().ID, err)
	}
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write element %d: %w", el.Header().ID, err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write element %d: %w", el.Header().ID, err)
	}
	e.count++
	return nil
}

// Count returns the number of elements emitted so far.
func (e *LineEmitter) Count() uint64 { return e.count }

// Close flushes buffered output.
func (e *LineEmitter) Close() error {
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
