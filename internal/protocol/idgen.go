package protocol

// Generator is the run-wide identifier source. Every vertex, edge, and
// project record in one indexing run draws its ID from the same Generator,
// which is what keeps identifiers unique across an arbitrarily deep
// project-reference tree without any cross-project coordination.
//
// Not safe for concurrent use; the indexer is single-threaded.
type Generator struct {
	next uint64
}

// NewGenerator returns a Generator whose first ID is 1.
func NewGenerator() *Generator {
	return &Generator{next: 1}
}

// Next returns the next identifier. IDs are strictly increasing with no
// gaps and are never reused for the lifetime of the Generator.
func (g *Generator) Next() uint64 {
	id := g.next
	g.next++
	return id
}
