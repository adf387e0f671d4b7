package emitter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsgraph/internal/protocol"
)

func newTestSQLiteEmitter(t *testing.T) *SQLiteEmitter {
	t.Helper()
	em, err := NewSQLiteEmitter(filepath.Join(t.TempDir(), "dump.db"))
	require.NoError(t, err)
	t.Cleanup(func() { em.Close() })
	return em
}

func TestSQLiteEmitter_StoresElements(t *testing.T) {
	em := newTestSQLiteEmitter(t)
	g := protocol.NewGenerator()

	require.NoError(t, em.Emit(protocol.NewResultSet(g)))
	require.NoError(t, em.Emit(protocol.NewEdge(g, protocol.EdgeNext, 1, 2)))

	var vertices, edges int
	require.NoError(t, em.db.QueryRow(
		"SELECT COUNT(*) FROM elements WHERE kind = 'vertex'").Scan(&vertices))
	require.NoError(t, em.db.QueryRow(
		"SELECT COUNT(*) FROM elements WHERE kind = 'edge'").Scan(&edges))
	assert.Equal(t, 1, vertices)
	assert.Equal(t, 1, edges)
	assert.Equal(t, uint64(2), em.Count())
}

func TestSQLiteEmitter_DeduplicatesDocumentContents(t *testing.T) {
	em := newTestSQLiteEmitter(t)
	g := protocol.NewGenerator()

	// The same file indexed twice (diamond references) stores its bytes once.
	require.NoError(t, em.Emit(protocol.NewDocument(g, "file:///a.ts", "typescript", "Y29udGVudA==")))
	require.NoError(t, em.Emit(protocol.NewDocument(g, "file:///a.ts", "typescript", "Y29udGVudA==")))

	var docs, contents int
	require.NoError(t, em.db.QueryRow(
		"SELECT COUNT(*) FROM elements WHERE label = 'document'").Scan(&docs))
	require.NoError(t, em.db.QueryRow("SELECT COUNT(*) FROM contents").Scan(&contents))
	assert.Equal(t, 2, docs)
	assert.Equal(t, 1, contents)

	// The stored payload no longer embeds the contents inline.
	var payload string
	require.NoError(t, em.db.QueryRow(
		"SELECT payload FROM elements WHERE label = 'document' LIMIT 1").Scan(&payload))
	assert.NotContains(t, payload, "Y29udGVudA==")
}

func TestSQLiteEmitter_PreservesEmissionOrder(t *testing.T) {
	em := newTestSQLiteEmitter(t)
	g := protocol.NewGenerator()

	for i := 0; i < 10; i++ {
		require.NoError(t, em.Emit(protocol.NewResultSet(g)))
	}

	rows, err := em.db.Query("SELECT id FROM elements ORDER BY rowid")
	require.NoError(t, err)
	defer rows.Close()

	var prev int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		assert.Greater(t, id, prev)
		prev = id
	}
	require.NoError(t, rows.Err())
}
