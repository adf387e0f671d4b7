package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsgraph/internal/emitter"
	"github.com/jward/tsgraph/internal/protocol"
)

type memEmitter struct {
	elements []emitter.Element
}

func (m *memEmitter) Emit(el emitter.Element) error {
	m.elements = append(m.elements, el)
	return nil
}

func (m *memEmitter) Close() error { return nil }

func TestImportLinker_RelativeSpecifier(t *testing.T) {
	t.Parallel()
	em := &memEmitter{}
	ids := protocol.NewGenerator()
	l := NewImportLinker("/ws", em, ids)

	require.NoError(t, l.Attach(1, "/ws/main.ts", "./util/fs", "readAll"))

	require.Len(t, em.elements, 2, "moniker vertex and moniker edge only")
	m, ok := em.elements[0].(*protocol.Moniker)
	require.True(t, ok)
	assert.Equal(t, "tsgraph", m.Scheme)
	assert.Equal(t, "util/fs:readAll", m.Identifier)
	assert.Equal(t, protocol.MonikerImport, m.Kind)

	e, ok := em.elements[1].(*protocol.Edge)
	require.True(t, ok)
	assert.Equal(t, protocol.EdgeMoniker, e.Label)
	assert.Equal(t, uint64(1), e.OutV)
	assert.Equal(t, m.ID, e.InV)
}

func TestImportLinker_SameModuleFromAnyImporter(t *testing.T) {
	t.Parallel()
	em := &memEmitter{}
	ids := protocol.NewGenerator()
	l := NewImportLinker("/ws", em, ids)

	// /ws/shared/s is imported with two spellings: "./shared/s" from a
	// root-level file and "../shared/s" from a subdirectory. Both must yield
	// one moniker identifier or cross-file references fall apart.
	require.NoError(t, l.Attach(1, "/ws/a.ts", "./shared/s", "s"))
	require.NoError(t, l.Attach(2, "/ws/sub/b.ts", "../shared/s", "s"))

	var idents []string
	for _, el := range em.elements {
		if m, ok := el.(*protocol.Moniker); ok {
			idents = append(idents, m.Identifier)
		}
	}
	require.Len(t, idents, 2)
	assert.Equal(t, "shared/s:s", idents[0])
	assert.Equal(t, idents[0], idents[1])
}

func TestImportLinker_BarePackageEmitsPackageInformation(t *testing.T) {
	t.Parallel()
	em := &memEmitter{}
	ids := protocol.NewGenerator()
	l := NewImportLinker("/ws", em, ids)

	require.NoError(t, l.Attach(1, "/ws/a.ts", "lodash", "map"))
	require.NoError(t, l.Attach(2, "/ws/b.ts", "lodash/fp", "flow"))

	var pkgVertices []*protocol.PackageInformation
	var pkgEdges int
	for _, el := range em.elements {
		switch e := el.(type) {
		case *protocol.PackageInformation:
			pkgVertices = append(pkgVertices, e)
		case *protocol.Edge:
			if e.Label == protocol.EdgePackageInformation {
				pkgEdges++
			}
		}
	}
	require.Len(t, pkgVertices, 1, "one packageInformation vertex per package per run")
	assert.Equal(t, "lodash", pkgVertices[0].Name)
	assert.Equal(t, 2, pkgEdges, "every moniker still links to its package")
}

func TestExportLinker_Attach(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	em := &memEmitter{}
	ids := protocol.NewGenerator()
	l := NewExportLinker(dir, &Manifest{Name: "mylib", Version: "2.0.0"}, em, ids)

	require.NoError(t, l.Attach(1, filepath.Join(dir, "src", "index.ts"), "run"))
	require.NoError(t, l.Attach(2, filepath.Join(dir, "src", "index.ts"), "stop"))

	var monikers []*protocol.Moniker
	var pkgVertices []*protocol.PackageInformation
	for _, el := range em.elements {
		switch e := el.(type) {
		case *protocol.Moniker:
			monikers = append(monikers, e)
		case *protocol.PackageInformation:
			pkgVertices = append(pkgVertices, e)
		}
	}
	require.Len(t, monikers, 2)
	assert.Equal(t, "npm", monikers[0].Scheme)
	assert.Equal(t, "mylib:src/index:run", monikers[0].Identifier)
	assert.Equal(t, protocol.MonikerExport, monikers[0].Kind)
	assert.Equal(t, "mylib:src/index:stop", monikers[1].Identifier)

	require.Len(t, pkgVertices, 1, "workspace package vertex emitted once")
	assert.Equal(t, "mylib", pkgVertices[0].Name)
	assert.Equal(t, "2.0.0", pkgVertices[0].Version)
}

func TestPackageName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		specifier, want string
	}{
		{"lodash", "lodash"},
		{"lodash/fp", "lodash"},
		{"@scope/pkg", "@scope/pkg"},
		{"@scope/pkg/deep", "@scope/pkg"},
		{"@scope", ""},
		{"./local", ""},
		{"../up", ""},
		{"/abs", ""},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, packageName(tc.specifier), "specifier %q", tc.specifier)
	}
}

func TestModulePath(t *testing.T) {
	t.Parallel()
	cases := []struct {
		file, want string
	}{
		{"/ws/src/index.ts", "src/index"},
		{"/ws/lib.tsx", "lib"},
		{"/ws/types/api.d.ts", "types/api"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, modulePath(tc.file, "/ws"))
	}
}

func TestReadManifest(t *testing.T) {
	t.Parallel()

	t.Run("missing", func(t *testing.T) {
		m, err := ReadManifest(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("nameless", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"version": "1.0.0"}`), 0o644))
		m, err := ReadManifest(dir)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("malformed", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{`), 0o644))
		_, err := ReadManifest(dir)
		assert.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"),
			[]byte(`{"name": "pkg", "version": "1.2.3", "dependencies": {"lodash": "^4"}}`), 0o644))
		m, err := ReadManifest(dir)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "pkg", m.Name)
		assert.Equal(t, "1.2.3", m.Version)
		assert.Contains(t, m.Dependencies, "lodash")
	})
}
