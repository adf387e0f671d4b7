package tsgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/tsgraph/internal/analysis"
	"github.com/jward/tsgraph/internal/host"
)

// element is the minimal view of one dump line used in assertions.
type element struct {
	ID    uint64 `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
	URI   string `json:"uri"`
}

func parseDump(t *testing.T, raw string) []element {
	t.Helper()
	var out []element
	for _, line := range strings.Split(strings.TrimRight(raw, "\n"), "\n") {
		var el element
		require.NoError(t, json.Unmarshal([]byte(line), &el), "line: %s", line)
		out = append(out, el)
	}
	return out
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTestIndexer(t *testing.T, root string, opts Options) (*Indexer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	opts.ProjectRoot = root
	opts.RepositoryRoot = root
	var dump, errs bytes.Buffer
	em := NewLineEmitter(&dump)
	ix, err := New(em, opts, WithErrorOutput(&errs))
	require.NoError(t, err)
	t.Cleanup(func() { em.Close() })
	return ix, &dump, &errs
}

func TestRun_ReferenceChainEmitsDependenciesFirst(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json":   `{"files": ["main.ts"], "references": [{"path": "./a"}]}`,
		"main.ts":         `import { fa } from "./a/a"` + "\nconst m = fa\n",
		"a/tsconfig.json": `{"files": ["a.ts"], "references": [{"path": "../b"}]}`,
		"a/a.ts":          "export const fa = 1\n",
		"b/tsconfig.json": `{"files": ["b.ts"]}`,
		"b/b.ts":          "export const fb = 2\n",
	})

	ix, dump, _ := newTestIndexer(t, root, Options{ProjectPath: root, NoContents: true})
	info, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, ix.HadErrors())

	// dependsOn chains root -> a -> b.
	assert.Equal(t, filepath.Join(root, "tsconfig.json"), info.ConfigPath)
	require.Len(t, info.DependsOn, 1)
	a := info.DependsOn[0]
	assert.Equal(t, filepath.Join(root, "a", "tsconfig.json"), a.ConfigPath)
	require.Len(t, a.DependsOn, 1)
	b := a.DependsOn[0]
	assert.Equal(t, filepath.Join(root, "b", "tsconfig.json"), b.ConfigPath)

	// Project vertex IDs reflect completion order: dependencies first.
	assert.Less(t, b.ID, a.ID)
	assert.Less(t, a.ID, info.ID)

	require.NoError(t, flushDump(ix))
	els := parseDump(t, dump.String())

	// First element is the metaData vertex; IDs are pairwise distinct and
	// strictly increasing throughout the whole stream.
	assert.Equal(t, "metaData", els[0].Label)
	var prev uint64
	for _, el := range els {
		assert.Greater(t, el.ID, prev)
		prev = el.ID
	}

	// Documents appear in dependency-before-dependent order, and exactly
	// three analysis passes contributed project vertices.
	var docOrder []string
	projects := 0
	for _, el := range els {
		switch el.Label {
		case "document":
			docOrder = append(docOrder, filepath.Base(el.URI))
		case "project":
			projects++
		}
	}
	assert.Equal(t, []string{"b.ts", "a.ts", "main.ts"}, docOrder)
	assert.Equal(t, 3, projects)
}

// flushDump flushes the indexer's line emitter so the dump buffer is complete.
func flushDump(ix *Indexer) error { return ix.em.Close() }

func TestRun_FailedReferenceOmittedFromDependsOn(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json":   `{"files": ["main.ts"], "references": [{"path": "./missing"}, {"path": "./b"}]}`,
		"main.ts":         "const m = 1\n",
		"b/tsconfig.json": `{"files": ["b.ts"]}`,
		"b/b.ts":          "export const fb = 2\n",
	})

	ix, _, _ := newTestIndexer(t, root, Options{ProjectPath: root, NoContents: true})
	info, err := ix.Run(context.Background())
	require.NoError(t, err)

	// The parent is still analyzed; the unresolvable reference simply
	// contributes nothing.
	require.NotNil(t, info)
	require.Len(t, info.DependsOn, 1)
	assert.Equal(t, filepath.Join(root, "b", "tsconfig.json"), info.DependsOn[0].ConfigPath)
}

func TestRun_MissingConfigAbortsProjectOnly(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	ix, dump, errs := newTestIndexer(t, root, Options{
		ProjectPath: filepath.Join(root, "does-not-exist"),
	})
	info, err := ix.Run(context.Background())
	require.NoError(t, err, "a missing config is a project failure, not a run failure")
	assert.Nil(t, info)
	assert.True(t, ix.HadErrors())
	assert.Contains(t, errs.String(), "configuration file not found")

	require.NoError(t, flushDump(ix))
	els := parseDump(t, dump.String())
	require.Len(t, els, 1, "only the metaData vertex, no project elements")
	assert.Equal(t, "metaData", els[0].Label)
}

func TestRun_EmptyProjectYieldsNothing(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{"include": ["src/**/*"]}`,
	})

	ix, dump, errs := newTestIndexer(t, root, Options{ProjectPath: root})
	info, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.True(t, ix.HadErrors())
	assert.Contains(t, errs.String(), "no input files")

	require.NoError(t, flushDump(ix))
	assert.Len(t, parseDump(t, dump.String()), 1)
}

func TestRun_EngineFailureAbortsProjectOnly(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{"files": ["main.ts"]}`,
		"main.ts":       "const m = 1\n",
	})

	ix, _, errs := newTestIndexer(t, root, Options{ProjectPath: root})
	ix.createProgram = func(*host.Host) (*analysis.Program, bool) {
		return nil, false
	}

	info, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.True(t, ix.HadErrors())
	assert.Contains(t, errs.String(), "no bound program")
}

func TestRun_InlineProject(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.ts": "export function solo() {}\nsolo()\n",
	})

	ix, dump, _ := newTestIndexer(t, root, Options{
		Files:      []string{"main.ts"},
		NoContents: true,
	})
	info, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Empty(t, info.ConfigPath, "synthetic root has no configuration file")
	assert.False(t, ix.HadErrors())

	require.NoError(t, flushDump(ix))
	els := parseDump(t, dump.String())
	var docs int
	for _, el := range els {
		if el.Label == "document" {
			docs++
		}
	}
	assert.Equal(t, 1, docs)
}

func TestRun_DiamondReferencesAnalyzedTwice(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json":        `{"files": ["main.ts"], "references": [{"path": "./left"}, {"path": "./right"}]}`,
		"main.ts":              "const m = 1\n",
		"left/tsconfig.json":   `{"files": ["l.ts"], "references": [{"path": "../shared"}]}`,
		"left/l.ts":            "export const l = 1\n",
		"right/tsconfig.json":  `{"files": ["r.ts"], "references": [{"path": "../shared"}]}`,
		"right/r.ts":           "export const r = 1\n",
		"shared/tsconfig.json": `{"files": ["s.ts"]}`,
		"shared/s.ts":          "export const s = 1\n",
	})

	ix, dump, _ := newTestIndexer(t, root, Options{ProjectPath: root, NoContents: true})
	info, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, info)

	// The shared project is reached through both reference paths and is
	// analyzed once per path, with distinct ProjectInfo records.
	require.Len(t, info.DependsOn, 2)
	left, right := info.DependsOn[0], info.DependsOn[1]
	require.Len(t, left.DependsOn, 1)
	require.Len(t, right.DependsOn, 1)
	assert.Equal(t, left.DependsOn[0].ConfigPath, right.DependsOn[0].ConfigPath)
	assert.NotEqual(t, left.DependsOn[0].ID, right.DependsOn[0].ID)

	require.NoError(t, flushDump(ix))
	var sharedDocs int
	for _, el := range parseDump(t, dump.String()) {
		if el.Label == "document" && strings.HasSuffix(el.URI, "s.ts") {
			sharedDocs++
		}
	}
	assert.Equal(t, 2, sharedDocs, "duplicate emission for the shared project")
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{"files": ["main.ts"]}`,
		"main.ts":       "const m = 1\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix, _, _ := newTestIndexer(t, root, Options{ProjectPath: root})
	_, err := ix.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_ExportLinkerOnlyWithManifest(t *testing.T) {
	t.Parallel()
	bare := t.TempDir()
	ix, _, _ := newTestIndexer(t, bare, Options{})
	assert.Nil(t, ix.exportLinker)

	withManifest := t.TempDir()
	writeTree(t, withManifest, map[string]string{
		"package.json": `{"name": "pkg", "version": "1.2.3"}`,
	})
	ix2, _, _ := newTestIndexer(t, withManifest, Options{})
	assert.NotNil(t, ix2.exportLinker)
}
