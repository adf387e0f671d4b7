// Package graph constructs the emitted index for one bound project: it
// walks the program's documents and streams vertices and edges through the
// run's emitter in a stable order (project, then per-document ranges and
// results, then containment). It owns what gets emitted; the orchestrator
// owns when projects are visited.
package graph

import (
	"encoding/base64"
	"path/filepath"

	"github.com/jward/tsgraph/internal/analysis"
	"github.com/jward/tsgraph/internal/emitter"
	"github.com/jward/tsgraph/internal/linker"
	"github.com/jward/tsgraph/internal/protocol"
)

// ProjectInfo identifies one analyzed project. Immutable once returned.
type ProjectInfo struct {
	// ID is the project vertex's identifier, drawn from the run's shared
	// generator.
	ID uint64

	// ConfigPath is the absolute tsconfig path, or empty for the synthetic
	// root project.
	ConfigPath string

	// DependsOn lists the projects this one references, in declaration
	// order, each fully analyzed before this project.
	DependsOn []*ProjectInfo
}

// Options carries the run-level settings the visitor needs.
type Options struct {
	ProjectRoot    string
	RepositoryRoot string
	EmbedContents  bool
}

// lsp SymbolKind values used in range tags.
var symbolKinds = map[string]int{
	analysis.KindNamespace: 3,
	analysis.KindClass:     5,
	analysis.KindMethod:    6,
	analysis.KindProperty:  7,
	analysis.KindEnum:      10,
	analysis.KindInterface: 11,
	analysis.KindFunction:  12,
	analysis.KindVariable:  13,
	analysis.KindTypeAlias: 5,
}

// Visit emits the graph for prog and returns its ProjectInfo, whose ID is
// freshly drawn from ids. Returns (nil, nil) when the program has no bound
// documents to contribute. Emission errors are I/O faults and abort the
// whole run.
func Visit(
	prog *analysis.Program,
	opts Options,
	dependsOn []*ProjectInfo,
	em emitter.Emitter,
	ids *protocol.Generator,
	importLinker *linker.ImportLinker,
	exportLinker *linker.ExportLinker,
	configPath string,
) (*ProjectInfo, error) {
	docs := prog.Documents()
	if len(docs) == 0 {
		return nil, nil
	}

	v := &visitor{
		opts:         opts,
		em:           em,
		ids:          ids,
		importLinker: importLinker,
		exportLinker: exportLinker,
	}

	name := projectName(configPath, opts.ProjectRoot)
	project := protocol.NewProject(v.ids, name, fileURI(configPath))
	if err := v.emit(project); err != nil {
		return nil, err
	}
	if err := v.emit(protocol.NewEvent(v.ids, protocol.EventBegin, protocol.EventScopeProject, project.ID)); err != nil {
		return nil, err
	}

	var docIDs []uint64
	for _, doc := range docs {
		docID, err := v.document(doc)
		if err != nil {
			return nil, err
		}
		docIDs = append(docIDs, docID)
	}

	if len(docIDs) > 0 {
		if err := v.emit(protocol.NewContains(v.ids, project.ID, docIDs)); err != nil {
			return nil, err
		}
	}
	if err := v.emit(protocol.NewEvent(v.ids, protocol.EventEnd, protocol.EventScopeProject, project.ID)); err != nil {
		return nil, err
	}

	return &ProjectInfo{ID: project.ID, ConfigPath: configPath, DependsOn: dependsOn}, nil
}

type visitor struct {
	opts         Options
	em           emitter.Emitter
	ids          *protocol.Generator
	importLinker *linker.ImportLinker
	exportLinker *linker.ExportLinker
}

func (v *visitor) emit(el emitter.Element) error {
	return v.em.Emit(el)
}

// symbol tracks per-document emission state for one resolvable name.
type symbol struct {
	resultSetID uint64
	defRangeID  uint64 // 0 for import bindings
	refRangeIDs []uint64
}

// document emits one document's subgraph and returns the document vertex ID.
func (v *visitor) document(doc *analysis.Document) (uint64, error) {
	contents := ""
	if v.opts.EmbedContents {
		contents = base64.StdEncoding.EncodeToString(doc.Snapshot.Text())
	}
	d := protocol.NewDocument(v.ids, fileURI(doc.FileName), "typescript", contents)
	if err := v.emit(d); err != nil {
		return 0, err
	}
	if err := v.emit(protocol.NewEvent(v.ids, protocol.EventBegin, protocol.EventScopeDocument, d.ID)); err != nil {
		return 0, err
	}

	symbols := make(map[string]*symbol)
	var rangeIDs []uint64
	var order []string // deterministic result flush order

	// Declarations: resultSet, tagged range, definition result, hover.
	for _, decl := range doc.Declarations {
		rs := protocol.NewResultSet(v.ids)
		if err := v.emit(rs); err != nil {
			return 0, err
		}

		tag := &protocol.RangeTag{
			Type: "definition",
			Text: decl.Name,
			Kind: symbolKinds[decl.Kind],
			FullRange: &protocol.Span{
				Start: pos(decl.FullRange.Start),
				End:   pos(decl.FullRange.End),
			},
		}
		r := protocol.NewRange(v.ids, pos(decl.Range.Start), pos(decl.Range.End), tag)
		if err := v.emit(r); err != nil {
			return 0, err
		}
		rangeIDs = append(rangeIDs, r.ID)
		if err := v.emit(protocol.NewEdge(v.ids, protocol.EdgeNext, r.ID, rs.ID)); err != nil {
			return 0, err
		}

		def := protocol.NewDefinitionResult(v.ids)
		if err := v.emit(def); err != nil {
			return 0, err
		}
		if err := v.emit(protocol.NewEdge(v.ids, protocol.EdgeDefinition, rs.ID, def.ID)); err != nil {
			return 0, err
		}
		if err := v.emit(protocol.NewItem(v.ids, def.ID, []uint64{r.ID}, d.ID, "")); err != nil {
			return 0, err
		}

		hover := protocol.NewHoverResult(v.ids, decl.Signature)
		if err := v.emit(hover); err != nil {
			return 0, err
		}
		if err := v.emit(protocol.NewEdge(v.ids, protocol.EdgeHover, rs.ID, hover.ID)); err != nil {
			return 0, err
		}

		if decl.Exported && v.exportLinker != nil {
			if err := v.exportLinker.Attach(rs.ID, doc.FileName, decl.Name); err != nil {
				return 0, err
			}
		}

		// Later declarations of the same name shadow earlier ones for
		// file-local reference resolution; last writer wins, matching the
		// binder's name table.
		if _, seen := symbols[decl.Name]; !seen {
			order = append(order, decl.Name)
		}
		symbols[decl.Name] = &symbol{resultSetID: rs.ID, defRangeID: r.ID}
	}

	// Import bindings: resultSet plus import moniker, no local definition.
	for _, imp := range doc.Imports {
		for _, n := range imp.Names {
			if _, seen := symbols[n.Alias]; seen {
				continue
			}
			rs := protocol.NewResultSet(v.ids)
			if err := v.emit(rs); err != nil {
				return 0, err
			}
			if err := v.importLinker.Attach(rs.ID, doc.FileName, imp.Specifier, n.Name); err != nil {
				return 0, err
			}
			order = append(order, n.Alias)
			symbols[n.Alias] = &symbol{resultSetID: rs.ID}
		}
	}

	// References: plain ranges wired to their symbol's resultSet.
	for _, ref := range doc.References {
		sym, ok := symbols[ref.Name]
		if !ok {
			continue
		}
		r := protocol.NewRange(v.ids, pos(ref.Range.Start), pos(ref.Range.End), nil)
		if err := v.emit(r); err != nil {
			return 0, err
		}
		rangeIDs = append(rangeIDs, r.ID)
		if err := v.emit(protocol.NewEdge(v.ids, protocol.EdgeNext, r.ID, sym.resultSetID)); err != nil {
			return 0, err
		}
		sym.refRangeIDs = append(sym.refRangeIDs, r.ID)
	}

	// Flush reference results per symbol, batched per document.
	for _, name := range order {
		sym := symbols[name]
		if len(sym.refRangeIDs) == 0 {
			continue
		}
		refResult := protocol.NewReferenceResult(v.ids)
		if err := v.emit(refResult); err != nil {
			return 0, err
		}
		if err := v.emit(protocol.NewEdge(v.ids, protocol.EdgeReferences, sym.resultSetID, refResult.ID)); err != nil {
			return 0, err
		}
		if sym.defRangeID != 0 {
			if err := v.emit(protocol.NewItem(v.ids, refResult.ID, []uint64{sym.defRangeID}, d.ID, protocol.ItemDefinitions)); err != nil {
				return 0, err
			}
		}
		if err := v.emit(protocol.NewItem(v.ids, refResult.ID, sym.refRangeIDs, d.ID, protocol.ItemReferences)); err != nil {
			return 0, err
		}
	}

	if len(rangeIDs) > 0 {
		if err := v.emit(protocol.NewContains(v.ids, d.ID, rangeIDs)); err != nil {
			return 0, err
		}
	}
	if err := v.emit(protocol.NewEvent(v.ids, protocol.EventEnd, protocol.EventScopeDocument, d.ID)); err != nil {
		return 0, err
	}
	return d.ID, nil
}

func pos(p analysis.Point) protocol.Pos {
	return protocol.Pos{Line: p.Line, Character: p.Column}
}

// fileURI converts an absolute path to a file URI; empty stays empty.
func fileURI(path string) string {
	if path == "" {
		return ""
	}
	return "file://" + filepath.ToSlash(path)
}

// projectName labels the project vertex: the config's directory name, or
// the project root's for inline projects.
func projectName(configPath, projectRoot string) string {
	if configPath != "" {
		return filepath.Base(filepath.Dir(configPath))
	}
	if projectRoot != "" {
		return filepath.Base(projectRoot)
	}
	return "workspace"
}
