// Package analysis is the symbol-resolution engine: it turns the immutable
// world a host presents into a bound Program of documents, declarations,
// and references, parsed with tree-sitter. The orchestrator only depends on
// the narrow Program surface (documents, resolved project references, and a
// finalize step); everything else is internal to the binder.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jward/tsgraph/internal/host"
	"github.com/jward/tsgraph/internal/tsconfig"
)

// grammar is lazily initialized on first parse.
var (
	grammar     *sitter.Language
	grammarOnce sync.Once
)

func language() *sitter.Language {
	grammarOnce.Do(func() {
		grammar = ts.GetLanguage()
	})
	return grammar
}

// Point is a zero-based line/column position.
type Point struct {
	Line   uint32
	Column uint32
}

// Span is a half-open source range.
type Span struct {
	Start Point
	End   Point
}

// Declaration is one bound symbol declaration.
type Declaration struct {
	Name      string
	Kind      string
	Range     Span // the name token
	FullRange Span // the whole declaration
	Signature string
	Exported  bool
}

// Reference is one identifier occurrence resolved to a declaration in the
// same document.
type Reference struct {
	Name  string
	Range Span
}

// ImportedName is one binding introduced by an import statement.
type ImportedName struct {
	Name  string // name in the source module
	Alias string // local name; equals Name when not aliased
}

// Import is one import statement.
type Import struct {
	Specifier string
	Names     []ImportedName
	Range     Span
}

// Document is the bound view of one source file.
type Document struct {
	FileName     string
	Snapshot     *host.Snapshot
	Declarations []Declaration
	References   []Reference
	Imports      []Import
}

// Program is a bound project: every readable file of the host, parsed and
// bound. Documents are bound lazily and cached; Finalize forces the whole
// program, which the orchestrator does before handing it to the visitor.
type Program struct {
	host      *host.Host
	bound     map[string]*Document
	finalized bool
}

// CreateProgram binds host into a Program. Returns (nil, false) when the
// host has no readable files at all — the engine cannot produce a bound
// program for an empty world.
func CreateProgram(host *host.Host) (*Program, bool) {
	readable := 0
	for _, name := range host.FileNames() {
		if _, ok := host.Snapshot(name); ok {
			readable++
		}
	}
	if readable == 0 {
		return nil, false
	}
	return &Program{host: host, bound: make(map[string]*Document)}, true
}

// Host returns the host the program was bound against.
func (p *Program) Host() *host.Host { return p.host }

// ResolvedReferences returns the subset of the project's declared references
// whose configuration files the engine could locate and parse, in
// declaration order. References that fail to resolve are silently dropped;
// the project they would have contributed is simply absent.
func (p *Program) ResolvedReferences() []tsconfig.Reference {
	var resolved []tsconfig.Reference
	for _, ref := range p.host.ProjectReferences() {
		configPath, err := tsconfig.ResolveConfigPath(ref.Path)
		if err != nil {
			continue
		}
		if _, err := tsconfig.Load(configPath); err != nil {
			continue
		}
		resolved = append(resolved, ref)
	}
	return resolved
}

// Finalize forces binding of every file so full symbol information is
// available before graph construction. Idempotent.
func (p *Program) Finalize(ctx context.Context) error {
	if p.finalized {
		return nil
	}
	for _, name := range p.host.FileNames() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.bind(ctx, name); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	p.finalized = true
	return nil
}

// Documents returns the bound documents in file order. Files whose
// snapshots were unavailable are omitted.
func (p *Program) Documents() []*Document {
	var docs []*Document
	for _, name := range p.host.FileNames() {
		if doc, ok := p.bound[name]; ok && doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs
}

// bind parses and extracts one file, caching the result. A file without a
// snapshot binds to nil (unresolved module), not an error.
func (p *Program) bind(ctx context.Context, fileName string) (*Document, error) {
	if doc, ok := p.bound[fileName]; ok {
		return doc, nil
	}
	snap, ok := p.host.Snapshot(fileName)
	if !ok {
		p.bound[fileName] = nil
		return nil, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language())

	tree, err := parser.ParseCtx(ctx, nil, snap.Text())
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	doc := &Document{FileName: fileName, Snapshot: snap}
	extract(doc, tree.RootNode(), snap.Text())
	sortByPosition(doc)
	p.bound[fileName] = doc
	return doc, nil
}

// sortByPosition orders references by source position so emission order is
// deterministic. Declarations already come out in source order.
func sortByPosition(doc *Document) {
	sort.SliceStable(doc.References, func(i, j int) bool {
		a, b := doc.References[i].Range.Start, doc.References[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}
