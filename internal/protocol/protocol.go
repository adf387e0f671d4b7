// Package protocol defines the graph elements tsgraph emits: LSIF-style
// vertices and edges serialized as one JSON object per line. The indexer
// treats elements as opaque once constructed; only this package knows their
// shape.
package protocol

// Version is the LSIF protocol version written to the metaData vertex.
const Version = "0.5.0"

// Element is the common header of every vertex and edge.
type Element struct {
	ID    uint64 `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// Header returns the element's common fields. Embedding Element gives
// every vertex and edge this method, which is how emitters see them.
func (e Element) Header() Element { return e }

// Element types.
const (
	TypeVertex = "vertex"
	TypeEdge   = "edge"
)

// Vertex labels.
const (
	VertexMetaData           = "metaData"
	VertexProject            = "project"
	VertexEvent              = "$event"
	VertexDocument           = "document"
	VertexRange              = "range"
	VertexResultSet          = "resultSet"
	VertexDefinitionResult   = "definitionResult"
	VertexReferenceResult    = "referenceResult"
	VertexHoverResult        = "hoverResult"
	VertexMoniker            = "moniker"
	VertexPackageInformation = "packageInformation"
)

// Edge labels.
const (
	EdgeContains           = "contains"
	EdgeItem               = "item"
	EdgeNext               = "next"
	EdgeMoniker            = "moniker"
	EdgePackageInformation = "packageInformation"
	EdgeDefinition         = "textDocument/definition"
	EdgeReferences         = "textDocument/references"
	EdgeHover              = "textDocument/hover"
)

// ToolInfo identifies the producer in the metaData vertex.
type ToolInfo struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// MetaData is the first vertex of every dump.
type MetaData struct {
	Element
	Version          string   `json:"version"`
	ProjectRoot      string   `json:"projectRoot"`
	PositionEncoding string   `json:"positionEncoding"`
	ToolInfo         ToolInfo `json:"toolInfo"`
}

// NewMetaData creates the metaData vertex. projectRoot must be a file URI.
func NewMetaData(g *Generator, projectRoot string, info ToolInfo) *MetaData {
	return &MetaData{
		Element:          Element{ID: g.Next(), Type: TypeVertex, Label: VertexMetaData},
		Version:          Version,
		ProjectRoot:      projectRoot,
		PositionEncoding: "utf-16",
		ToolInfo:         info,
	}
}

// Project is the vertex representing one analyzed compilation unit.
type Project struct {
	Element
	Kind     string `json:"kind"`
	Resource string `json:"resource,omitempty"`
	Name     string `json:"name,omitempty"`
}

// NewProject creates a project vertex. resource is the file URI of the
// project's configuration file, or empty for an inline (synthetic) project.
func NewProject(g *Generator, name, resource string) *Project {
	return &Project{
		Element:  Element{ID: g.Next(), Type: TypeVertex, Label: VertexProject},
		Kind:     "typescript",
		Resource: resource,
		Name:     name,
	}
}

// Event kinds and scopes.
const (
	EventBegin = "begin"
	EventEnd   = "end"

	EventScopeProject  = "project"
	EventScopeDocument = "document"
)

// Event marks the begin/end of a project or document in the stream, letting
// consumers process the dump incrementally.
type Event struct {
	Element
	Kind  string `json:"kind"`
	Scope string `json:"scope"`
	Data  uint64 `json:"data"`
}

// NewEvent creates a begin/end event vertex for the vertex identified by data.
func NewEvent(g *Generator, kind, scope string, data uint64) *Event {
	return &Event{
		Element: Element{ID: g.Next(), Type: TypeVertex, Label: VertexEvent},
		Kind:    kind,
		Scope:   scope,
		Data:    data,
	}
}

// Document is the vertex for one source file.
type Document struct {
	Element
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Contents   string `json:"contents,omitempty"`
}

// NewDocument creates a document vertex. contents, when non-empty, is the
// base64-encoded file content (the --noContents flag leaves it empty).
func NewDocument(g *Generator, uri, languageID, contents string) *Document {
	return &Document{
		Element:    Element{ID: g.Next(), Type: TypeVertex, Label: VertexDocument},
		URI:        uri,
		LanguageID: languageID,
		Contents:   contents,
	}
}

// Pos is a zero-based line/character position.
type Pos struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// RangeTag carries declaration metadata on a definition range.
type RangeTag struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Kind      int    `json:"kind,omitempty"`
	FullRange *Span  `json:"fullRange,omitempty"`
}

// Span is a start/end position pair used inside tags.
type Span struct {
	Start Pos `json:"start"`
	End   Pos `json:"end"`
}

// Range is the vertex for one source range.
type Range struct {
	Element
	Start Pos       `json:"start"`
	End   Pos       `json:"end"`
	Tag   *RangeTag `json:"tag,omitempty"`
}

// NewRange creates a range vertex, optionally tagged.
func NewRange(g *Generator, start, end Pos, tag *RangeTag) *Range {
	return &Range{
		Element: Element{ID: g.Next(), Type: TypeVertex, Label: VertexRange},
		Start:   start,
		End:     end,
		Tag:     tag,
	}
}

// ResultSet groups the ranges of one symbol so results attach once per
// symbol instead of once per range.
type ResultSet struct {
	Element
}

// NewResultSet creates a resultSet vertex.
func NewResultSet(g *Generator) *ResultSet {
	return &ResultSet{Element{ID: g.Next(), Type: TypeVertex, Label: VertexResultSet}}
}

// DefinitionResult is the vertex item edges point at for definitions.
type DefinitionResult struct {
	Element
}

// NewDefinitionResult creates a definitionResult vertex.
func NewDefinitionResult(g *Generator) *DefinitionResult {
	return &DefinitionResult{Element{ID: g.Next(), Type: TypeVertex, Label: VertexDefinitionResult}}
}

// ReferenceResult is the vertex item edges point at for references.
type ReferenceResult struct {
	Element
}

// NewReferenceResult creates a referenceResult vertex.
func NewReferenceResult(g *Generator) *ReferenceResult {
	return &ReferenceResult{Element{ID: g.Next(), Type: TypeVertex, Label: VertexReferenceResult}}
}

// MarkedString is one hover content block.
type MarkedString struct {
	Language string `json:"language,omitempty"`
	Value    string `json:"value"`
}

// Hover is the hover payload.
type Hover struct {
	Contents []MarkedString `json:"contents"`
}

// HoverResult is the vertex carrying a symbol's hover text.
type HoverResult struct {
	Element
	Result Hover `json:"result"`
}

// NewHoverResult creates a hoverResult vertex with a single typescript
// code-block content.
func NewHoverResult(g *Generator, signature string) *HoverResult {
	return &HoverResult{
		Element: Element{ID: g.Next(), Type: TypeVertex, Label: VertexHoverResult},
		Result: Hover{
			Contents: []MarkedString{{Language: "typescript", Value: signature}},
		},
	}
}

// Moniker kinds.
const (
	MonikerImport = "import"
	MonikerExport = "export"
	MonikerLocal  = "local"
)

// Moniker attaches a portable identifier to a symbol so references resolve
// across independently indexed projects and packages.
type Moniker struct {
	Element
	Scheme     string `json:"scheme"`
	Identifier string `json:"identifier"`
	Kind       string `json:"kind,omitempty"`
	Unique     string `json:"unique"`
}

// NewMoniker creates a moniker vertex.
func NewMoniker(g *Generator, scheme, identifier, kind, unique string) *Moniker {
	return &Moniker{
		Element:    Element{ID: g.Next(), Type: TypeVertex, Label: VertexMoniker},
		Scheme:     scheme,
		Identifier: identifier,
		Kind:       kind,
		Unique:     unique,
	}
}

// PackageInformation names the npm package a moniker belongs to.
type PackageInformation struct {
	Element
	Name    string `json:"name"`
	Manager string `json:"manager"`
	Version string `json:"version,omitempty"`
}

// NewPackageInformation creates a packageInformation vertex.
func NewPackageInformation(g *Generator, name, version string) *PackageInformation {
	return &PackageInformation{
		Element: Element{ID: g.Next(), Type: TypeVertex, Label: VertexPackageInformation},
		Name:    name,
		Manager: "npm",
		Version: version,
	}
}

// Edge is a 1:1 edge between two elements.
type Edge struct {
	Element
	OutV uint64 `json:"outV"`
	InV  uint64 `json:"inV"`
}

// NewEdge creates a 1:1 edge with the given label.
func NewEdge(g *Generator, label string, outV, inV uint64) *Edge {
	return &Edge{
		Element: Element{ID: g.Next(), Type: TypeEdge, Label: label},
		OutV:    outV,
		InV:     inV,
	}
}

// MultiEdge is a 1:n edge (contains).
type MultiEdge struct {
	Element
	OutV uint64   `json:"outV"`
	InVs []uint64 `json:"inVs"`
}

// NewContains creates a contains edge from a project or document to its
// children.
func NewContains(g *Generator, outV uint64, inVs []uint64) *MultiEdge {
	return &MultiEdge{
		Element: Element{ID: g.Next(), Type: TypeEdge, Label: EdgeContains},
		OutV:    outV,
		InVs:    inVs,
	}
}

// ItemEdge links a definition/reference result to ranges, scoped to the
// document the ranges belong to.
type ItemEdge struct {
	Element
	OutV     uint64   `json:"outV"`
	InVs     []uint64 `json:"inVs"`
	Document uint64   `json:"document"`
	Property string   `json:"property,omitempty"`
}

// Item edge properties.
const (
	ItemDefinitions = "definitions"
	ItemReferences  = "references"
)

// NewItem creates an item edge.
func NewItem(g *Generator, outV uint64, inVs []uint64, document uint64, property string) *ItemEdge {
	return &ItemEdge{
		Element:  Element{ID: g.Next(), Type: TypeEdge, Label: EdgeItem},
		OutV:     outV,
		InVs:     inVs,
		Document: document,
		Property: property,
	}
}
