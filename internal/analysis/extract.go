package analysis

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Declaration kinds.
const (
	KindFunction  = "function"
	KindClass     = "class"
	KindInterface = "interface"
	KindEnum      = "enum"
	KindTypeAlias = "typeAlias"
	KindVariable  = "variable"
	KindMethod    = "method"
	KindProperty  = "property"
	KindNamespace = "namespace"
)

// extract walks the parse tree and fills doc with declarations, imports,
// and file-locally resolved references.
func extract(doc *Document, root *sitter.Node, src []byte) {
	w := &walker{doc: doc, src: src, declSites: make(map[uint32]bool)}
	w.statements(root, false)

	// export { a, b as c } marks already-collected declarations exported.
	if len(w.exportedNames) > 0 {
		for i := range doc.Declarations {
			if w.exportedNames[doc.Declarations[i].Name] {
				doc.Declarations[i].Exported = true
			}
		}
	}

	w.references(root)
}

type walker struct {
	doc           *Document
	src           []byte
	declSites     map[uint32]bool // start bytes of name tokens that are binding sites
	exportedNames map[string]bool
	names         map[string]bool // all resolvable names (declarations + import aliases)
}

func span(n *sitter.Node) Span {
	return Span{
		Start: Point{Line: n.StartPoint().Row, Column: n.StartPoint().Column},
		End:   Point{Line: n.EndPoint().Row, Column: n.EndPoint().Column},
	}
}

// signature returns the first line of a declaration, trimmed of the body.
func signature(n *sitter.Node, src []byte) string {
	text := n.Content(src)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "{"))
	const max = 160
	if len(text) > max {
		text = text[:max]
	}
	return text
}

// statements walks one statement list (program, namespace body).
func (w *walker) statements(node *sitter.Node, exported bool) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.statement(node.NamedChild(i), exported)
	}
}

func (w *walker) statement(n *sitter.Node, exported bool) {
	switch n.Type() {
	case "export_statement":
		if decl := n.ChildByFieldName("declaration"); decl != nil {
			w.statement(decl, true)
			return
		}
		// export { a, b as c }
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if clause := n.NamedChild(i); clause.Type() == "export_clause" {
				w.exportClause(clause)
			}
		}
	case "ambient_declaration":
		// declare ... wraps a normal declaration.
		w.statements(n, exported)
	case "function_declaration", "generator_function_declaration":
		w.declare(n, KindFunction, exported)
	case "class_declaration", "abstract_class_declaration":
		w.declare(n, KindClass, exported)
		if body := n.ChildByFieldName("body"); body != nil {
			w.classBody(body)
		}
	case "interface_declaration":
		w.declare(n, KindInterface, exported)
	case "enum_declaration":
		w.declare(n, KindEnum, exported)
	case "type_alias_declaration":
		w.declare(n, KindTypeAlias, exported)
	case "internal_module", "module":
		w.declare(n, KindNamespace, exported)
		if body := n.ChildByFieldName("body"); body != nil {
			// Members of an exported namespace are reachable from outside.
			w.statements(body, exported)
		}
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if d := n.NamedChild(i); d.Type() == "variable_declarator" {
				w.declareNamed(d, n, KindVariable, exported)
			}
		}
	case "import_statement":
		w.importStatement(n)
	}
}

// declare records a declaration whose name is the node's "name" field.
func (w *walker) declare(n *sitter.Node, kind string, exported bool) {
	w.declareNamed(n, n, kind, exported)
}

// declareNamed records a declaration: nameOwner carries the name field,
// full is the node whose extent becomes the declaration's full range.
func (w *walker) declareNamed(nameOwner, full *sitter.Node, kind string, exported bool) {
	name := nameOwner.ChildByFieldName("name")
	if name == nil {
		return
	}
	w.declSites[name.StartByte()] = true
	w.addName(name.Content(w.src))
	w.doc.Declarations = append(w.doc.Declarations, Declaration{
		Name:      name.Content(w.src),
		Kind:      kind,
		Range:     span(name),
		FullRange: span(full),
		Signature: signature(full, w.src),
		Exported:  exported,
	})
}

// classBody records methods and fields as member declarations.
func (w *walker) classBody(body *sitter.Node) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		switch m.Type() {
		case "method_definition":
			w.declareNamed(m, m, KindMethod, false)
		case "public_field_definition":
			w.declareNamed(m, m, KindProperty, false)
		}
	}
}

func (w *walker) exportClause(clause *sitter.Node) {
	if w.exportedNames == nil {
		w.exportedNames = make(map[string]bool)
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		spec := clause.NamedChild(i)
		if spec.Type() != "export_specifier" {
			continue
		}
		if name := spec.ChildByFieldName("name"); name != nil {
			w.exportedNames[name.Content(w.src)] = true
		}
	}
}

func (w *walker) importStatement(n *sitter.Node) {
	source := n.ChildByFieldName("source")
	if source == nil {
		return
	}
	imp := Import{
		Specifier: strings.Trim(source.Content(w.src), `"'`),
		Range:     span(n),
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			c := clause.NamedChild(j)
			switch c.Type() {
			case "identifier":
				// import Default from "m"
				w.binding(&imp, "default", c)
			case "namespace_import":
				// import * as ns from "m"
				for k := 0; k < int(c.NamedChildCount()); k++ {
					if id := c.NamedChild(k); id.Type() == "identifier" {
						w.binding(&imp, "*", id)
					}
				}
			case "named_imports":
				for k := 0; k < int(c.NamedChildCount()); k++ {
					spec := c.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = alias
					}
					w.binding(&imp, name.Content(w.src), local)
				}
			}
		}
	}
	w.doc.Imports = append(w.doc.Imports, imp)
}

// binding records one imported name with its local binding site.
func (w *walker) binding(imp *Import, sourceName string, local *sitter.Node) {
	w.declSites[local.StartByte()] = true
	w.addName(local.Content(w.src))
	imp.Names = append(imp.Names, ImportedName{
		Name:  sourceName,
		Alias: local.Content(w.src),
	})
}

func (w *walker) addName(name string) {
	if w.names == nil {
		w.names = make(map[string]bool)
	}
	w.names[name] = true
}

// references walks the whole tree recording identifier occurrences that
// resolve to a declaration or import binding in this document. Binding
// sites themselves are excluded.
func (w *walker) references(n *sitter.Node) {
	switch n.Type() {
	case "identifier", "type_identifier":
		name := n.Content(w.src)
		if w.names[name] && !w.declSites[n.StartByte()] {
			w.doc.References = append(w.doc.References, Reference{
				Name:  name,
				Range: span(n),
			})
		}
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.references(n.NamedChild(i))
	}
}
