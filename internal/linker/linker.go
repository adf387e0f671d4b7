// Package linker attaches cross-project and cross-package monikers to
// emitted symbols. Exactly one ImportLinker exists per run, and one
// ExportLinker when the workspace has a package manifest; both are handed
// unchanged into every recursive project pass so linking state (emitted
// package vertices, moniker identity) is consistent for the whole run.
package linker

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jward/tsgraph/internal/emitter"
	"github.com/jward/tsgraph/internal/protocol"
)

// schemeTSGraph is the moniker scheme for project-internal linking.
const schemeTSGraph = "tsgraph"

// schemeNPM is the moniker scheme for package-qualified export monikers.
const schemeNPM = "npm"

// ImportLinker emits import monikers so references into dependency projects
// and installed packages resolve when dumps are combined.
type ImportLinker struct {
	projectRoot string
	emitter     emitter.Emitter
	ids         *protocol.Generator

	// packageInformation vertex IDs already emitted, keyed by package name.
	packages map[string]uint64
}

// NewImportLinker creates the run's single ImportLinker.
func NewImportLinker(projectRoot string, em emitter.Emitter, ids *protocol.Generator) *ImportLinker {
	return &ImportLinker{
		projectRoot: projectRoot,
		emitter:     em,
		ids:         ids,
		packages:    make(map[string]uint64),
	}
}

// Attach emits an import moniker for the symbol behind resultSetID, named
// name and imported from specifier by the file at fromFile. Relative
// specifiers link within the workspace; bare specifiers additionally link
// the npm package they name.
func (l *ImportLinker) Attach(resultSetID uint64, fromFile, specifier, name string) error {
	ident := fmt.Sprintf("%s:%s", normalizeSpecifier(specifier, fromFile, l.projectRoot), name)
	m := protocol.NewMoniker(l.ids, schemeTSGraph, ident, protocol.MonikerImport, "workspace")
	if err := l.emitter.Emit(m); err != nil {
		return err
	}
	if err := l.emitter.Emit(protocol.NewEdge(l.ids, protocol.EdgeMoniker, resultSetID, m.ID)); err != nil {
		return err
	}

	if pkg := packageName(specifier); pkg != "" {
		pkgID, err := l.packageVertex(pkg)
		if err != nil {
			return err
		}
		return l.emitter.Emit(protocol.NewEdge(l.ids, protocol.EdgePackageInformation, m.ID, pkgID))
	}
	return nil
}

// packageVertex returns the packageInformation vertex ID for pkg, emitting
// it on first use. One vertex per package per run.
func (l *ImportLinker) packageVertex(pkg string) (uint64, error) {
	if id, ok := l.packages[pkg]; ok {
		return id, nil
	}
	v := protocol.NewPackageInformation(l.ids, pkg, "")
	if err := l.emitter.Emit(v); err != nil {
		return 0, err
	}
	l.packages[pkg] = v.ID
	return v.ID, nil
}

// ExportLinker emits package-qualified export monikers for symbols the
// workspace's own package exposes. Constructed only when a package manifest
// is present.
type ExportLinker struct {
	projectRoot string
	manifest    *Manifest
	emitter     emitter.Emitter
	ids         *protocol.Generator

	packageInfoID uint64 // lazily emitted packageInformation vertex
}

// NewExportLinker creates the run's single ExportLinker for manifest.
func NewExportLinker(projectRoot string, manifest *Manifest, em emitter.Emitter, ids *protocol.Generator) *ExportLinker {
	return &ExportLinker{
		projectRoot: projectRoot,
		manifest:    manifest,
		emitter:     em,
		ids:         ids,
	}
}

// Attach emits an export moniker for the symbol behind resultSetID,
// declared in fileName as name.
func (l *ExportLinker) Attach(resultSetID uint64, fileName, name string) error {
	rel := modulePath(fileName, l.projectRoot)
	ident := fmt.Sprintf("%s:%s:%s", l.manifest.Name, rel, name)
	m := protocol.NewMoniker(l.ids, schemeNPM, ident, protocol.MonikerExport, "global")
	if err := l.emitter.Emit(m); err != nil {
		return err
	}
	if l.packageInfoID == 0 {
		v := protocol.NewPackageInformation(l.ids, l.manifest.Name, l.manifest.Version)
		if err := l.emitter.Emit(v); err != nil {
			return err
		}
		l.packageInfoID = v.ID
	}
	if err := l.emitter.Emit(protocol.NewEdge(l.ids, protocol.EdgePackageInformation, m.ID, l.packageInfoID)); err != nil {
		return err
	}
	return l.emitter.Emit(protocol.NewEdge(l.ids, protocol.EdgeMoniker, resultSetID, m.ID))
}

// normalizeSpecifier relativizes workspace-relative specifiers against the
// project root so the same module yields the same identifier from any
// importing file: the specifier is resolved against the importing file's
// directory, then expressed relative to the project root. Bare package
// specifiers pass through unchanged.
func normalizeSpecifier(specifier, fromFile, projectRoot string) string {
	if !strings.HasPrefix(specifier, ".") {
		return specifier
	}
	abs := filepath.Clean(filepath.Join(filepath.Dir(fromFile), specifier))
	rel, err := filepath.Rel(projectRoot, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// packageName extracts the npm package name from a bare specifier:
// "lodash/fp" yields "lodash", "@scope/pkg/x" yields "@scope/pkg".
// Relative and absolute specifiers yield "".
func packageName(specifier string) string {
	if specifier == "" || strings.HasPrefix(specifier, ".") || strings.HasPrefix(specifier, "/") {
		return ""
	}
	parts := strings.Split(specifier, "/")
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 {
			return ""
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// modulePath converts an absolute file name to a root-relative module path
// without its extension.
func modulePath(fileName, projectRoot string) string {
	rel, err := filepath.Rel(projectRoot, fileName)
	if err != nil {
		rel = fileName
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.TrimSuffix(rel, ".d")
}
