package tsgraph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jward/tsgraph/internal/analysis"
	"github.com/jward/tsgraph/internal/emitter"
	"github.com/jward/tsgraph/internal/graph"
	"github.com/jward/tsgraph/internal/host"
	"github.com/jward/tsgraph/internal/linker"
	"github.com/jward/tsgraph/internal/protocol"
	"github.com/jward/tsgraph/internal/tsconfig"
	"github.com/jward/tsgraph/internal/typings"
)

// ErrNoFiles reports a project whose resolved configuration contains no
// input files; such a project cannot be meaningfully indexed.
var ErrNoFiles = errors.New("tsgraph: project contains no input files")

// ErrNoRepositoryRoot reports that the repository root was neither supplied
// nor discoverable through git. This is fatal for the whole run: emitted
// monikers would not be linkable without it.
var ErrNoRepositoryRoot = errors.New("tsgraph: cannot determine repository root")

// Options configures an indexing run.
type Options struct {
	// ProjectPath points at a tsconfig.json or a directory containing one.
	// Empty means the project root itself (unless Files is set).
	ProjectPath string

	// Files is an explicit input file list for a synthetic root project
	// with no configuration file, the way trailing CLI arguments work.
	Files []string

	// ProjectRoot is the root for path relativization in emitted data.
	// Defaults to the current working directory.
	ProjectRoot string

	// RepositoryRoot is the enclosing checkout's top-level directory, used
	// for cross-repository linking. Defaults to `git rev-parse
	// --show-toplevel` from the project root.
	RepositoryRoot string

	// NoContents leaves document contents out of the dump.
	NoContents bool

	// InferTypings installs type declarations for plain-JavaScript
	// dependencies before analysis.
	InferTypings bool

	// ToolArgs is recorded verbatim in the metaData vertex.
	ToolArgs []string
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithErrorOutput directs per-project error reports to w instead of stderr.
func WithErrorOutput(w io.Writer) Option {
	return func(ix *Indexer) {
		ix.errw = w
	}
}

// Indexer analyzes a tree of compiler projects and streams the resulting
// graph through a single emitter. One Indexer performs one run: it owns the
// run's identifier generator and linkers and hands them unchanged into
// every recursive project pass.
//
// Projects reachable through multiple reference paths are analyzed once per
// path, not deduplicated; a diamond in the reference graph yields duplicate
// elements for the shared project (see DESIGN.md).
type Indexer struct {
	em           emitter.Emitter
	ids          *protocol.Generator
	importLinker *linker.ImportLinker
	exportLinker *linker.ExportLinker // nil when no package manifest exists
	installer    *typings.Installer
	opts         Options
	errw         io.Writer

	// Seams for tests; production wiring is the analysis engine and the
	// graph visitor.
	createProgram func(*host.Host) (*analysis.Program, bool)
	visit         visitFunc

	hadErrors bool
}

type visitFunc func(
	prog *analysis.Program,
	opts graph.Options,
	dependsOn []*graph.ProjectInfo,
	em emitter.Emitter,
	ids *protocol.Generator,
	importLinker *linker.ImportLinker,
	exportLinker *linker.ExportLinker,
	configPath string,
) (*graph.ProjectInfo, error)

// New creates an Indexer writing to em. It resolves the project and
// repository roots, reads the package manifest if one exists, and
// constructs the run's single identifier generator and linkers.
func New(em emitter.Emitter, opts Options, options ...Option) (*Indexer, error) {
	projectRoot := opts.ProjectRoot
	if projectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		projectRoot = wd
	}
	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	opts.ProjectRoot = projectRoot

	if opts.RepositoryRoot == "" {
		top, err := gitToplevel(projectRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoRepositoryRoot, err)
		}
		opts.RepositoryRoot = top
	}
	opts.RepositoryRoot, err = filepath.Abs(opts.RepositoryRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}

	ids := protocol.NewGenerator()
	ix := &Indexer{
		em:            em,
		ids:           ids,
		importLinker:  linker.NewImportLinker(projectRoot, em, ids),
		installer:     typings.NewInstaller(),
		opts:          opts,
		errw:          os.Stderr,
		createProgram: analysis.CreateProgram,
		visit:         graph.Visit,
	}

	manifest, err := linker.ReadManifest(projectRoot)
	if err != nil {
		return nil, err
	}
	if manifest != nil {
		ix.exportLinker = linker.NewExportLinker(projectRoot, manifest, em, ids)
	}

	for _, opt := range options {
		opt(ix)
	}
	return ix, nil
}

// HadErrors reports whether any project subtree failed during the run.
// Completed sibling and ancestor work is unaffected by such failures, but
// the process outcome must be non-zero.
func (ix *Indexer) HadErrors() bool { return ix.hadErrors }

// Run indexes the configured root project and, transitively, every project
// it references. The returned ProjectInfo is the root's, or nil when the
// root project itself could not be analyzed. A non-nil error is fatal for
// the run (emitter I/O, typings installation, cancellation); per-project
// failures are reported to the error output and surface only through
// HadErrors.
func (ix *Indexer) Run(ctx context.Context) (*graph.ProjectInfo, error) {
	meta := protocol.NewMetaData(ix.ids, fileURI(ix.opts.ProjectRoot), protocol.ToolInfo{
		Name:    "tsgraph",
		Version: Version,
		Args:    ix.opts.ToolArgs,
	})
	if err := ix.em.Emit(meta); err != nil {
		return nil, err
	}

	var root *tsconfig.Resolved
	switch {
	case len(ix.opts.Files) > 0:
		root = tsconfig.Inline(ix.opts.Files, ix.opts.ProjectRoot)
	case ix.opts.ProjectPath != "":
		root = tsconfig.FromProjectPath(ix.opts.ProjectPath)
	default:
		root = tsconfig.FromProjectPath(ix.opts.ProjectRoot)
	}
	return ix.processProject(ctx, root)
}

// processProject analyzes one project configuration and, recursively, every
// project it references, dependencies first. Returns (nil, nil) when this
// project's subtree aborted: the caller treats the project as contributing
// nothing and continues. A non-nil error aborts the whole run.
func (ix *Indexer) processProject(ctx context.Context, config *tsconfig.Resolved) (*graph.ProjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Step 1: an explicit project pointer is resolved to its configuration
	// file and re-parsed with the forced default options.
	if config.ProjectPath != "" {
		configPath, err := tsconfig.ResolveConfigPath(config.ProjectPath)
		if err != nil {
			ix.reportf("%v", err)
			return nil, nil
		}
		config, err = tsconfig.Load(configPath)
		if err != nil {
			ix.reportf("%v", err)
			return nil, nil
		}
	}

	// Step 2: a project with no files cannot be indexed.
	if len(config.FileNames) == 0 {
		ix.reportf("%v: %s", ErrNoFiles, configLabel(config))
		return nil, nil
	}

	// Step 3: typings run before symbol resolution because they can add
	// files the engine must see. Installation failure is fatal: partial
	// typings would silently skew analysis.
	if ix.opts.InferTypings {
		startDir := ix.opts.ProjectRoot
		if config.ConfigPath != "" {
			startDir = filepath.Dir(config.ConfigPath)
		}
		var err error
		if len(config.Options.Types) > 0 {
			err = ix.installer.Install(ctx, ix.opts.ProjectRoot, startDir, config.Options.Types)
		} else {
			err = ix.installer.Guess(ctx, ix.opts.ProjectRoot, startDir)
		}
		if err != nil {
			return nil, fmt.Errorf("install typings for %s: %w", configLabel(config), err)
		}
	}

	// Step 4: bind the project through an immutable host.
	h := host.New(config)
	prog, ok := ix.createProgram(h)
	if !ok {
		ix.reportf("no bound program for %s", configLabel(config))
		return nil, nil
	}

	// Step 5: dependencies are fully analyzed (and their elements fully
	// emitted) before this project. A failed reference is omitted from
	// dependsOn; it does not abort this project.
	var dependsOn []*graph.ProjectInfo
	for _, ref := range prog.ResolvedReferences() {
		child, err := ix.processProject(ctx, tsconfig.FromProjectPath(ref.Path))
		if err != nil {
			return nil, err
		}
		if child != nil {
			dependsOn = append(dependsOn, child)
		}
	}

	// Step 6: force full symbol information before graph construction.
	if err := prog.Finalize(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		ix.reportf("bind %s: %v", configLabel(config), err)
		return nil, nil
	}

	// Step 7: hand everything to the visitor; its return value is this
	// project's ProjectInfo.
	info, err := ix.visit(prog, graph.Options{
		ProjectRoot:    ix.opts.ProjectRoot,
		RepositoryRoot: ix.opts.RepositoryRoot,
		EmbedContents:  !ix.opts.NoContents,
	}, dependsOn, ix.em, ix.ids, ix.importLinker, ix.exportLinker, config.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("emit %s: %w", configLabel(config), err)
	}
	if info == nil {
		ix.reportf("project %s produced no analyzable output", configLabel(config))
	}
	return info, nil
}

// reportf records a project-level failure without aborting the run.
func (ix *Indexer) reportf(format string, args ...any) {
	ix.hadErrors = true
	fmt.Fprintf(ix.errw, "tsgraph: "+format+"\n", args...)
}

// configLabel names a configuration in error messages.
func configLabel(config *tsconfig.Resolved) string {
	if config.ConfigPath != "" {
		return config.ConfigPath
	}
	return "<inline project>"
}

// fileURI converts an absolute path to a file URI.
func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// gitToplevel discovers the enclosing checkout's top-level directory by
// invoking git, the same discovery the dump's consumers perform.
func gitToplevel(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git rev-parse: %w: %s", err, msg)
		}
		return "", fmt.Errorf("git rev-parse: %w", err)
	}
	top := strings.TrimSpace(stdout.String())
	if top == "" {
		return "", errors.New("git rev-parse returned nothing")
	}
	return top, nil
}
