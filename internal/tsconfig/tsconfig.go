// Package tsconfig resolves TypeScript project configurations. A Resolved
// value is the fully expanded view of one project: absolute file list,
// compiler options with the indexer's forced overrides applied, and the
// declared project references. Resolved values are immutable once built;
// re-resolution always produces a fresh value.
package tsconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// ErrNotFound reports a project path whose configuration file does not exist.
var ErrNotFound = errors.New("tsconfig: configuration file not found")

// CompilerOptions is the subset of tsconfig compilerOptions the indexer
// reads. Unknown options are ignored rather than rejected.
type CompilerOptions struct {
	Module           string   `json:"module,omitempty"`
	Target           string   `json:"target,omitempty"`
	ModuleResolution string   `json:"moduleResolution,omitempty"`
	RootDir          string   `json:"rootDir,omitempty"`
	OutDir           string   `json:"outDir,omitempty"`
	Composite        bool     `json:"composite,omitempty"`
	Declaration      bool     `json:"declaration,omitempty"`
	AllowJS          bool     `json:"allowJs,omitempty"`
	Types            []string `json:"types,omitempty"`

	// Forced by the indexer regardless of what the project declares.
	NoEmit bool `json:"noEmit,omitempty"`
}

// Reference is one declared project reference, normalized to an absolute
// path (which may be a directory; resolution to tsconfig.json happens when
// the reference is processed).
type Reference struct {
	Path string
}

// Resolved is the fully expanded configuration for one project.
type Resolved struct {
	// ConfigPath is the absolute path of the tsconfig.json this was loaded
	// from. Empty for inline (synthetic root) configurations.
	ConfigPath string

	// ProjectPath, when non-empty, is an explicit pointer (-p style or a
	// project reference) that has not been loaded yet. The orchestrator
	// resolves and re-parses it before analysis.
	ProjectPath string

	FileNames  []string
	Options    CompilerOptions
	References []Reference
}

// FromProjectPath returns a Resolved that only names a project path; the
// orchestrator loads it on first touch. This is how project references and
// the --project flag enter the pipeline.
func FromProjectPath(path string) *Resolved {
	return &Resolved{ProjectPath: path}
}

// Inline builds a Resolved for a synthetic root project given an explicit
// file list, the way trailing CLI arguments work. Relative paths are
// resolved against cwd.
func Inline(files []string, cwd string) *Resolved {
	abs := make([]string, 0, len(files))
	for _, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(cwd, f)
		}
		abs = append(abs, filepath.Clean(f))
	}
	r := &Resolved{FileNames: abs}
	forceOptions(&r.Options)
	return r
}

// ResolveConfigPath maps a project path to its configuration file: a
// directory means <dir>/tsconfig.json. Returns ErrNotFound when the file
// does not exist.
func ResolveConfigPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve project path %q: %w", path, err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		abs = filepath.Join(abs, "tsconfig.json")
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, abs)
	}
	return abs, nil
}

// configFile mirrors the on-disk tsconfig shape.
type configFile struct {
	Extends         string          `json:"extends"`
	CompilerOptions CompilerOptions `json:"compilerOptions"`
	Files           []string        `json:"files"`
	Include         []string        `json:"include"`
	Exclude         []string        `json:"exclude"`
	References      []struct {
		Path string `json:"path"`
	} `json:"references"`
}

// Load parses the configuration file at configPath and expands it into a
// Resolved. tsconfig.json allows comments and trailing commas, so the raw
// bytes are standardized with hujson before JSON decoding. A single level
// chain of "extends" is followed per hop.
func Load(configPath string) (*Resolved, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %q: %w", configPath, err)
	}
	cf, err := readConfigFile(abs, 0)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(abs)
	r := &Resolved{
		ConfigPath: abs,
		Options:    cf.CompilerOptions,
	}
	forceOptions(&r.Options)

	for _, ref := range cf.References {
		p := ref.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		r.References = append(r.References, Reference{Path: filepath.Clean(p)})
	}

	r.FileNames, err = expandFiles(dir, cf, r.Options.AllowJS)
	if err != nil {
		return nil, fmt.Errorf("expand files for %s: %w", abs, err)
	}
	return r, nil
}

const maxExtendsDepth = 8

// readConfigFile reads one tsconfig, following "extends". Child settings win
// over parent settings; files/include/exclude are inherited only when the
// child leaves them unset.
func readConfigFile(path string, depth int) (*configFile, error) {
	if depth > maxExtendsDepth {
		return nil, fmt.Errorf("extends chain too deep at %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var cf configFile
	if err := json.Unmarshal(std, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cf.Extends != "" {
		base := cf.Extends
		if !filepath.IsAbs(base) {
			base = filepath.Join(filepath.Dir(path), base)
		}
		if filepath.Ext(base) == "" {
			base += ".json"
		}
		parent, err := readConfigFile(base, depth+1)
		if err != nil {
			return nil, fmt.Errorf("extends %s: %w", cf.Extends, err)
		}
		cf = mergeConfig(parent, &cf)
	}
	return &cf, nil
}

// mergeConfig overlays child on parent.
func mergeConfig(parent, child *configFile) configFile {
	out := *parent
	out.Extends = ""
	out.References = child.References

	if child.Files != nil {
		out.Files = child.Files
	}
	if child.Include != nil {
		out.Include = child.Include
	}
	if child.Exclude != nil {
		out.Exclude = child.Exclude
	}

	co := child.CompilerOptions
	po := parent.CompilerOptions
	if co.Module == "" {
		co.Module = po.Module
	}
	if co.Target == "" {
		co.Target = po.Target
	}
	if co.ModuleResolution == "" {
		co.ModuleResolution = po.ModuleResolution
	}
	if co.RootDir == "" {
		co.RootDir = po.RootDir
	}
	if co.OutDir == "" {
		co.OutDir = po.OutDir
	}
	if co.Types == nil {
		co.Types = po.Types
	}
	co.Composite = co.Composite || po.Composite
	co.Declaration = co.Declaration || po.Declaration
	co.AllowJS = co.AllowJS || po.AllowJS
	out.CompilerOptions = co
	return out
}

// forceOptions applies the option overrides the indexer requires regardless
// of the project's own settings: no emit artifacts, and declaration data
// kept available for cross-file symbol resolution.
func forceOptions(opts *CompilerOptions) {
	opts.NoEmit = true
	if opts.Composite {
		opts.Declaration = true
	}
}

// defaultExcludes mirror tsc's built-in excludes.
var defaultExcludes = []string{"node_modules", "bower_components", "jspm_packages"}

// expandFiles turns files/include/exclude into an absolute, ordered file
// list. An explicit files list is taken verbatim; otherwise include patterns
// (default everything under the config directory) are walked and filtered.
func expandFiles(dir string, cf *configFile, allowJS bool) ([]string, error) {
	if len(cf.Files) > 0 {
		out := make([]string, 0, len(cf.Files))
		for _, f := range cf.Files {
			if !filepath.IsAbs(f) {
				f = filepath.Join(dir, f)
			}
			out = append(out, filepath.Clean(f))
		}
		return out, nil
	}

	include := cf.Include
	if len(include) == 0 {
		include = []string{"**/*"}
	}
	exclude := cf.Exclude
	if exclude == nil {
		exclude = []string{}
	}
	exclude = append(exclude, defaultExcludes...)
	if cf.CompilerOptions.OutDir != "" {
		exclude = append(exclude, cf.CompilerOptions.OutDir)
	}

	var out []string
	seen := make(map[string]bool)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || matchesAny(exclude, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtension(path, allowJS) {
			return nil
		}
		if matchesAny(exclude, rel) || !matchesAny(include, rel) {
			return nil
		}
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// sourceExtension reports whether path has a TypeScript source extension
// (or JavaScript, when allowJs is set).
func sourceExtension(path string, allowJS bool) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx":
		return true
	case ".js", ".jsx":
		return allowJS
	}
	return false
}

// matchesAny reports whether rel (slash-separated, relative) matches any of
// the tsconfig-style patterns.
func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if matchPattern(filepath.ToSlash(p), rel) {
			return true
		}
	}
	return false
}

// matchPattern implements the tsconfig glob subset: "**" spans directory
// levels, "*" and "?" match within a segment, and a pattern without glob
// characters matches itself and everything beneath it.
func matchPattern(pattern, rel string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		pattern = strings.TrimSuffix(pattern, "/")
		return rel == pattern || strings.HasPrefix(rel, pattern+"/")
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(rel, "/"))
}

func matchSegments(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}
	if pat[0] == "**" {
		// "**" matches zero or more path segments.
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pat[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], parts[1:])
}
