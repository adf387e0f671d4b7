// Package host adapts a resolved project configuration into the read-only
// view the symbol-resolution engine binds against. The host's world is
// immutable for the life of a run: script and project versions are
// constants, and file contents are captured once into snapshots and never
// re-read. That contract is what lets the engine cache parse results keyed
// by file name alone.
package host

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/jward/tsgraph/internal/tsconfig"
)

// Snapshot is an immutable captured view of one file's contents.
type Snapshot struct {
	content []byte
	hash    uint64
}

// Text returns the snapshot's contents. Callers must not mutate the
// returned slice.
func (s *Snapshot) Text() []byte { return s.content }

// Len returns the content length in bytes.
func (s *Snapshot) Len() int { return len(s.content) }

// Hash returns the xxhash of the contents, usable as a content identity.
func (s *Snapshot) Hash() string { return strconv.FormatUint(s.hash, 16) }

// Host presents one resolved configuration to the resolution engine.
// It is not safe for concurrent use.
type Host struct {
	config    *tsconfig.Resolved
	cwd       string
	snapshots map[string]*Snapshot
}

// scriptVersion and projectVersion are constant for the life of the
// process: nothing the host serves ever changes during a run, and the
// constant versions are how that immutability is signalled to the engine.
const (
	scriptVersion  = "1"
	projectVersion = "1"
)

// New builds a Host over config.
func New(config *tsconfig.Resolved) *Host {
	cwd := ""
	if config.ConfigPath != "" {
		cwd = filepath.Dir(config.ConfigPath)
	} else if wd, err := os.Getwd(); err == nil {
		cwd = wd
	}
	return &Host{
		config:    config,
		cwd:       cwd,
		snapshots: make(map[string]*Snapshot),
	}
}

// FileNames returns the project's resolved file list, fixed for the
// project's lifetime.
func (h *Host) FileNames() []string { return h.config.FileNames }

// CompilationSettings returns the resolved compiler options.
func (h *Host) CompilationSettings() tsconfig.CompilerOptions { return h.config.Options }

// ProjectReferences returns the declared project references.
func (h *Host) ProjectReferences() []tsconfig.Reference { return h.config.References }

// ScriptVersion returns the version of fileName, which is constant: files
// never change during a run.
func (h *Host) ScriptVersion(fileName string) string { return scriptVersion }

// ProjectVersion returns the project's version, constant for the same
// reason as ScriptVersion.
func (h *Host) ProjectVersion() string { return projectVersion }

// CurrentDirectory returns the directory containing the project's
// configuration file, or the process working directory for inline projects.
func (h *Host) CurrentDirectory() string { return h.cwd }

// Snapshot returns the captured contents of fileName, reading and caching
// it on first request. A missing or unreadable file yields (nil, false)
// rather than an error, so the engine can treat it as an unresolved module.
// Subsequent requests return the first read even if the file changes on
// disk mid-run.
func (h *Host) Snapshot(fileName string) (*Snapshot, bool) {
	if snap, ok := h.snapshots[fileName]; ok {
		return snap, snap != nil
	}
	content, err := os.ReadFile(fileName)
	if err != nil {
		// Cache the miss too: the world must not change mid-run.
		h.snapshots[fileName] = nil
		return nil, false
	}
	snap := &Snapshot{content: content, hash: xxhash.Sum64(content)}
	h.snapshots[fileName] = snap
	return snap, true
}

// FileExists defers to the file system without caching.
func (h *Host) FileExists(fileName string) bool {
	info, err := os.Stat(fileName)
	return err == nil && !info.IsDir()
}

// DirectoryExists defers to the file system without caching.
func (h *Host) DirectoryExists(dirName string) bool {
	info, err := os.Stat(dirName)
	return err == nil && info.IsDir()
}

// ReadDirectory lists the entries of dirName, deferring to the file system.
// A missing directory yields an empty list.
func (h *Host) ReadDirectory(dirName string) []string {
	entries, err := os.ReadDir(dirName)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Join(dirName, e.Name()))
	}
	return names
}

// ReadFile reads fileName without touching the snapshot cache. Returns
// (nil, false) when the file does not exist or cannot be read.
func (h *Host) ReadFile(fileName string) ([]byte, bool) {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, false
	}
	return content, true
}
