// Package typings materializes type declarations for plain-JavaScript
// dependencies before analysis, so the resolution engine sees them. It
// shells out to npm the same way the rest of the tool shells out to git:
// the package manager owns resolution and caching, we own the decision of
// what to ask for.
package typings

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jward/tsgraph/internal/linker"
)

// Installer installs @types packages into a cache directory under the
// project root. Installation failures are faults: partial typings would
// silently skew analysis, so callers treat any error as fatal for the run.
type Installer struct {
	// npm is the package manager binary; overridable for tests.
	npm string
}

// NewInstaller returns an Installer using the npm found on PATH.
func NewInstaller() *Installer {
	return &Installer{npm: "npm"}
}

// cacheDir is where typings are materialized, relative to the project root.
const cacheDir = ".tsgraph/typings"

// Install materializes exactly the given ambient type packages. Package
// names are the bare names from a tsconfig "types" list; the corresponding
// @types packages are installed.
func (i *Installer) Install(ctx context.Context, projectRoot, startDir string, types []string) error {
	if len(types) == 0 {
		return nil
	}
	pkgs := make([]string, 0, len(types))
	for _, t := range types {
		pkgs = append(pkgs, typesPackage(t))
	}
	return i.npmInstall(ctx, projectRoot, pkgs)
}

// Guess inspects the package manifest at startDir for dependencies that do
// not bundle their own typings and installs @types candidates for them. A
// missing manifest means there is nothing to guess; that is not an error.
func (i *Installer) Guess(ctx context.Context, projectRoot, startDir string) error {
	manifest, err := linker.ReadManifest(startDir)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	if manifest == nil {
		return nil
	}

	var pkgs []string
	for name := range manifest.Dependencies {
		if strings.HasPrefix(name, "@types/") {
			continue
		}
		if i.hasBundledTypings(startDir, name) {
			continue
		}
		pkgs = append(pkgs, typesPackage(name))
	}
	if len(pkgs) == 0 {
		return nil
	}
	return i.npmInstall(ctx, projectRoot, pkgs)
}

// hasBundledTypings reports whether an installed dependency ships its own
// declaration files (a "types"/"typings" manifest field or an index.d.ts).
func (i *Installer) hasBundledTypings(startDir, pkg string) bool {
	dir := filepath.Join(startDir, "node_modules", pkg)
	m, err := linker.ReadManifest(dir)
	if err == nil && m != nil && (m.Types != "" || m.Typings != "") {
		return true
	}
	_, err = os.Stat(filepath.Join(dir, "index.d.ts"))
	return err == nil
}

// npmInstall runs one npm install for pkgs inside the typings cache dir.
func (i *Installer) npmInstall(ctx context.Context, projectRoot string, pkgs []string) error {
	dir := filepath.Join(projectRoot, cacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create typings cache: %w", err)
	}

	args := append([]string{"install", "--no-save", "--no-audit", "--no-fund"}, pkgs...)
	cmd := exec.CommandContext(ctx, i.npm, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("npm install %s: %w: %s", strings.Join(pkgs, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// typesPackage maps a package name to its DefinitelyTyped package:
// "node" -> "@types/node", "@scope/pkg" -> "@types/scope__pkg".
func typesPackage(name string) string {
	if strings.HasPrefix(name, "@types/") {
		return name
	}
	if strings.HasPrefix(name, "@") {
		name = strings.Replace(strings.TrimPrefix(name, "@"), "/", "__", 1)
	}
	return "@types/" + name
}
