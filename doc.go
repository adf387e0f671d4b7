// Package tsgraph builds a language-intelligence index for a tree of
// TypeScript compiler projects and streams it to a dump as a sequence of
// self-contained graph elements, one JSON object per line (or one row per
// element when writing to SQLite).
//
// # Pipeline
//
// An indexing run proceeds project by project:
//
//  1. Resolve: the root tsconfig (or an inline file list) is expanded into
//     an absolute file set, compiler options with the indexer's forced
//     overrides, and the declared project references.
//
//  2. Recurse: every referenced project is resolved and analyzed before the
//     project that references it, so the output stream respects a
//     dependency-before-dependent order at project granularity.
//
//  3. Bind: each project is presented to the symbol-resolution engine
//     through an immutable host — constant script/project versions and a
//     snapshot cache that reads every file at most once per run.
//
//  4. Emit: the graph visitor walks the bound program and streams project,
//     document, range, and result vertices plus their edges through the
//     run's single emitter, drawing every identifier from the run's single
//     generator.
//
// # Usage
//
// Create an emitter and an Indexer, then run:
//
//	out, err := os.Create("dump.lsif")
//	if err != nil { ... }
//	defer out.Close()
//
//	em := tsgraph.NewLineEmitter(out)
//	ix, err := tsgraph.New(em, tsgraph.Options{ProjectPath: "./tsconfig.json"})
//	if err != nil { ... }
//
//	info, err := ix.Run(context.Background())
//	if err != nil { ... }
//	err = em.Close()
//
// A nil info with a nil error means the root project could not be analyzed;
// [Indexer.HadErrors] reports whether any project subtree failed. Both call
// for a non-zero process outcome.
//
// # Identifiers
//
// Every vertex, edge, and project record in one run draws its ID from one
// shared generator, so identifiers are unique and strictly increasing
// across the whole dump, including nested project references. The counter
// is never reset between projects.
//
// # Cross-project linking
//
// One import linker (and, when a package.json manifest is present, one
// export linker) is constructed per run and handed unchanged into every
// recursive project pass, attaching monikers that let references resolve
// across independently indexed projects and packages.
package tsgraph
