package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/tsgraph"
)

var (
	flagProject        string
	flagProjectRoot    string
	flagRepositoryRoot string
	flagOut            string
	flagNoContents     bool
	flagInferTypings   bool
)

// errIndexingFailed signals that per-project errors were already reported;
// main exits non-zero without printing again.
var errIndexingFailed = errors.New("indexing completed with errors")

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errIndexingFailed) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tsgraph [files...]",
	Short: "Stream a language-intelligence index for TypeScript projects",
	Long: "tsgraph analyzes a TypeScript project and every project it references,\n" +
		"emitting an LSIF-style graph as one JSON element per line. An output\n" +
		"path ending in .db writes the stream into a SQLite database instead.",
	Version:       tsgraph.Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runIndex,
}

func init() {
	rootCmd.Flags().StringVarP(&flagProject, "project", "p", "", "path to tsconfig.json or the directory containing it")
	rootCmd.Flags().StringVar(&flagProjectRoot, "projectRoot", "", "root for path relativization (default: current directory)")
	rootCmd.Flags().StringVar(&flagRepositoryRoot, "repositoryRoot", "", "repository root for cross-repo linking (default: git toplevel)")
	rootCmd.Flags().StringVar(&flagOut, "out", "dump.lsif", "output path")
	rootCmd.Flags().BoolVar(&flagNoContents, "noContents", false, "do not embed file contents in the dump")
	rootCmd.Flags().BoolVar(&flagInferTypings, "inferTypings", false, "install typings for plain-JavaScript dependencies before analysis")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	// The output sink is opened before any project is processed and closed
	// on every exit path.
	em, closeSink, err := openSink(flagOut)
	if err != nil {
		return err
	}

	ix, err := tsgraph.New(em, tsgraph.Options{
		ProjectPath:    flagProject,
		Files:          args,
		ProjectRoot:    flagProjectRoot,
		RepositoryRoot: flagRepositoryRoot,
		NoContents:     flagNoContents,
		InferTypings:   flagInferTypings,
		ToolArgs:       os.Args[1:],
	})
	if err != nil {
		closeSink()
		return err
	}

	info, runErr := ix.Run(context.Background())
	if err := closeSink(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(os.Stderr, "Wrote %s in %s\n", flagOut, time.Since(start).Round(time.Millisecond))

	if info == nil || ix.HadErrors() {
		return errIndexingFailed
	}
	return nil
}

// openSink builds the emitter for outPath and returns it with a close
// function that flushes and releases the sink.
func openSink(outPath string) (tsgraph.Emitter, func() error, error) {
	if strings.HasSuffix(outPath, ".db") {
		em, err := tsgraph.NewSQLiteEmitter(outPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open output %s: %w", outPath, err)
		}
		return em, em.Close, nil
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open output %s: %w", outPath, err)
	}
	em := tsgraph.NewLineEmitter(f)
	closeSink := func() error {
		flushErr := em.Close()
		if err := f.Close(); err != nil && flushErr == nil {
			flushErr = err
		}
		return flushErr
	}
	return em, closeSink, nil
}
