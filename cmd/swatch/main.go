// Command swatch cleans, standardizes, and merges surface water
// chemistry datasets into a unified database and artifact set.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"swatch/internal/pipeline"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and
// exits the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, "usage: swatch <clean|merge|run> [flags]")
	fmt.Fprintln(stderr, "  clean  standardize raw source tables into the work directory")
	fmt.Fprintln(stderr, "  merge  combine cleaned tables into the unified database tables")
	fmt.Fprintln(stderr, "  run    full pipeline: clean, merge, validate, persist, publish")
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	command := args[0]

	fs := flag.NewFlagSet("swatch "+command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		inputDir = fs.String("input", "", "raw input directory (overrides SWATCH_INPUT_DIR)")
		workDir  = fs.String("work", "", "cleaned table directory (overrides SWATCH_WORK_DIR)")
		sources  = fs.String("sources", "", "comma-separated source names (default all)")
		verbose  = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	cfg, err := pipeline.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "swatch: %v\n", err)
		return 1
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if *workDir != "" {
		cfg.WorkDir = *workDir
	}
	if *sources != "" {
		cfg.Sources = strings.Split(*sources, ",")
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(stderr, "swatch: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, log)
	switch command {
	case "clean":
		summaries, err := p.Clean(ctx)
		if err != nil {
			log.Error("clean failed", zap.Error(err))
			return 1
		}
		return printJSON(stdout, stderr, summaries)
	case "merge":
		res, err := p.Merge(ctx)
		if err != nil {
			log.Error("merge failed", zap.Error(err))
			return 1
		}
		return printJSON(stdout, stderr, map[string]int{
			"sites":      len(res.Sites),
			"samples":    len(res.Samples),
			"methods":    len(res.Methods),
			"violations": len(res.Violations),
			"rejected":   res.Rejected,
			"outliers":   res.Outliers,
			"duplicates": res.Duplicates,
		})
	case "run":
		summary, err := p.Run(ctx)
		if err != nil {
			log.Error("run failed", zap.Error(err))
			return 1
		}
		return printJSON(stdout, stderr, summary)
	default:
		fmt.Fprintf(stderr, "swatch: unknown command %q\n", command)
		usage(stderr)
		return 2
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func printJSON(stdout, stderr io.Writer, v any) int {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "swatch: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(body))
	return 0
}
