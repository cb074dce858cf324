// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// tuning_results inspects, checks and merges saved tuning results files.
//
// Usage:
//
//	tuning_results [flags] file...
//
// By default it prints a summary of each file. Use -env to compare the environments the results were produced in,
// -ops to list the tuned operations, -check=<backend config> to check whether a backend would accept the results,
// and -merge=<output file> to merge all files into one.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/autotune/pkg/tuning/tuningfile"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/autotune/backends/default"
)

var (
	flagSummary = flag.Bool("summary", false, "Display a summary of each tuning results file. "+
		"This is the default if no other report is requested.")
	flagEnv = flag.Bool("env", false, "Lists the environment (validators) each file was produced in. "+
		"Rows with values that differ across files are highlighted.")
	flagOps   = flag.Bool("ops", false, "Lists the tuned operations, with the number of parameters tuned per file.")
	flagCheck = flag.String("check", "", "Backend configuration (as in AUTOTUNE_BACKEND, e.g. \"simplego\") "+
		"to check the files against: it reports whether the backend would load them, and why not.")
	flagMerge = flag.String("merge", "", "Merge all files into the given output file. The files must have been "+
		"produced by the same backend in the same environment. On conflicts, the first file wins. "+
		"The format is taken from the file name, e.g. \"merged.yaml.zst\".")
)

// input is one tuning results file read.
type input struct {
	path, name string
	size       int64
	tr         *tuning.TuningResults
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		klog.Errorf("Missing tuning results files to read from. See 'tuning_results -help'")
		os.Exit(1)
	}
	inputs := must.M1(readInputs(paths))

	if !*flagSummary && !*flagEnv && !*flagOps && *flagCheck == "" && *flagMerge == "" {
		*flagSummary = true
	}
	if *flagSummary {
		Summary(inputs)
	}
	if *flagEnv {
		Env(inputs)
	}
	if *flagOps {
		Ops(inputs)
	}
	failed := false
	if *flagCheck != "" {
		if !Check(*flagCheck, inputs) {
			failed = true
		}
	}
	if *flagMerge != "" {
		tr, stats, err := mergeInputs(inputs)
		must.M(err)
		must.M(tuningfile.WriteFile(*flagMerge, tr))
		fmt.Printf("Merged %d files into %s: %s", len(inputs), *flagMerge, tr)
		if stats.ConflictedWrites > 0 {
			fmt.Printf(", %d conflicting results ignored", stats.ConflictedWrites)
		}
		fmt.Println()
	}
	if failed {
		os.Exit(1)
	}
}

// readInputs reads the files in parallel.
func readInputs(paths []string) ([]*input, error) {
	names := MinimalUniquePaths(paths...)
	inputs := make([]*input, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for ii, path := range paths {
		g.Go(func() error {
			info, err := os.Stat(path)
			if err != nil {
				return errors.Wrapf(err, "tuning results file %q", path)
			}
			tr, err := tuningfile.ReadFile(path)
			if err != nil {
				return err
			}
			inputs[ii] = &input{path: path, name: names[ii], size: info.Size(), tr: tr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}
