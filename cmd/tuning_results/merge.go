// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"maps"

	"github.com/gomlx/autotune/pkg/support/sets"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/pkg/errors"
)

// mergeInputs merges the results of all files, which must share the backend and the environment.
// Files are merged in order, so on conflicting kernels the first file wins.
func mergeInputs(inputs []*input) (*tuning.TuningResults, tuning.Stats, error) {
	if len(inputs) == 0 {
		return nil, tuning.Stats{}, errors.New("no tuning results to merge")
	}
	first := inputs[0]
	var manager tuning.Manager
	for _, in := range inputs {
		if in.tr.Backend != first.tr.Backend {
			return nil, tuning.Stats{}, errors.Errorf("can't merge %s (backend %q) with %s (backend %q)",
				in.name, in.tr.Backend, first.name, first.tr.Backend)
		}
		if !maps.Equal(in.tr.Validators, first.tr.Validators) {
			return nil, tuning.Stats{}, errors.Errorf("can't merge %s with %s: produced in different environments, "+
				"see keys %q", in.name, first.name, diffKeys(first.tr.Validators, in.tr.Validators))
		}
		manager.Load(in.tr.Results)
	}
	tr := &tuning.TuningResults{
		Backend:    first.tr.Backend,
		Validators: maps.Clone(first.tr.Validators),
		Results:    manager.Dump(),
	}
	return tr, manager.Stats(), nil
}

// diffKeys returns the sorted keys whose values differ (or are missing) between a and b.
func diffKeys(a, b map[string]string) []string {
	keys := sets.FromKeys(a)
	for key := range b {
		keys.Insert(key)
	}
	diff := sets.Make[string]()
	for key := range keys {
		valueA, foundA := a[key]
		valueB, foundB := b[key]
		if foundA != foundB || valueA != valueB {
			diff.Insert(key)
		}
	}
	return sets.Sorted(diff)
}
