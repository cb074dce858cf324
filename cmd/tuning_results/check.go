// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/tuning"
)

// checkResult is whether the backend would load one file, and why not.
type checkResult struct {
	name    string
	err     error
	reasons []string
}

// checkInputs tries to load each file into the tuning context of the backend configured by config.
func checkInputs(config string, inputs []*input) []checkResult {
	tc := backends.NewWithConfig(config)
	if finalizer, ok := tc.(interface{ Finalize() }); ok {
		defer finalizer.Finalize()
	}
	results := make([]checkResult, len(inputs))
	for ii, in := range inputs {
		results[ii].name = in.name
		err := tc.Load(in.tr)
		if err == nil {
			continue
		}
		results[ii].err = err
		mismatches := tuning.Mismatches(err)
		if len(mismatches) == 0 {
			results[ii].reasons = []string{err.Error()}
			continue
		}
		for _, m := range mismatches {
			results[ii].reasons = append(results[ii].reasons, fmt.Sprintf("%s %q", m.Kind, m.Key))
		}
	}
	return results
}

// Check prints whether the backend configured by config accepts each file. It returns true if all are accepted.
func Check(config string, inputs []*input) bool {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Check against %q", config)))
	table := newTable(lipgloss.Right, lipgloss.Left)
	table.Table.Headers("File", "Status", "Reasons")
	allOk := true
	for _, result := range checkInputs(config, inputs) {
		if result.err == nil {
			table.Row(false, result.name, "ok", "")
			continue
		}
		allOk = false
		table.Row(true, result.name, "refused", strings.Join(result.reasons, "\n"))
	}
	fmt.Println(table.Render())
	return allOk
}
