// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/autotune/pkg/support/sets"
	"github.com/gomlx/autotune/pkg/tuning/tuningfile"
	"github.com/janpfeifer/must"
)

// Summary prints one column per file with its backend, size and number of results.
func Summary(inputs []*input) {
	fmt.Println(titleStyle.Render("Summary"))
	table := newTable(lipgloss.Right, lipgloss.Left)
	numInputs := len(inputs)
	rows := map[string][]string{}
	rowNames := []string{"file", "backend", "size", "# validators", "# ops", "# entries", "checksum"}
	for _, name := range rowNames {
		rows[name] = make([]string, numInputs+1)
		rows[name][0] = name
	}
	for ii, in := range inputs {
		col := ii + 1
		rows["file"][col] = in.name
		rows["backend"][col] = in.tr.Backend
		rows["size"][col] = humanize.Bytes(uint64(in.size))
		rows["# validators"][col] = humanize.Comma(int64(len(in.tr.Validators)))
		rows["# ops"][col] = humanize.Comma(int64(len(in.tr.Results)))
		rows["# entries"][col] = humanize.Comma(int64(in.tr.Results.NumEntries()))
		rows["checksum"][col] = must.M1(tuningfile.Checksum(in.tr))
	}
	for _, name := range rowNames {
		// Backends that differ are highlighted: those files can't be merged.
		table.Row(name == "backend" && !isAllEqual(rows[name][1:]), rows[name]...)
	}
	fmt.Println(table.Render())
}

// Env prints the validators of each file, one row per key. Rows whose values differ across files are highlighted.
func Env(inputs []*input) {
	fmt.Println(titleStyle.Render("Environment"))
	keys := sets.Make[string]()
	for _, in := range inputs {
		for key := range in.tr.Validators {
			keys.Insert(key)
		}
	}
	table := newTable(lipgloss.Right, lipgloss.Left)
	table.Table.Headers(append([]string{"Key"}, names(inputs)...)...)
	for _, key := range sets.Sorted(keys) {
		row := make([]string, len(inputs)+1)
		row[0] = key
		for ii, in := range inputs {
			value, found := in.tr.Validators[key]
			if !found {
				value = "<missing>"
			}
			row[ii+1] = value
		}
		table.Row(!isAllEqual(row[1:]), row...)
	}
	fmt.Println(table.Render())
}

// Ops prints the number of tuned parameters of each operation, per file.
func Ops(inputs []*input) {
	fmt.Println(titleStyle.Render("Operations"))
	ops := sets.Make[string]()
	for _, in := range inputs {
		for op := range in.tr.Results {
			ops.Insert(op)
		}
	}
	table := newTable(lipgloss.Left, lipgloss.Right)
	table.Table.Headers(append([]string{"Operation"}, names(inputs)...)...)
	for _, op := range sets.Sorted(ops) {
		row := make([]string, len(inputs)+1)
		row[0] = op
		for ii, in := range inputs {
			if kernels, found := in.tr.Results[op]; found {
				row[ii+1] = humanize.Comma(int64(len(kernels)))
			} else {
				row[ii+1] = "-"
			}
		}
		table.Row(false, row...)
	}
	fmt.Println(table.Render())
}

func names(inputs []*input) []string {
	result := make([]string, len(inputs))
	for ii, in := range inputs {
		result[ii] = in.name
	}
	return result
}
