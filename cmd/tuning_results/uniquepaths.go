// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"path/filepath"
	"slices"
	"strings"
)

// MinimalUniquePaths takes a list of file paths and returns, for each, the minimal path parts
// that distinguish it from the others. They are used as column headers when comparing files.
//
// If a path differs from the others in more than one part, the first and last differing parts
// are joined with "...".
func MinimalUniquePaths(paths ...string) []string {
	if len(paths) <= 1 {
		result := make([]string, len(paths))
		for ii, path := range paths {
			result[ii] = filepath.Base(path)
		}
		return result
	}

	splitPaths := make([][]string, len(paths))
	for ii, path := range paths {
		splitPaths[ii] = strings.Split(filepath.Clean(path), string(filepath.Separator))
	}

	result := make([]string, len(paths))
	for ii, parts := range splitPaths {
		var diffIndices []int
		for jj, otherParts := range splitPaths {
			if ii == jj {
				continue
			}
			for kk := range min(len(parts), len(otherParts)) {
				if parts[kk] != otherParts[kk] && !slices.Contains(diffIndices, kk) {
					diffIndices = append(diffIndices, kk)
				}
			}
		}
		slices.Sort(diffIndices)
		switch len(diffIndices) {
		case 0:
			result[ii] = parts[len(parts)-1]
		case 1:
			result[ii] = parts[diffIndices[0]]
		default:
			result[ii] = parts[diffIndices[0]] + "..." + parts[diffIndices[len(diffIndices)-1]]
		}
	}
	return result
}
