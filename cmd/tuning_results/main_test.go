// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/autotune/pkg/tuning/tuningfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBackend = "test_device"

// testDevice is the device model of the "test_device" backend.
var testDevice = "A100"

func init() {
	backends.Register(testBackend, func(config string) tuning.Context {
		return newTestContext(testDevice)
	})
}

func newTestContext(device string) *tuning.DefaultContext {
	write := func() string { return device }
	return tuning.NewDefaultContext(testBackend, tuning.NewBaseValidator(tuning.Check{
		Key:   "DEVICE_MODEL",
		Check: tuning.EqualityCheck("Device model", write),
		Write: write,
	}))
}

// writeResults saves the results of a test context on the given device, and returns the file path.
func writeResults(t *testing.T, filePath, device string, results tuning.ResultSet) string {
	tc := newTestContext(device)
	tc.Manager().Load(results)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
	require.NoError(t, tuningfile.WriteFile(filePath, tc.Save()))
	return filePath
}

func TestReadInputs(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeResults(t, filepath.Join(dir, "a100", "results.json"), "A100", tuning.ResultSet{"Gemm": {"p1": 1}}),
		writeResults(t, filepath.Join(dir, "mi250", "results.json"), "MI250", tuning.ResultSet{"Conv": {"c1": 2}}),
	}
	inputs, err := readInputs(paths)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "a100", inputs[0].name)
	assert.Equal(t, "mi250", inputs[1].name)
	assert.Equal(t, "MI250", inputs[1].tr.Validators["DEVICE_MODEL"])
	assert.Greater(t, inputs[0].size, int64(0))

	_, err = readInputs(append(paths, filepath.Join(dir, "missing.json")))
	require.Error(t, err)
}

func TestMergeInputs(t *testing.T) {
	dir := t.TempDir()
	inputs, err := readInputs([]string{
		writeResults(t, filepath.Join(dir, "1.json"), "A100", tuning.ResultSet{"Gemm": {"p1": 1, "p2": 2}}),
		writeResults(t, filepath.Join(dir, "2.yaml"), "A100", tuning.ResultSet{"Gemm": {"p2": 7, "p3": 3}}),
	})
	require.NoError(t, err)
	tr, stats, err := mergeInputs(inputs)
	require.NoError(t, err)
	assert.Equal(t, testBackend, tr.Backend)
	assert.Equal(t, tuning.ResultSet{"Gemm": {"p1": 1, "p2": 2, "p3": 3}}, tr.Results)
	assert.Equal(t, int64(1), stats.ConflictedWrites)
	assert.Equal(t, inputs[0].tr.Validators, tr.Validators)

	// Different environments can't be merged.
	other, err := readInputs([]string{
		writeResults(t, filepath.Join(dir, "3.json"), "MI250", tuning.ResultSet{"Gemm": {"p4": 4}}),
	})
	require.NoError(t, err)
	_, _, err = mergeInputs(append(inputs, other...))
	require.ErrorContains(t, err, "DEVICE_MODEL")

	_, _, err = mergeInputs(nil)
	require.Error(t, err)
}

func TestCheckInputs(t *testing.T) {
	dir := t.TempDir()
	inputs, err := readInputs([]string{
		writeResults(t, filepath.Join(dir, "a100.json"), "A100", tuning.ResultSet{"Gemm": {"p1": 1}}),
		writeResults(t, filepath.Join(dir, "mi250.json"), "MI250", tuning.ResultSet{"Gemm": {"p1": 2}}),
	})
	require.NoError(t, err)
	results := checkInputs(testBackend, inputs)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].err)
	require.Error(t, results[1].err)
	assert.Equal(t, []string{`value mismatch "DEVICE_MODEL"`}, results[1].reasons)

	// A different backend refuses all files.
	results = checkInputs("simplego", inputs)
	for _, result := range results {
		require.Error(t, result.err)
		assert.Equal(t, []string{`backend mismatch "test_device"`}, result.reasons)
	}
}

func TestDiffKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, diffKeys(map[string]string{"a": "1", "b": "2"}, map[string]string{"a": "2", "b": "2", "c": "3"}))
	assert.Empty(t, diffKeys(map[string]string{"a": "1"}, map[string]string{"a": "1"}))
}
