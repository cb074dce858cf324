// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tuningfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(device string) *tuning.DefaultContext {
	write := func() string { return device }
	return tuning.NewDefaultContext("test", tuning.NewBaseValidator(tuning.Check{
		Key:   "DEVICE_MODEL",
		Check: tuning.EqualityCheck("Device model", write),
		Write: write,
	}))
}

func TestFormatFromPath(t *testing.T) {
	for _, tc := range []struct {
		path       string
		format     Format
		compressed bool
	}{
		{"results.json", JSON, false},
		{"/a/b/results.YAML", YAML, false},
		{"results.yml.zst", YAML, true},
		{"results.json.zst", JSON, true},
		{"results", JSON, false},
	} {
		format, compressed := FormatFromPath(tc.path)
		assert.Equal(t, tc.format, format, tc.path)
		assert.Equal(t, tc.compressed, compressed, tc.path)
	}
}

func TestEncodeDecode(t *testing.T) {
	tc := newTestContext("A100")
	tc.Manager().Add("Gemm_f16", "NN_128_128_64", 7)
	tc.Manager().Add("Gemm_f16", "NT_64_64_64", 2)
	tc.Manager().Add("Softmax", "1024", 0)
	tr := tc.Save()

	for _, format := range []Format{JSON, YAML} {
		for _, level := range []int{0, 3} {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, tr, format, level), "format=%s, level=%d", format, level)
			decoded, err := Decode(&buf, format, level > 0)
			require.NoError(t, err, "format=%s, level=%d", format, level)
			assert.Equal(t, tr, decoded, "format=%s, level=%d", format, level)
		}
	}
}

func TestDecodeChecksum(t *testing.T) {
	tr := newTestContext("A100").Save()
	tr.Results["Gemm"] = tuning.KernelMap{"p": 3}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tr, JSON, 0))

	// Tamper with the kernel id.
	tampered := strings.Replace(buf.String(), `"p": 3`, `"p": 4`, 1)
	require.NotEqual(t, buf.String(), tampered)
	_, err := Decode(strings.NewReader(tampered), JSON, false)
	require.ErrorContains(t, err, "checksum mismatch")

	// Unknown format version.
	tampered = strings.Replace(buf.String(), `"format_version": 1`, `"format_version": 2`, 1)
	_, err = Decode(strings.NewReader(tampered), JSON, false)
	require.ErrorContains(t, err, "format version 2")
}

func TestHandler(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"results.json", "results.yaml", "results.json.zst"} {
		filePath := filepath.Join(dir, name)
		tc := newTestContext("A100")
		handler, err := Build(tc).Path(filePath).Done()
		require.NoError(t, err)
		assert.Equal(t, filePath, handler.Path())

		// Nothing to load yet.
		loaded, err := handler.Load()
		require.NoError(t, err)
		assert.False(t, loaded)

		tc.Manager().Add("Gemm", "p1", 3)
		require.NoError(t, handler.Save())

		// A new context in the same environment picks up the results.
		tc2 := newTestContext("A100")
		tc2.Manager().Add("Gemm", "p2", 5)
		loaded, err = Build(tc2).Path(filePath).MustDone().Load()
		require.NoError(t, err, name)
		assert.True(t, loaded)
		assert.Equal(t, tuning.KernelMap{"p1": 3, "p2": 5}, tc2.Manager().Lookup("Gemm"))

		// A context on a different device refuses them, and keeps its own results.
		tc3 := newTestContext("MI250")
		tc3.Manager().Add("Conv", "c", 1)
		loaded, err = Build(tc3).Path(filePath).MustDone().Load()
		require.Error(t, err)
		assert.False(t, loaded)
		assert.True(t, tuning.IsMismatch(err))
		assert.Equal(t, tuning.ResultSet{"Conv": {"c": 1}}, tc3.Manager().Dump())

		// The same file can be read without a handler.
		tr, err := ReadFile(filePath)
		require.NoError(t, err)
		assert.Equal(t, "A100", tr.Validators["DEVICE_MODEL"])
	}
}

func TestHandlerOverrides(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "results.dat")
	tc := newTestContext("A100")
	tc.Manager().Add("Gemm", "p1", 3)
	require.NoError(t, Build(tc).Path(filePath).Format(YAML).Compress(5).MustDone().Save())

	// Not readable with the format inferred from the name...
	_, err := ReadFile(filePath)
	require.Error(t, err)
	// ... but readable with the same configuration.
	tr, err := Build(tc).Path(filePath).Format(YAML).Compress(5).MustDone().Read()
	require.NoError(t, err)
	assert.Equal(t, tuning.ResultSet{"Gemm": {"p1": 3}}, tr.Results)

	_, err = Build(tc).Compress(1).Done()
	require.Error(t, err)
	_, err = Build(tc).Path(filePath).Compress(-1).Done()
	require.Error(t, err)
	_, err = Build(nil).Path(filePath).Done()
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "merged.yaml.zst")
	tr := newTestContext("A100").Save()
	tr.Results["Gemm"] = tuning.KernelMap{"p": 1}
	require.NoError(t, WriteFile(filePath, tr))
	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	got, err := ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, tr, got)
}
