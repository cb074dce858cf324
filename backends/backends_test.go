// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"testing"

	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lastConfig is the configuration given to the fake backends.
var lastConfig string

func init() {
	for _, name := range []string{"fake", "fake2"} {
		Register(name, func(config string) tuning.Context {
			lastConfig = config
			tc := tuning.NewDefaultContext(name, nil)
			ParseOptions(config).Apply(tc)
			return tc
		})
	}
}

func TestNewWithConfig(t *testing.T) {
	assert.Subset(t, List(), []string{"fake", "fake2"})

	tc := NewWithConfig("fake2:enable")
	assert.Equal(t, "fake2", tc.Name())
	assert.Equal(t, "enable", lastConfig)
	assert.True(t, tc.IsTunableOpEnabled())

	tc = NewWithConfig("fake")
	assert.Equal(t, "fake", tc.Name())
	assert.Equal(t, "", lastConfig)
	assert.False(t, tc.IsTunableOpEnabled())

	// Empty backend name: first registered backend.
	tc = NewWithConfig(":enable")
	assert.Equal(t, "fake", tc.Name())

	err := exceptions.TryCatch[error](func() { NewWithConfig("unknown:enable") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"unknown"`)
}

func TestNew(t *testing.T) {
	t.Setenv(AUTOTUNE_BACKEND, "fake2:disable")
	tc := New()
	assert.Equal(t, "fake2", tc.Name())
	assert.Equal(t, "disable", lastConfig)
}

func TestParseOptions(t *testing.T) {
	opts := ParseOptions(" enable , plugin=cuda,device = 1,,")
	assert.True(t, opts.Enable)
	assert.Equal(t, map[string]string{"plugin": "cuda", "device": "1"}, opts.Params)

	opts = ParseOptions("enable,disable")
	assert.False(t, opts.Enable)
	assert.Empty(t, opts.Params)

	err := exceptions.TryCatch[error](func() { ParseOptions("=x") })
	require.Error(t, err)
}
