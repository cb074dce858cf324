// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xla

import (
	"strconv"
	"testing"

	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	description := "cpu:PJRT plugin v0.54"
	numDevices := 1
	v := NewValidator(func() string { return description }, func() int { return numDevices })
	values := v.WriteAll()
	assert.Equal(t, description, values[PluginKey])
	assert.Equal(t, "1", values[NumDevicesKey])
	require.NoError(t, v.CheckAll(values))

	numDevices = 8
	err := v.CheckAll(values)
	require.Error(t, err)
	assert.Equal(t, NumDevicesKey, tuning.Mismatches(err)[0].Key)

	numDevices = 1
	description = "cpu:PJRT plugin v0.55"
	err = v.CheckAll(values)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PJRT plugin mismatch")
}

func TestContext(t *testing.T) {
	assert.Contains(t, backends.List(), BackendName)
	if len(GetAvailablePlugins()) == 0 {
		t.Skip("No PJRT plugins available")
	}
	tc := backends.NewWithConfig("xla:enable")
	c, ok := tc.(*Context)
	require.True(t, ok)
	defer c.Finalize()
	assert.True(t, c.IsTunableOpEnabled())
	assert.Greater(t, c.NumDevices(), 0)

	c.Manager().Add("DotGeneral", "f32[128,128]", 1)
	tr := c.Save()
	assert.Equal(t, strconv.Itoa(c.NumDevices()), tr.Validators[NumDevicesKey])
	require.NoError(t, c.Load(tr))

	c.Finalize()
	err := exceptions.TryCatch[error](func() { c.Save() })
	require.Error(t, err)

	err = exceptions.TryCatch[error](func() { backends.NewWithConfig("xla:plugin=no_such_plugin") })
	require.Error(t, err)
}
