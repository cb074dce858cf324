// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package cuda

import (
	"testing"

	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice simulates the CUDA runtime.
type fakeDevice struct {
	version, model string
}

func (d *fakeDevice) probes() Probes {
	return Probes{
		RuntimeVersion: func() string { return d.version },
		DeviceModel:    func() string { return d.model },
	}
}

func TestValidator(t *testing.T) {
	device := &fakeDevice{version: "12040", model: "NVIDIA A100-SXM4-80GB"}
	c := New(device.probes())
	assert.Equal(t, BackendName, c.Name())
	assert.Equal(t, "NVIDIA A100-SXM4-80GB", c.DeviceModel())
	assert.ElementsMatch(t, []string{
		tuning.VersionKey, tuning.GitCommitKey, tuning.BuildConfigKey, VersionKey, DeviceModelKey,
	}, c.Validator().Keys())

	c.Manager().Add("GemmTunableOp_float16_NN", "M_4096_N_4096_K_4096", 12)
	tr := c.Save()
	assert.Equal(t, "12040", tr.Validators[VersionKey])
	require.NoError(t, New(device.probes()).Load(tr))

	// Upgrading the CUDA runtime invalidates the results.
	device.version = "12060"
	c2 := New(device.probes())
	err := c2.Load(tr)
	require.Error(t, err)
	mismatches := tuning.Mismatches(err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, VersionKey, mismatches[0].Key)
	assert.Contains(t, err.Error(), "CUDA runtime version mismatch")
	assert.Empty(t, c2.Manager().Dump())

	// As does a different device.
	device.version = "12040"
	device.model = "NVIDIA H100 80GB HBM3"
	err = New(device.probes()).Load(tr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Device model mismatch")

	err = exceptions.TryCatch[error](func() { New(Probes{}) })
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	device := &fakeDevice{version: "12040", model: "A100"}
	Register(device.probes())
	tc := backends.NewWithConfig("cuda:enable")
	assert.Equal(t, BackendName, tc.Name())
	assert.True(t, tc.IsTunableOpEnabled())
	_, ok := tc.(*Context)
	assert.True(t, ok)
}
