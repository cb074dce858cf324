// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package rocm implements the tuning context of the ROCm backend.
//
// Querying the HIP runtime and rocBLAS is left to the program: it provides the Probes, and calls Register
// to make the backend available in the registry (see package backends).
package rocm

import (
	"fmt"

	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
)

// BackendName of the ROCm backend.
const BackendName = "rocm"

// Validator keys specific to the ROCm backend.
const (
	HIPVersionKey     = "HIP_VERSION"
	RocBLASVersionKey = "ROCBLAS_VERSION"
	DeviceModelKey    = "DEVICE_MODEL"
)

// Probes query the ROCm environment. They must be side-effect free.
type Probes struct {
	// HIPVersion returns the HIP runtime version, as in hipRuntimeGetVersion.
	HIPVersion tuning.WriteFunc

	// RocBLASVersion returns the rocBLAS version string, as in rocblas_get_version_string.
	RocBLASVersion tuning.WriteFunc

	// DeviceModel returns the name of the device used, as in hipDeviceProp_t.name.
	DeviceModel tuning.WriteFunc

	// UseComposableKernel and UseRocBLASExtensionAPI describe how the kernels were built: they change
	// the set of candidate kernels, so they are part of the build configuration.
	UseComposableKernel    bool
	UseRocBLASExtensionAPI bool
}

// BuildConfig returns the build configuration saved in place of the default one.
func (p Probes) BuildConfig() string {
	return fmt.Sprintf("USE_CK=%d|USE_ROCBLAS_EXTENSION_API=%d|",
		boolToInt(p.UseComposableKernel), boolToInt(p.UseRocBLASExtensionAPI))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Context is the tuning.Context of the ROCm backend.
type Context struct {
	*tuning.DefaultContext
	probes Probes
}

// NewValidator returns the validator of the ROCm backend: the base checks, with the ROCm build configuration,
// plus the HIP and rocBLAS versions and the device model.
func NewValidator(probes Probes) *tuning.Validator {
	if probes.HIPVersion == nil || probes.RocBLASVersion == nil || probes.DeviceModel == nil {
		exceptions.Panicf("rocm.NewValidator: all probes must be provided")
	}
	checks := tuning.BaseConfig{BuildConfig: probes.BuildConfig}.Checks()
	checks = append(checks,
		tuning.Check{
			Key:   HIPVersionKey,
			Check: tuning.EqualityCheck("HIP runtime version", probes.HIPVersion),
			Write: probes.HIPVersion,
		},
		tuning.Check{
			Key:   RocBLASVersionKey,
			Check: tuning.EqualityCheck("rocblas runtime version", probes.RocBLASVersion),
			Write: probes.RocBLASVersion,
		},
		tuning.Check{
			Key:   DeviceModelKey,
			Check: tuning.EqualityCheck("Device model", probes.DeviceModel),
			Write: probes.DeviceModel,
		},
	)
	return tuning.NewValidator(checks...)
}

// New creates the tuning context of the ROCm backend. Tuning starts disabled.
func New(probes Probes) *Context {
	return &Context{
		DefaultContext: tuning.NewDefaultContext(BackendName, NewValidator(probes)),
		probes:         probes,
	}
}

// DeviceModel returns the model of the device the context tunes for.
func (c *Context) DeviceModel() string {
	return c.probes.DeviceModel()
}

// Register the ROCm backend with the given probes in the backends registry.
// The configuration string accepts the generic options of backends.ParseOptions.
func Register(probes Probes) {
	backends.Register(BackendName, func(config string) tuning.Context {
		c := New(probes)
		backends.ParseOptions(config).Apply(c)
		return c
	})
}
