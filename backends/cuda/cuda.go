// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package cuda implements the tuning context of the CUDA backend.
//
// Querying the CUDA runtime is left to the program: it provides the Probes, and calls Register to make the
// backend available in the registry (see package backends).
package cuda

import (
	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
)

// BackendName of the CUDA backend.
const BackendName = "cuda"

// Validator keys specific to the CUDA backend.
const (
	VersionKey     = "CUDA_VERSION"
	DeviceModelKey = "DEVICE_MODEL"
)

// Probes query the CUDA environment. They must be side-effect free.
type Probes struct {
	// RuntimeVersion returns the CUDA runtime version, as in cudaRuntimeGetVersion.
	RuntimeVersion tuning.WriteFunc

	// DeviceModel returns the name of the device used, as in cudaDeviceProp.name.
	DeviceModel tuning.WriteFunc
}

// Context is the tuning.Context of the CUDA backend.
type Context struct {
	*tuning.DefaultContext
	probes Probes
}

// NewValidator returns the validator of the CUDA backend: the base checks plus the CUDA runtime version and
// the device model.
func NewValidator(probes Probes) *tuning.Validator {
	if probes.RuntimeVersion == nil || probes.DeviceModel == nil {
		exceptions.Panicf("cuda.NewValidator: all probes must be provided")
	}
	return tuning.NewBaseValidator(
		tuning.Check{
			Key:   VersionKey,
			Check: tuning.EqualityCheck("CUDA runtime version", probes.RuntimeVersion),
			Write: probes.RuntimeVersion,
		},
		tuning.Check{
			Key:   DeviceModelKey,
			Check: tuning.EqualityCheck("Device model", probes.DeviceModel),
			Write: probes.DeviceModel,
		},
	)
}

// New creates the tuning context of the CUDA backend. Tuning starts disabled.
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

// Register the CUDA backend with the given probes in the backends registry.
// The configuration string accepts the generic options of backends.ParseOptions.
func Register(probes Probes) {
	backends.Register(BackendName, func(config string) tuning.Context {
		c := New(probes)
		backends.ParseOptions(config).Apply(c)
		return c
	})
}
