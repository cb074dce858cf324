// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements the tuning context of the pure Go (CPU) backend.
//
// Simply import it with import _ "github.com/gomlx/autotune/backends/simplego" to make it available in your
// program. It will register itself as an available backend during initialization.
//
// The kernels of a CPU backend depend on the instruction set extensions available (AVX2, AVX512, NEON, ...) and
// on the parallelism used, so both are saved along the tuning results.
package simplego

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/gomlx/autotune/backends"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
	"golang.org/x/sys/cpu"
)

// BackendName to be used in AUTOTUNE_BACKEND to select this backend.
const BackendName = "simplego"

// Validator keys specific to the simplego backend.
const (
	CPUFeaturesKey = "CPU_FEATURES"
	ParallelismKey = "PARALLELISM"
)

// ParallelismParam is the configuration option that sets the parallelism used by the kernels,
// e.g. "simplego:parallelism=4". It defaults to runtime.NumCPU().
const ParallelismParam = "parallelism"

// Registers New() as the default constructor for "simplego" backend.
func init() {
	backends.Register(BackendName, New)
}

// Probes query the CPU. DefaultProbes uses golang.org/x/sys/cpu.
type Probes struct {
	CPUFeatures tuning.WriteFunc
	Parallelism tuning.WriteFunc
}

// DefaultProbes returns the probes of the current machine, with the given parallelism.
// If parallelism <= 0, runtime.NumCPU() is used.
func DefaultProbes(parallelism int) Probes {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	parallelismStr := strconv.Itoa(parallelism)
	return Probes{
		CPUFeatures: CPUFeatures,
		Parallelism: func() string { return parallelismStr },
	}
}

// CPUFeatures lists the instruction set extensions relevant to the kernels, available in the current CPU.
func CPUFeatures() string {
	var features []string
	add := func(name string, has bool) {
		if has {
			features = append(features, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add("sse4.1", cpu.X86.HasSSE41)
		add("avx", cpu.X86.HasAVX)
		add("avx2", cpu.X86.HasAVX2)
		add("fma", cpu.X86.HasFMA)
		add("avx512f", cpu.X86.HasAVX512F)
		add("avx512bw", cpu.X86.HasAVX512BW)
		add("avx512vnni", cpu.X86.HasAVX512VNNI)
	case "arm64":
		add("asimd", cpu.ARM64.HasASIMD)
		add("fphp", cpu.ARM64.HasFPHP)
		add("asimdhp", cpu.ARM64.HasASIMDHP)
		add("asimddp", cpu.ARM64.HasASIMDDP)
		add("sve", cpu.ARM64.HasSVE)
		add("sve2", cpu.ARM64.HasSVE2)
	}
	return runtime.GOARCH + ":" + strings.Join(features, ",")
}

// Context is the tuning.Context of the simplego backend.
type Context struct {
	*tuning.DefaultContext
	parallelism int
}

// NewValidator returns the validator of the simplego backend: the base checks plus the CPU features and
// the parallelism.
func NewValidator(probes Probes) *tuning.Validator {
	return tuning.NewBaseValidator(
		tuning.Check{
			Key:   CPUFeaturesKey,
			Check: tuning.EqualityCheck("CPU features", probes.CPUFeatures),
			Write: probes.CPUFeatures,
		},
		tuning.Check{
			Key:   ParallelismKey,
			Check: tuning.EqualityCheck("Parallelism", probes.Parallelism),
			Write: probes.Parallelism,
		},
	)
}

// New constructs a simplego tuning context, with the given configuration (see backends.ParseOptions).
// Besides "enable" and "disable", it accepts the "parallelism=<n>" option.
func New(config string) tuning.Context {
	return NewWithOptions(backends.ParseOptions(config))
}

// NewWithOptions creates the simplego tuning context with the parsed options.
func NewWithOptions(opts backends.Options) *Context {
	parallelism := runtime.NumCPU()
	if value, found := opts.Params[ParallelismParam]; found {
		var err error
		parallelism, err = strconv.Atoi(value)
		if err != nil || parallelism <= 0 {
			exceptions.Panicf("backend %q: invalid %s=%q, it must be a positive integer", BackendName, ParallelismParam, value)
		}
	}
	c := &Context{
		DefaultContext: tuning.NewDefaultContext(BackendName, NewValidator(DefaultProbes(parallelism))),
		parallelism:    parallelism,
	}
	opts.Apply(c, ParallelismParam)
	return c
}

// Parallelism used by the kernels tuned with this context.
func (c *Context) Parallelism() int {
	return c.parallelism
}
