// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package backends is a registry of the tuning contexts of the available backends.
//
// Each backend (e.g.: "simplego", "xla", "cuda", "rocm") registers a Constructor, typically during
// initialization of its package. A program then creates the tuning context of the configured backend with New.
//
// The simplego and xla backends register themselves when imported:
//
//	import _ "github.com/gomlx/autotune/backends/simplego"
//
// The cuda and rocm backends need the probes of the accelerator runtime, see their Register functions.
package backends

import (
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
)

// Constructor takes a config string (optionally empty) and returns the tuning.Context of a backend.
type Constructor func(config string) tuning.Context

var (
	muRegistry             sync.Mutex
	registeredConstructors = make(map[string]Constructor)
	firstRegistered        string
)

// Register backend with the given name, and a default constructor that takes as input a configuration string that is
// passed along to the backend constructor.
//
// To be safe, call Register during initialization of a package.
func Register(name string, constructor Constructor) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	if len(registeredConstructors) == 0 {
		firstRegistered = name
	}
	registeredConstructors[name] = constructor
}

// List returns the names of the registered backends, sorted.
func List() []string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	return slices.Sorted(maps.Keys(registeredConstructors))
}

// DefaultConfig is the name of the default backend configuration to use if specified.
//
// See NewWithConfig for the format of the configuration string.
var DefaultConfig string

// AUTOTUNE_BACKEND is the environment variable with the default backend configuration to use.
//
// The format of config is "<backend_name>:<backend_configuration>".
// The "<backend_name>" is the name of a registered backend (e.g.: "cuda") and
// "<backend_configuration>" is a comma separated list of options, see ParseOptions.
const AUTOTUNE_BACKEND = "AUTOTUNE_BACKEND"

// New returns the tuning context of the default backend.
//
// The default is:
//
// 1. The environment AUTOTUNE_BACKEND is used as a configuration if defined.
// 2. Next the variable DefaultConfig is used as a configuration if defined.
// 3. The first registered backend is used with an empty configuration.
//
// It panics if no backend was registered.
func New() tuning.Context {
	config, found := os.LookupEnv(AUTOTUNE_BACKEND)
	if found {
		return NewWithConfig(config)
	}
	if DefaultConfig != "" {
		return NewWithConfig(DefaultConfig)
	}
	return NewWithConfig("")
}

// NewWithConfig takes a configurations string formated as "<backend_name>:<backend_configuration>",
// and returns the tuning context created by the named backend.
//
// If "<backend_name>" is empty, the first registered backend is used.
// It panics if the backend is not registered.
func NewWithConfig(config string) tuning.Context {
	muRegistry.Lock()
	if len(registeredConstructors) == 0 {
		muRegistry.Unlock()
		exceptions.Panicf(`no registered backends for autotune -- maybe import the pure Go one with import _ "github.com/gomlx/autotune/backends/simplego"?`)
	}
	backendName := firstRegistered
	backendConfig := config
	if idx := strings.Index(config, ":"); idx != -1 {
		backendName = config[:idx]
		backendConfig = config[idx+1:]
	} else if config != "" {
		backendName = config
		backendConfig = ""
	}
	if backendName == "" {
		backendName = firstRegistered
	}
	constructor, found := registeredConstructors[backendName]
	muRegistry.Unlock()
	if !found {
		exceptions.Panicf("can't find backend %q for configuration %q given, registered backends: %q",
			backendName, config, List())
	}
	return constructor(backendConfig)
}
