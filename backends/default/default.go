// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package _default registers the tuning contexts of the default backends, namely SimpleGo and XLA.
//
// To use it simply include:
//
//	import _ "github.com/gomlx/autotune/backends/default"
//
// If you add the tag `noxla` it will not include xla -- useful if you don't have the PJRT plugins installed.
//
// The cuda and rocm backends are not included: they need the probes of their runtimes, see cuda.Register
// and rocm.Register.
package _default

import (
	_ "github.com/gomlx/autotune/backends/simplego"
)
