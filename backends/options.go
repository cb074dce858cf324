// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"slices"
	"strings"

	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// Options parsed from a backend configuration string.
type Options struct {
	// Enable tuning in the created context. Set by the "enable" option, and cleared by "disable".
	Enable bool

	// Params holds the "key=value" options, for the backend to interpret.
	Params map[string]string
}

// ParseOptions parses the "<backend_configuration>" part of a configuration string: a comma separated list of
// "enable", "disable" or "key=value" options. E.g.: "enable,plugin=cuda".
//
// It panics on an empty key: the configuration is expected to be fixed by the program or a user flag.
func ParseOptions(config string) Options {
	opts := Options{Params: make(map[string]string)}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "enable":
			opts.Enable = true
			continue
		case "disable":
			opts.Enable = false
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			exceptions.Panicf("invalid backend option %q in configuration %q", part, config)
		}
		opts.Params[key] = strings.TrimSpace(value)
	}
	return opts
}

// Apply the generic options to the tuning context, and warns about the params not in knownParams.
func (opts Options) Apply(tc tuning.Context, knownParams ...string) {
	if opts.Enable {
		tc.EnableTunableOp()
	}
	for key := range opts.Params {
		if !slices.Contains(knownParams, key) {
			klog.Warningf("backend %q: unknown configuration option %q ignored", tc.Name(), key)
		}
	}
}
