// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tuning

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Keys of the base validator, registered by every backend.
const (
	VersionKey     = "AUTOTUNE_VERSION"
	GitCommitKey   = "AUTOTUNE_GIT_COMMIT"
	BuildConfigKey = "AUTOTUNE_BUILD_CONFIG"
)

// Version of the library, saved along the tuning results. If left empty, it is taken from the
// build information of the binary. It can be set with -ldflags "-X ...".
var Version string

// BaseConfig configures the base validator checks. Zero fields use the values of the current process.
type BaseConfig struct {
	Version     WriteFunc
	GitCommit   WriteFunc
	BuildConfig WriteFunc
}

// Checks returns the mandatory checks of the base validator, to be composed with backend specific checks.
func (c BaseConfig) Checks() []Check {
	version := c.Version
	if version == nil {
		version = CurrentVersion
	}
	gitCommit := c.GitCommit
	if gitCommit == nil {
		gitCommit = CurrentGitCommit
	}
	buildConfig := c.BuildConfig
	if buildConfig == nil {
		buildConfig = CurrentBuildConfig
	}
	return []Check{
		{Key: VersionKey, Check: EqualityCheck("autotune version", version), Write: version, Mandatory: true},
		{Key: GitCommitKey, Check: EqualityCheck("autotune git commit", gitCommit), Write: gitCommit, Mandatory: true},
		{Key: BuildConfigKey, Check: EqualityCheck("autotune building configuration", buildConfig), Write: buildConfig, Mandatory: true},
	}
}

// NewBaseValidator returns a Validator with the default base checks plus the given extra ones.
func NewBaseValidator(extra ...Check) *Validator {
	return NewValidator(append(BaseConfig{}.Checks(), extra...)...)
}

// EqualityCheck returns a CheckFunc that requires the value to be exactly what write returns.
// The description is used in the error message, e.g. "CUDA runtime version".
func EqualityCheck(description string, write WriteFunc) CheckFunc {
	return func(value string) error {
		current := write()
		if current != value {
			return errors.Errorf("%s mismatch: tuning results produced with %q, currently running with %q",
				description, value, current)
		}
		return nil
	}
}

var buildInfo = sync.OnceValue(func() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return &debug.BuildInfo{}
	}
	return info
})

// CurrentVersion returns Version, or the version of the main module of the binary if Version is not set.
func CurrentVersion() string {
	if Version != "" {
		return Version
	}
	return buildInfo().Main.Version
}

// CurrentGitCommit returns the VCS revision the binary was built from, or "" if not known.
func CurrentGitCommit() string {
	return buildSetting("vcs.revision")
}

// CurrentBuildConfig describes the build of the binary: platform, compiler and cgo.
func CurrentBuildConfig() string {
	var sb strings.Builder
	sb.WriteString("GOOS=" + runtime.GOOS + "|")
	sb.WriteString("GOARCH=" + runtime.GOARCH + "|")
	sb.WriteString("COMPILER=" + runtime.Compiler + "|")
	sb.WriteString("CGO_ENABLED=" + buildSetting("CGO_ENABLED") + "|")
	return sb.String()
}

func buildSetting(key string) string {
	for _, setting := range buildInfo().Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}
