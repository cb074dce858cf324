// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tuningfile saves and loads tuning results of a tuning.Context to/from a file.
//
// The main object is the Handler, created by calling Build, followed by the various options and finally
// Config.Done. The file holds the name of the backend, the snapshot of the environment written by the
// context's validator, and the results, plus a checksum of all of it.
//
// Example: load previous results (if any) when the program starts, and save them at the end.
//
//	tc := backends.New()
//	handler := tuningfile.Build(tc).Path("~/.cache/autotune/cuda.json.zst").MustDone()
//	if _, err := handler.Load(); err != nil {
//		klog.Warningf("Ignoring saved tuning results: %+v", err)
//	}
//	…
//	must.M(handler.Save())
//
// Results saved in a different environment are refused by Load (see tuning.Context.Load), and the context
// keeps tuning at runtime.
package tuningfile

import (
	"os"

	"github.com/gomlx/autotune/pkg/support/fsutil"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	// FilePermMode is the default file creation permission (before umask) used.
	FilePermMode = os.FileMode(0644)

	// DefaultCompressionLevel used for files whose name ends with CompressedSuffix.
	DefaultCompressionLevel = 3
)

// Config for the Handler to be created. This is created with Build() and configured with the various methods.
// Once finished, call Done() to get the configured Handler.
type Config struct {
	tc  tuning.Context
	err error

	path             string
	format           Format
	formatSet        bool
	compressionLevel int
	compressionSet   bool
}

// Build a configuration for a Handler of the given context's tuning results.
func Build(tc tuning.Context) *Config {
	return &Config{tc: tc}
}

func (c *Config) setError(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Path sets the file where to save/load the tuning results. A leading "~" is replaced by the home directory.
//
// Unless configured otherwise with Format and Compress, the format and compression are taken from the file
// name (see FormatFromPath).
func (c *Config) Path(filePath string) *Config {
	var err error
	c.path, err = fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		c.setError(err)
	}
	return c
}

// Format sets the format of the file, overriding the one inferred from the file name.
func (c *Config) Format(format Format) *Config {
	c.format = format
	c.formatSet = true
	return c
}

// Compress sets the zstd compression level used when saving: 0 disables compression.
// It overrides the compression inferred from the file name.
func (c *Config) Compress(level int) *Config {
	if level < 0 {
		c.setError(errors.Errorf("invalid compression level %d", level))
		return c
	}
	c.compressionLevel = level
	c.compressionSet = true
	return c
}

// Done creates the Handler.
func (c *Config) Done() (*Handler, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.tc == nil {
		return nil, errors.New("tuningfile.Build() requires a tuning.Context")
	}
	if c.path == "" {
		return nil, errors.New("path for the tuning results file not configured or empty")
	}
	format, compressed := FormatFromPath(c.path)
	if c.formatSet {
		format = c.format
	}
	compressionLevel := 0
	if compressed {
		compressionLevel = DefaultCompressionLevel
	}
	if c.compressionSet {
		compressionLevel = c.compressionLevel
	}
	return &Handler{
		tc:               c.tc,
		path:             c.path,
		format:           format,
		compressionLevel: compressionLevel,
	}, nil
}

// MustDone creates the Handler, and panics if there was an error.
func (c *Config) MustDone() *Handler {
	h, err := c.Done()
	if err != nil {
		panic(errors.WithMessage(err, "failed to create tuningfile.Handler"))
	}
	return h
}

// Handler saves and loads the tuning results of a tuning.Context to a file.
type Handler struct {
	tc               tuning.Context
	path             string
	format           Format
	compressionLevel int
}

// String implements fmt.Stringer.
func (h *Handler) String() string {
	return "tuningfile.Handler(" + h.path + ")"
}

// Path of the file handled.
func (h *Handler) Path() string {
	return h.path
}

// Save the current tuning results of the context to the file, replacing it atomically.
func (h *Handler) Save() error {
	tr := h.tc.Save()
	err := fsutil.WriteFileAtomic(h.path, FilePermMode, func(f *os.File) error {
		return Encode(f, tr, h.format, h.compressionLevel)
	})
	if err != nil {
		return errors.WithMessagef(err, "%s: failed to save tuning results", h)
	}
	klog.V(1).Infof("%s: saved %s", h, tr)
	return nil
}

// Read the tuning results from the file, without loading them into the context.
func (h *Handler) Read() (*tuning.TuningResults, error) {
	return readFile(h.path, h.format, h.compressionLevel > 0)
}

// Load reads the tuning results from the file and loads them into the context.
//
// If the file doesn't exist it returns (false, nil). If the results are not valid for the current environment,
// nothing is loaded and the error is returned: tuning.Mismatches lists the reasons.
func (h *Handler) Load() (loaded bool, err error) {
	exists, err := fsutil.FileExists(h.path)
	if err != nil {
		return false, err
	}
	if !exists {
		klog.V(1).Infof("%s: no saved tuning results", h)
		return false, nil
	}
	tr, err := h.Read()
	if err != nil {
		return false, err
	}
	if err = h.tc.Load(tr); err != nil {
		return false, err
	}
	return true, nil
}

// ReadFile reads tuning results from the file, using the format and compression inferred from its name.
func ReadFile(filePath string) (*tuning.TuningResults, error) {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return nil, err
	}
	format, compressed := FormatFromPath(filePath)
	return readFile(filePath, format, compressed)
}

// WriteFile writes tuning results to the file, using the format and compression inferred from its name.
func WriteFile(filePath string, tr *tuning.TuningResults) error {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return err
	}
	format, compressed := FormatFromPath(filePath)
	compressionLevel := 0
	if compressed {
		compressionLevel = DefaultCompressionLevel
	}
	return fsutil.WriteFileAtomic(filePath, FilePermMode, func(f *os.File) error {
		return Encode(f, tr, format, compressionLevel)
	})
}

func readFile(filePath string, format Format, compressed bool) (tr *tuning.TuningResults, err error) {
	var f *os.File
	f, err = os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open tuning results file %s", filePath)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = errors.Wrapf(closeErr, "failed to close tuning results file %s", filePath)
		}
	}()
	tr, err = Decode(f, format, compressed)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %s", filePath)
	}
	return tr, nil
}
