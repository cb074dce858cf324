// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tuningfile

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format of the tuning results file.
type Format int

const (
	// JSON is the default format.
	JSON Format = iota

	// YAML format, easier to edit by hand.
	YAML
)

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatVersion is the version of the file layout written. Files with a different version are not read.
const FormatVersion = 1

// CompressedSuffix is the file name suffix of zstd compressed files.
const CompressedSuffix = ".zst"

// fileContents is what is serialized in the file.
type fileContents struct {
	FormatVersion int                   `json:"format_version" yaml:"format_version"`
	Checksum      string                `json:"checksum" yaml:"checksum"`
	TuningResults *tuning.TuningResults `json:"tuning_results" yaml:"tuning_results"`
}

// FormatFromPath returns the Format and whether the file is compressed, based on the file name.
// Files ending in ".yaml" or ".yml" (optionally followed by ".zst") are YAML, everything else JSON.
func FormatFromPath(filePath string) (format Format, compressed bool) {
	name := strings.ToLower(filepath.Base(filePath))
	if strings.HasSuffix(name, CompressedSuffix) {
		compressed = true
		name = strings.TrimSuffix(name, CompressedSuffix)
	}
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		format = YAML
	default:
		format = JSON
	}
	return
}

// Checksum returns the xxhash of the canonical (JSON) serialization of the tuning results.
// It doesn't depend on the file format, and nil maps hash the same as empty ones.
func Checksum(tr *tuning.TuningResults) (string, error) {
	canonical := &tuning.TuningResults{
		Backend:    tr.Backend,
		Validators: tr.Validators,
		Results:    make(tuning.ResultSet, len(tr.Results)),
	}
	if canonical.Validators == nil {
		canonical.Validators = make(map[string]string)
	}
	for op, km := range tr.Results {
		if km == nil {
			km = make(tuning.KernelMap)
		}
		canonical.Results[op] = km
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", errors.Wrapf(err, "failed to serialize %s", tr)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// Encode writes the tuning results to w in the given format.
// If compressionLevel > 0, the output is compressed with zstd at that level (see zstd.EncoderLevelFromZstd).
func Encode(w io.Writer, tr *tuning.TuningResults, format Format, compressionLevel int) (err error) {
	if tr == nil {
		return errors.New("tuningfile.Encode: nil tuning results")
	}
	checksum, err := Checksum(tr)
	if err != nil {
		return err
	}
	contents := &fileContents{FormatVersion: FormatVersion, Checksum: checksum, TuningResults: tr}

	if compressionLevel > 0 {
		level := zstd.EncoderLevelFromZstd(compressionLevel)
		var compressor *zstd.Encoder
		compressor, err = zstd.NewWriter(w, zstd.WithEncoderLevel(level))
		if err != nil {
			return errors.Wrap(err, "failed to create zstd encoder")
		}
		defer func() {
			closeErr := compressor.Close()
			if err == nil && closeErr != nil {
				err = errors.Wrap(closeErr, "failed to flush zstd encoder")
			}
		}()
		w = compressor
	}

	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err = enc.Encode(contents); err != nil {
			return errors.Wrap(err, "failed to encode tuning results as json")
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(contents); err != nil {
			return errors.Wrap(err, "failed to encode tuning results as yaml")
		}
		if err = enc.Close(); err != nil {
			return errors.Wrap(err, "failed to encode tuning results as yaml")
		}
	default:
		return errors.Errorf("unknown tuning results file format %s", format)
	}
	return nil
}

// Decode reads tuning results written by Encode, verifying the format version and the checksum.
func Decode(r io.Reader, format Format, compressed bool) (*tuning.TuningResults, error) {
	if compressed {
		decompressor, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create zstd decoder")
		}
		defer decompressor.Close()
		r = decompressor
	}

	var contents fileContents
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&contents); err != nil {
			return nil, errors.Wrap(err, "failed to decode tuning results json")
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&contents); err != nil {
			return nil, errors.Wrap(err, "failed to decode tuning results yaml")
		}
	default:
		return nil, errors.Errorf("unknown tuning results file format %s", format)
	}

	if contents.FormatVersion != FormatVersion {
		return nil, errors.Errorf("tuning results file format version %d not supported (expected %d)",
			contents.FormatVersion, FormatVersion)
	}
	tr := contents.TuningResults
	if tr == nil {
		return nil, errors.New("tuning results file has no tuning results")
	}
	if tr.Validators == nil {
		tr.Validators = make(map[string]string)
	}
	if tr.Results == nil {
		tr.Results = make(tuning.ResultSet)
	}
	for op, km := range tr.Results {
		if km == nil {
			tr.Results[op] = make(tuning.KernelMap)
		}
	}
	checksum, err := Checksum(tr)
	if err != nil {
		return nil, err
	}
	if checksum != contents.Checksum {
		return nil, errors.Errorf("tuning results checksum mismatch: file has %q, contents hash to %q -- "+
			"was it edited by hand?", contents.Checksum, checksum)
	}
	return tr, nil
}
