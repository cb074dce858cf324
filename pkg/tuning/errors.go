// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tuning

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// MismatchKind enumerates the reasons why saved tuning results are not valid for the current environment.
type MismatchKind int

const (
	// MissingMandatoryKey means a key registered as mandatory was not provided.
	MissingMandatoryKey MismatchKind = iota

	// MissingKey means a registered key was not provided.
	MissingKey

	// UnknownKey means a provided key has no registered check.
	UnknownKey

	// ValueMismatch means the check registered for the key rejected the provided value.
	ValueMismatch

	// BackendMismatch means the results were saved by a different backend.
	BackendMismatch
)

var mismatchKindNames = map[MismatchKind]string{
	MissingMandatoryKey: "missing mandatory key",
	MissingKey:          "missing key",
	UnknownKey:          "unknown key",
	ValueMismatch:       "value mismatch",
	BackendMismatch:     "backend mismatch",
}

// String implements fmt.Stringer.
func (k MismatchKind) String() string {
	if name, found := mismatchKindNames[k]; found {
		return name
	}
	return fmt.Sprintf("MismatchKind(%d)", int(k))
}

// MismatchError is returned (possibly several of them combined) when saved tuning results fail validation.
//
// Use errors.As to retrieve it, and multierr.Errors to list all of them.
type MismatchError struct {
	Kind MismatchKind
	Key  string

	// Err is the error returned by the check, for ValueMismatch.
	Err error
}

// Error implements error.
func (e *MismatchError) Error() string {
	var msg string
	switch e.Kind {
	case MissingMandatoryKey:
		msg = fmt.Sprintf("mandatory key %q missing", e.Key)
	case MissingKey:
		msg = fmt.Sprintf("key %q is required, but the tuning results do not provide it", e.Key)
	case UnknownKey:
		msg = fmt.Sprintf("key %q is provided, but there is no validator to consume it", e.Key)
	case BackendMismatch:
		msg = fmt.Sprintf("tuning results produced for backend %q", e.Key)
	default:
		msg = fmt.Sprintf("%s for key %q", e.Kind, e.Key)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the error of the failed check, if any.
func (e *MismatchError) Unwrap() error {
	return e.Err
}

// IsMismatch returns whether err (or any error combined in it) is a *MismatchError.
func IsMismatch(err error) bool {
	var mErr *MismatchError
	return errors.As(err, &mErr)
}

// Mismatches lists all *MismatchError combined in err, even if err was wrapped after being combined.
func Mismatches(err error) []*MismatchError {
	errs := multierr.Errors(err)
	var group interface{ Errors() []error }
	if len(errs) == 1 && errors.As(err, &group) {
		errs = group.Errors()
	}
	var mismatches []*MismatchError
	for _, e := range errs {
		var mErr *MismatchError
		if errors.As(e, &mErr) {
			mismatches = append(mismatches, mErr)
		}
	}
	return mismatches
}
