// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tuning

import (
	"maps"
	"slices"

	"github.com/gomlx/autotune/pkg/support/sets"
	"github.com/gomlx/exceptions"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"
)

// CheckFunc validates a value saved along with tuning results against the current environment.
type CheckFunc func(value string) error

// WriteFunc returns the current environment value for a validator key.
type WriteFunc func() string

// Check is one entry of a Validator: how to write a piece of the environment along the tuning results,
// and how to check it back when they are loaded.
type Check struct {
	Key   string
	Check CheckFunc
	Write WriteFunc

	// Mandatory keys must be present in any set of values checked, independent of the backend.
	Mandatory bool
}

// Validator checks that saved tuning results were produced in an environment compatible with the current one.
//
// It is built once with NewValidator, and it is immutable afterward, hence safe for concurrent use.
type Validator struct {
	checks    map[string]Check
	keys      []string
	mandatory []string
}

// NewValidator creates a Validator with the given checks.
//
// It panics (see package github.com/gomlx/exceptions) if a key is registered twice or if a check is
// incomplete: those are programming errors.
func NewValidator(checks ...Check) *Validator {
	v := &Validator{checks: make(map[string]Check, len(checks))}
	for _, check := range checks {
		v.register(check)
	}
	v.keys = slices.Sorted(maps.Keys(v.checks))
	return v
}

func (v *Validator) register(check Check) {
	if check.Key == "" {
		exceptions.Panicf("tuning.NewValidator: check with an empty key")
	}
	if check.Check == nil || check.Write == nil {
		exceptions.Panicf("tuning.NewValidator: check for key %q must define both Check and Write functions", check.Key)
	}
	if _, found := v.checks[check.Key]; found {
		exceptions.Panicf("tuning.NewValidator: key %q registered more than once", check.Key)
	}
	v.checks[check.Key] = check
	if check.Mandatory {
		v.mandatory = append(v.mandatory, check.Key)
	}
}

// Keys returns the registered keys, sorted.
func (v *Validator) Keys() []string {
	return slices.Clone(v.keys)
}

// MandatoryKeys returns the keys registered as mandatory, in registration order.
func (v *Validator) MandatoryKeys() []string {
	return slices.Clone(v.mandatory)
}

// WriteAll returns the current environment values for all registered keys.
func (v *Validator) WriteAll() map[string]string {
	values := make(map[string]string, len(v.checks))
	for key, check := range v.checks {
		values[key] = check.Write()
	}
	return values
}

// CheckAll validates the values saved along some tuning results.
//
// First the keys are matched: the mandatory keys must be provided, and the provided keys must be exactly
// the registered ones. All offending keys are reported, as *MismatchError combined with multierr.
// Only if the keys match, each registered check is called with its value, and the first one that fails
// is returned (as a *MismatchError of kind ValueMismatch).
func (v *Validator) CheckAll(values map[string]string) error {
	if err := v.checkKeys(values); err != nil {
		return err
	}
	for _, key := range v.keys {
		if err := v.checks[key].Check(values[key]); err != nil {
			klog.Errorf("Tuning results validator %q rejected value %q: %v", key, values[key], err)
			return &MismatchError{Kind: ValueMismatch, Key: key, Err: err}
		}
	}
	return nil
}

// checkKeys matches the keys of values against the registered keys.
func (v *Validator) checkKeys(values map[string]string) error {
	registered := sets.FromKeys(v.checks)
	provided := sets.FromKeys(values)
	var errs []error
	reported := sets.Make[string]()
	for _, key := range v.mandatory {
		if !provided.Has(key) {
			klog.Errorf("Tuning results validator: mandatory key %q is not provided for validation", key)
			errs = append(errs, &MismatchError{Kind: MissingMandatoryKey, Key: key})
			reported.Insert(key)
		}
	}
	for _, key := range sets.Sorted(registered.Sub(provided)) {
		if reported.Has(key) {
			continue
		}
		klog.Errorf("Unmatched validator: %q is required, but the tuning results do not provide it", key)
		errs = append(errs, &MismatchError{Kind: MissingKey, Key: key})
	}
	for _, key := range sets.Sorted(provided.Sub(registered)) {
		klog.Errorf("Unmatched validator: %q is provided, but there is no validator to consume it", key)
		errs = append(errs, &MismatchError{Kind: UnknownKey, Key: key})
	}
	return multierr.Combine(errs...)
}
