// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tuning keeps the results of kernel autotuning and validates saved results before they are reused.
//
// Autotuning searches, at runtime, which of several candidate implementations ("kernels") of an operation is
// the fastest for a given set of parameters. The search is expensive, so its results are recorded in a Manager,
// and can be saved and loaded later (see sub-package tuningfile) to skip the search.
//
// Saved results are only valid in the environment they were produced in (library version, build, accelerator
// runtime, device model, ...). A Validator writes a snapshot of that environment along the results, and checks
// it back when they are loaded: any mismatch refuses the whole load, and the tuning restarts from scratch.
//
// Each backend provides a Context, which bundles the Manager, its Validator and a flag to enable or disable
// tuning. DefaultContext implements everything, backends only need to compose it with their own validator checks.
package tuning

import (
	"fmt"
	"sync/atomic"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Context is the tuning subsystem of one backend.
type Context interface {
	// Name of the backend, saved along the results: results are only loaded by a backend of the same name.
	Name() string

	// EnableTunableOp enables the use of tuning for operations executed after the call.
	EnableTunableOp()

	// DisableTunableOp disables tuning: operations use their default kernels.
	DisableTunableOp()

	// IsTunableOpEnabled returns whether tuning is enabled.
	IsTunableOpEnabled() bool

	// Manager holding the tuning results.
	Manager() *Manager

	// Validator for saved tuning results.
	Validator() *Validator

	// Save returns a snapshot of the tuning results, along with the environment they were produced in.
	Save() *TuningResults

	// Load validates and then merges the saved tuning results into the Manager.
	// If validation fails, the Manager is left unchanged.
	Load(tr *TuningResults) error
}

// TuningResults is the persisted state of a Context.
type TuningResults struct {
	// Backend is the name of the backend that produced the results.
	Backend string `json:"ep" yaml:"ep"`

	// Validators is the snapshot of the environment, as written by Validator.WriteAll.
	Validators map[string]string `json:"validators" yaml:"validators"`

	// Results of the tuning.
	Results ResultSet `json:"results" yaml:"results"`
}

// String implements fmt.Stringer.
func (tr *TuningResults) String() string {
	return fmt.Sprintf("TuningResults(backend=%q, %d validators, %d ops, %d entries)",
		tr.Backend, len(tr.Validators), len(tr.Results), tr.Results.NumEntries())
}

// DefaultContext implements Context. Backends create one with their own Validator.
type DefaultContext struct {
	name      string
	enabled   atomic.Bool
	manager   Manager
	validator *Validator
}

var _ Context = (*DefaultContext)(nil)

// NewDefaultContext creates a DefaultContext for the named backend, with tuning disabled.
func NewDefaultContext(name string, validator *Validator) *DefaultContext {
	if validator == nil {
		validator = NewBaseValidator()
	}
	return &DefaultContext{
		name:      name,
		validator: validator,
		manager:   Manager{results: make(ResultSet)},
	}
}

// Name implements Context.
func (c *DefaultContext) Name() string {
	return c.name
}

// String implements fmt.Stringer.
func (c *DefaultContext) String() string {
	return fmt.Sprintf("tuning.Context(%q)", c.name)
}

// EnableTunableOp implements Context.
func (c *DefaultContext) EnableTunableOp() {
	klog.Infof("Enable TunableOp for %q backend", c.name)
	c.enabled.Store(true)
}

// DisableTunableOp implements Context.
func (c *DefaultContext) DisableTunableOp() {
	klog.Infof("Disable TunableOp for %q backend", c.name)
	c.enabled.Store(false)
}

// IsTunableOpEnabled implements Context.
func (c *DefaultContext) IsTunableOpEnabled() bool {
	return c.enabled.Load()
}

// Manager implements Context.
func (c *DefaultContext) Manager() *Manager {
	return &c.manager
}

// Validator implements Context.
func (c *DefaultContext) Validator() *Validator {
	return c.validator
}

// Save implements Context.
func (c *DefaultContext) Save() *TuningResults {
	return &TuningResults{
		Backend:    c.name,
		Validators: c.validator.WriteAll(),
		Results:    c.manager.Dump(),
	}
}

// Load implements Context.
//
// The backend name and all validators are checked before any result is merged: on error nothing is loaded,
// and the returned error lists the mismatches (see Mismatches).
func (c *DefaultContext) Load(tr *TuningResults) error {
	if tr == nil {
		return errors.Errorf("%s: no tuning results to load", c)
	}
	if tr.Backend != c.name {
		klog.Warningf("%s: tuning results produced for backend %q, they will be ignored", c, tr.Backend)
		return &MismatchError{Kind: BackendMismatch, Key: tr.Backend,
			Err: errors.Errorf("current backend is %q", c.name)}
	}
	if err := c.validator.CheckAll(tr.Validators); err != nil {
		klog.Warningf("%s: saved tuning results are not valid for the current environment, "+
			"tuning will be done at runtime: %v", c, err)
		return err
	}
	c.manager.Load(tr.Results)
	klog.V(1).Infof("%s: loaded %d tuning results for %d ops", c, tr.Results.NumEntries(), len(tr.Results))
	return nil
}
