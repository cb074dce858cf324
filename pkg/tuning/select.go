// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tuning

import (
	"github.com/pkg/errors"
)

// DefaultKernelID is the kernel used by an operation when tuning is disabled.
const DefaultKernelID = 0

// TuneFunc searches for the best kernel of an operation with the given parameters, and returns its id.
// It's provided by the operation: the search itself is not done by this package.
type TuneFunc func() (bestID int, err error)

// Select returns the kernel id to use for the operation with the given parameters.
//
//   - If tuning is disabled in c, it returns DefaultKernelID.
//   - If there is a recorded result, it is returned.
//   - Otherwise tune is called, and its result recorded.
//
// When several goroutines tune the same pair concurrently, they all end up using the result recorded first.
func Select(c Context, opSignature, paramsSignature string, tune TuneFunc) (int, error) {
	if !c.IsTunableOpEnabled() {
		return DefaultKernelID, nil
	}
	manager := c.Manager()
	if id, found := manager.LookupKernel(opSignature, paramsSignature); found {
		return id, nil
	}
	bestID, err := tune()
	if err != nil {
		return NotFound, errors.WithMessagef(err, "while tuning %s(%s)", opSignature, paramsSignature)
	}
	if bestID < 0 {
		return NotFound, errors.Errorf("tuning %s(%s) returned invalid kernel id %d", opSignature, paramsSignature, bestID)
	}
	return manager.AddAndGet(opSignature, paramsSignature, bestID), nil
}
