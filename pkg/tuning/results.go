// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tuning

import (
	"maps"
	"sync"

	"k8s.io/klog/v2"
)

// NotFound is the kernel id reported by Manager.LookupKernel when there is no recorded result.
const NotFound = -1

// KernelMap maps a parameter signature to the id of the best kernel found for it.
type KernelMap map[string]int

// Clone returns a copy of the KernelMap. It's never nil.
func (km KernelMap) Clone() KernelMap {
	if km == nil {
		return make(KernelMap)
	}
	return maps.Clone(km)
}

// ResultSet maps an operation signature to its KernelMap. It's the full contents of a Manager.
type ResultSet map[string]KernelMap

// Clone returns a deep copy of the ResultSet.
func (rs ResultSet) Clone() ResultSet {
	clone := make(ResultSet, len(rs))
	for op, km := range rs {
		clone[op] = km.Clone()
	}
	return clone
}

// NumEntries returns the total number of (op, params) pairs.
func (rs ResultSet) NumEntries() int {
	var n int
	for _, km := range rs {
		n += len(km)
	}
	return n
}

// Stats are counters of a Manager usage, since its creation (or the last Clear).
type Stats struct {
	Hits, Misses     int64
	ConflictedWrites int64
	NumOps           int
	NumEntries       int
}

// Manager holds the tuning results: for each operation signature, the best kernel for each parameter signature.
//
// It is safe for concurrent use. One lock serializes every method: writes only happen when a new
// (op, params) pair gets tuned, and lookups are cheap.
//
// Once a kernel id is recorded for a pair it is never replaced: attempts to record a different id are
// logged and dropped, so concurrent tuners racing on the same pair end up agreeing on the first one.
type Manager struct {
	mu      sync.Mutex
	results ResultSet
	stats   Stats
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{results: make(ResultSet)}
}

// Lookup returns a copy of the results for the operation, or an empty map if there are none.
// It is not counted in Stats hits and misses.
func (m *Manager) Lookup(opSignature string) KernelMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	km, found := m.results[opSignature]
	if !found {
		return make(KernelMap)
	}
	return km.Clone()
}

// LookupKernel returns the best kernel id recorded for the operation and parameters.
// If there is none, it returns (NotFound, false).
func (m *Manager) LookupKernel(opSignature, paramsSignature string) (id int, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, found = m.results[opSignature][paramsSignature]
	if !found {
		m.stats.Misses++
		return NotFound, false
	}
	m.stats.Hits++
	return id, true
}

// Add records bestID for the operation and parameters.
//
// If there is already a result for the pair, the existing one is kept: a different bestID is logged as a
// warning and ignored.
func (m *Manager) Add(opSignature, paramsSignature string, bestID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedAdd(opSignature, paramsSignature, bestID, m.lockedKernelMap(opSignature))
}

// AddAndGet records bestID like Add, and returns the id recorded for the pair afterward, which is the
// previous one if there was a conflict. It doesn't count as a lookup in Stats.
func (m *Manager) AddAndGet(opSignature, paramsSignature string, bestID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	km := m.lockedKernelMap(opSignature)
	m.lockedAdd(opSignature, paramsSignature, bestID, km)
	return km[paramsSignature]
}

// Merge adds all entries of kernelMap to the results of the operation, with the same policy as Add.
func (m *Manager) Merge(opSignature string, kernelMap KernelMap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedMerge(opSignature, kernelMap)
}

// Load merges all the results given into the Manager. It doesn't replace the current contents:
// previous results not present in resultSet are preserved, and conflicting entries keep the previous value.
func (m *Manager) Load(resultSet ResultSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for opSignature, kernelMap := range resultSet {
		m.lockedMerge(opSignature, kernelMap)
	}
}

// Dump returns a copy of all the results.
func (m *Manager) Dump() ResultSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results.Clone()
}

// Clear removes all results and resets the stats. Mostly for testing.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(ResultSet)
	m.stats = Stats{}
}

// Stats returns the current usage counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats
	stats.NumOps = len(m.results)
	stats.NumEntries = m.results.NumEntries()
	return stats
}

// lockedKernelMap returns the KernelMap for opSignature, creating it if needed.
// It must be called with m.mu held.
func (m *Manager) lockedKernelMap(opSignature string) KernelMap {
	if m.results == nil {
		m.results = make(ResultSet)
	}
	km, found := m.results[opSignature]
	if !found {
		km = make(KernelMap)
		m.results[opSignature] = km
	}
	return km
}

// lockedMerge must be called with m.mu held.
func (m *Manager) lockedMerge(opSignature string, kernelMap KernelMap) {
	km := m.lockedKernelMap(opSignature)
	for paramsSignature, bestID := range kernelMap {
		m.lockedAdd(opSignature, paramsSignature, bestID, km)
	}
}

// lockedAdd must be called with m.mu held.
func (m *Manager) lockedAdd(opSignature, paramsSignature string, bestID int, km KernelMap) {
	current, found := km[paramsSignature]
	if !found {
		km[paramsSignature] = bestID
		return
	}
	if current != bestID {
		m.stats.ConflictedWrites++
		klog.Warningf("%s(%s) already has a best kernel id=%d selected, want to add a different best kernel id=%d, "+
			"the new kernel id will be ignored", opSignature, paramsSignature, current, bestID)
	}
}
