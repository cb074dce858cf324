// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tuningmetrics exports the usage of tuning contexts as Prometheus metrics.
//
// Metrics exported, all labeled by backend:
//
//   - autotune_lookups_total{result="hit"|"miss"}: lookups of the kernel of one (operation, parameters)
//     pair, that is, Manager.LookupKernel (and tuning.Select). Reading a whole operation with Manager.Lookup,
//     or the results with Manager.Dump, is not counted.
//   - autotune_conflicting_writes_total: results dropped because a different kernel was already recorded.
//   - autotune_results_entries: number of (operation, parameters) pairs with a recorded kernel.
//   - autotune_enabled: 1 if tuning is enabled.
//
// Values are read from the contexts at scrape time:
//
//	prometheus.MustRegister(tuningmetrics.NewCollector(tc))
package tuningmetrics

import (
	"github.com/gomlx/autotune/pkg/tuning"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autotune"

var (
	lookupsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "lookups_total"),
		"Lookups of tuning results, by result (hit or miss).",
		[]string{"backend", "result"}, nil)
	conflictsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "conflicting_writes_total"),
		"Tuning results dropped because a different kernel was already recorded.",
		[]string{"backend"}, nil)
	entriesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "results_entries"),
		"Number of (operation, parameters) pairs with a recorded kernel.",
		[]string{"backend"}, nil)
	enabledDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "enabled"),
		"Whether tuning is enabled (1) or not (0).",
		[]string{"backend"}, nil)
)

// Collector implements prometheus.Collector for a fixed list of tuning contexts.
type Collector struct {
	contexts []tuning.Context
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector of the given contexts' metrics.
func NewCollector(contexts ...tuning.Context) *Collector {
	return &Collector{contexts: contexts}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- lookupsDesc
	ch <- conflictsDesc
	ch <- entriesDesc
	ch <- enabledDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, tc := range c.contexts {
		backend := tc.Name()
		stats := tc.Manager().Stats()
		ch <- prometheus.MustNewConstMetric(lookupsDesc, prometheus.CounterValue, float64(stats.Hits), backend, "hit")
		ch <- prometheus.MustNewConstMetric(lookupsDesc, prometheus.CounterValue, float64(stats.Misses), backend, "miss")
		ch <- prometheus.MustNewConstMetric(conflictsDesc, prometheus.CounterValue, float64(stats.ConflictedWrites), backend)
		ch <- prometheus.MustNewConstMetric(entriesDesc, prometheus.GaugeValue, float64(stats.NumEntries), backend)
		var enabled float64
		if tc.IsTunableOpEnabled() {
			enabled = 1
		}
		ch <- prometheus.MustNewConstMetric(enabledDesc, prometheus.GaugeValue, enabled, backend)
	}
}
