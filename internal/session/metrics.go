package session

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheLookupsDesc = prometheus.NewDesc(
		"swemem_tool_cache_lookups_total",
		"Tool cache lookups by result.",
		[]string{"run_id", "result"}, nil,
	)
	cacheInvalidationsDesc = prometheus.NewDesc(
		"swemem_tool_cache_invalidations_total",
		"Tool cache entries invalidated.",
		[]string{"run_id"}, nil,
	)
	cacheEntriesDesc = prometheus.NewDesc(
		"swemem_tool_cache_entries",
		"Live tool cache entries.",
		[]string{"run_id"}, nil,
	)
	toolCallsDesc = prometheus.NewDesc(
		"swemem_tool_calls_total",
		"Tool calls by outcome of the call limiter.",
		[]string{"run_id", "outcome"}, nil,
	)
	footprintDesc = prometheus.NewDesc(
		"swemem_history_footprint_chars",
		"Character footprint of the conversation history.",
		[]string{"run_id"}, nil,
	)
	compactionsDesc = prometheus.NewDesc(
		"swemem_history_compactions_total",
		"Compaction passes that truncated content.",
		[]string{"run_id"}, nil,
	)
	prunesDesc = prometheus.NewDesc(
		"swemem_history_prunes_total",
		"Prune passes that rewrote earlier iterations.",
		[]string{"run_id"}, nil,
	)
)

// Describe implements prometheus.Collector.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheLookupsDesc
	ch <- cacheInvalidationsDesc
	ch <- cacheEntriesDesc
	ch <- toolCallsDesc
	ch <- footprintDesc
	ch <- compactionsDesc
	ch <- prunesDesc
}

// Collect implements prometheus.Collector. Metrics are read from the run
// reports at scrape time.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	for _, run := range r.Reports() {
		if run.Report == nil {
			continue
		}
		rep := run.Report
		ch <- prometheus.MustNewConstMetric(cacheLookupsDesc, prometheus.CounterValue, float64(rep.Cache.Hits), run.ID, "hit")
		ch <- prometheus.MustNewConstMetric(cacheLookupsDesc, prometheus.CounterValue, float64(rep.Cache.Misses), run.ID, "miss")
		ch <- prometheus.MustNewConstMetric(cacheInvalidationsDesc, prometheus.CounterValue, float64(rep.Cache.Invalidations), run.ID)
		ch <- prometheus.MustNewConstMetric(cacheEntriesDesc, prometheus.GaugeValue, float64(rep.Cache.Size), run.ID)
		ch <- prometheus.MustNewConstMetric(toolCallsDesc, prometheus.CounterValue, float64(rep.Calls.Calls), run.ID, "allowed")
		ch <- prometheus.MustNewConstMetric(toolCallsDesc, prometheus.CounterValue, float64(rep.Calls.Denied), run.ID, "denied")
		ch <- prometheus.MustNewConstMetric(footprintDesc, prometheus.GaugeValue, float64(rep.Footprint), run.ID)
		ch <- prometheus.MustNewConstMetric(compactionsDesc, prometheus.CounterValue, float64(rep.Compactions), run.ID)
		ch <- prometheus.MustNewConstMetric(prunesDesc, prometheus.CounterValue, float64(rep.Prunes), run.ID)
	}
}
