package observability

import (
	"fmt"
	"io"
	"strings"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricPrefix starts the name of every gowiz collector
const MetricPrefix = "gowiz_"

// Resolution status label values
const (
	StatusResolved  = "resolved"
	StatusFailed    = "failed"
	StatusTimedOut  = "timed_out"
	StatusCancelled = "cancelled"
)

// Branch reason label values
const (
	BranchDivided  = "divided"
	BranchConflict = "conflict"
	BranchInvalid  = "invalid"
	BranchFailed   = "failed"
)

var (
	// ResolutionsTotal counts resolutions by final status
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gowiz_resolutions_total",
			Help: "Total number of package resolutions by status",
		},
		[]string{"status"}, // resolved, failed, timed_out, cancelled
	)

	// ResolutionDuration tracks resolution duration in seconds
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gowiz_resolution_duration_seconds",
			Help:    "Package resolution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to 16s
		},
	)

	// ResolutionBranchesTotal counts graph branches leaving the resolution stack
	ResolutionBranchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gowiz_resolution_branches_total",
			Help: "Total number of graph branches by outcome",
		},
		[]string{"reason"}, // divided, conflict, invalid, failed
	)

	// GraphNodesCreatedTotal counts nodes created in dependency graphs
	GraphNodesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gowiz_graph_nodes_created_total",
			Help: "Total number of nodes created in dependency graphs",
		},
	)

	// ConflictsResolvedTotal counts version conflicts resolved by requirement combination
	ConflictsResolvedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gowiz_conflicts_resolved_total",
			Help: "Total number of version conflicts resolved",
		},
	)

	// CatalogueCacheHitsTotal counts catalogue cache lookups by result
	CatalogueCacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gowiz_catalogue_cache_hits_total",
			Help: "Total number of catalogue cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)
)

// WriteMetrics writes the gowiz collectors of the default registry, one
// "name{labels} value" line per series. Histograms are summarized by their
// _count and _sum series.
func WriteMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	for _, family := range families {
		name := family.GetName()
		if !strings.HasPrefix(name, MetricPrefix) {
			continue
		}

		for _, m := range family.GetMetric() {
			labels := formatLabels(m.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%s%s %g\n", name, labels, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(w, "%s%s %g\n", name, labels, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", name, labels, h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %g\n", name, labels, h.GetSampleSum())
			}
		}
	}

	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, pair := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// GetCounterValue retrieves the current value of a counter metric with the given labels
// This is primarily intended for testing
func GetCounterValue(counter *prometheus.CounterVec, labels ...string) (float64, error) {
	metric, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, err
	}

	return readCounter(metric)
}

// GetPlainCounterValue retrieves the current value of an unlabelled counter
func GetPlainCounterValue(counter prometheus.Counter) (float64, error) {
	return readCounter(counter)
}

// GetHistogramCount retrieves the number of observations of a histogram
func GetHistogramCount(histogram prometheus.Histogram) (uint64, error) {
	var pb dto.Metric
	if err := histogram.Write(&pb); err != nil {
		return 0, err
	}

	if pb.Histogram != nil {
		return pb.Histogram.GetSampleCount(), nil
	}

	return 0, nil
}

func readCounter(metric prometheus.Metric) (float64, error) {
	// Write metric to a DTO to read its value
	var pb dto.Metric
	if err := metric.Write(&pb); err != nil {
		return 0, err
	}

	if pb.Counter != nil {
		return pb.Counter.GetValue(), nil
	}

	return 0, nil
}
