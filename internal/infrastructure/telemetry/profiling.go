package telemetry

import (
	"context"
	"slices"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	LabelOperation = "operation"
	LabelTenantID  = "tenant_id"
	LabelDirection = "direction"
)

const maxLabelValueLength = 128

// labels that would explode profile cardinality
var highCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"title_id":   true,
	"entry_id":   true,
	"trace_id":   true,
	"span_id":    true,
}

// OperationLabels builds the label set of a service operation
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		labels[k] = v
	}
	labels[LabelOperation] = operation
	return labels
}

// WithProfilingLabels runs fn with pyroscope labels attached to ctx so its
// CPU and allocation samples can be sliced per operation. Without a running
// profiler the labels are plain pprof labels.
//
//	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("finance_batch_settle", nil), func(c context.Context) {
//		err = scope.Execute(c, settleAll)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// sanitizeLabels drops empty and high-cardinality labels, truncates long
// values and returns key/value pairs in key order.
func sanitizeLabels(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k, v := range labels {
		if k == "" || v == "" || highCardinalityLabels[k] {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := labels[k]
		if len(v) > maxLabelValueLength {
			v = v[:maxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
