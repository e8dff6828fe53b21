package connector

import "github.com/hashicorp/go-metrics"

var (
	MetricRunCount          = []string{"relay", "connector", "run", "count"}
	MetricRunDuration       = []string{"relay", "connector", "run", "duration", "ms"}
	MetricShortCircuitCount = []string{"relay", "connector", "short_circuit", "count"}
	MetricDeferredCount     = []string{"relay", "connector", "deferred", "count"}
	MetricDeliverErrorCount = []string{"relay", "connector", "deliver", "error", "count"}
	MetricFanOutCount       = []string{"relay", "connector", "fanout", "count"}
)

type TelemetryLabel string

var (
	LabelConnector TelemetryLabel = "connector"
	LabelBundle    TelemetryLabel = "bundle"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}
