package tracker

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type trackerMetricsCollection struct {
	recordedUpdates metric.Int64Counter
	saveFailures    metric.Int64Counter
}

var metrics trackerMetricsCollection

func init() {
	const name = "advancements/tracker"
	meter := otel.Meter(name)

	recordedUpdates, err := meter.Int64Counter(
		"tracker/recorded_updates",
		metric.WithDescription("Completion counts recorded for players"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create recorded updates metric: %w", err))
	}

	saveFailures, err := meter.Int64Counter(
		"tracker/save_failures",
		metric.WithDescription("Failed attempts at persisting completion counts"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create save failures metric: %w", err))
	}

	metrics = trackerMetricsCollection{
		recordedUpdates: recordedUpdates,
		saveFailures:    saveFailures,
	}
}
