package notification

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type notificationMetricsCollection struct {
	scheduled  metric.Int64Counter
	superseded metric.Int64Counter
	sent       metric.Int64Counter
}

var metrics notificationMetricsCollection

func init() {
	const name = "advancements/notification"
	meter := otel.Meter(name)

	newCounter := func(counterName, description string) metric.Int64Counter {
		counter, err := meter.Int64Counter(counterName, metric.WithDescription(description))
		if err != nil {
			panic(fmt.Errorf("failed to create %s metric: %w", counterName, err))
		}
		return counter
	}

	metrics = notificationMetricsCollection{
		scheduled:  newCounter("notification/scheduled", "Completion broadcasts scheduled"),
		superseded: newCounter("notification/superseded", "Scheduled broadcasts replaced by a newer completion"),
		sent:       newCounter("notification/sent", "Completion broadcasts sent"),
	}
}
