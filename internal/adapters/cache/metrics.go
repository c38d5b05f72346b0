package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type lookupResult string

const (
	resultHit          lookupResult = "hit"
	resultMiss         lookupResult = "miss"
	resultCreateFailed lookupResult = "create_failed"
	resultGaveUp       lookupResult = "gave_up"
)

var lookups metric.Int64Counter

func init() {
	meter := otel.Meter("advancements/cache")

	var err error
	lookups, err = meter.Int64Counter(
		"cache/lookups",
		metric.WithDescription("Cache lookups by cache and result"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create cache lookups metric: %w", err))
	}
}

func recordLookup(ctx context.Context, cacheName string, result lookupResult) {
	lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cacheName),
		attribute.String("result", string(result)),
	))
}
