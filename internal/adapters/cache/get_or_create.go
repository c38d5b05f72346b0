package cache

import (
	"context"
	"fmt"

	"github.com/Amund211/advancements/internal/logging"
)

// GetOrCreate returns the cached value for key, calling create on a miss.
// Concurrent callers for the same key wait for the first one to finish.
// Returns data, created, error
func GetOrCreate[T any](ctx context.Context, cache Cache[T], key string, create func() (T, error)) (T, bool, error) {
	// Release the claim if create fails so other callers can try again
	claimed := false
	set := false
	defer func() {
		if claimed && !set {
			cache.delete(key)
		}
	}()

	logger := logging.FromContext(ctx).With("cache", cache.name())

	for {
		result := cache.getOrClaim(key)

		if result.claimed {
			claimed = true

			logger.DebugContext(ctx, "Cache miss", "key", key)
			recordLookup(ctx, cache.name(), resultMiss)

			data, err := create()
			if err != nil {
				recordLookup(ctx, cache.name(), resultCreateFailed)
				var empty T
				return empty, false, fmt.Errorf("failed to create cache entry: %w", err)
			}

			cache.set(key, data)
			set = true

			return data, true, nil
		}

		if result.valid {
			logger.DebugContext(ctx, "Cache hit", "key", key)
			recordLookup(ctx, cache.name(), resultHit)
			return result.data, false, nil
		}

		select {
		case <-ctx.Done():
			recordLookup(ctx, cache.name(), resultGaveUp)
			var empty T
			return empty, false, fmt.Errorf("gave up waiting for cache: %w", ctx.Err())
		default:
		}
		cache.wait()
	}
}
