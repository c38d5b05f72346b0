package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"

	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/reporting"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type CompletionStore interface {
	Load(ctx context.Context) (map[string]int, error)
	Save(ctx context.Context, counts map[string]int) error
}

// ProgressSource reports how many counted milestones a player has completed
type ProgressSource interface {
	CompletedCount(ctx context.Context, playerID string) (int, error)
}

// Tracker holds the completion count of every player seen so far.
// It is not safe for concurrent use; callers serialise access through the scheduler loop.
type Tracker struct {
	total  int
	store  CompletionStore
	logger *slog.Logger

	counts map[string]int
}

func New(total int, store CompletionStore, logger *slog.Logger) *Tracker {
	return &Tracker{
		total:  max(total, 0),
		store:  store,
		logger: logger.With("component", "tracker"),
		counts: make(map[string]int),
	}
}

func (t *Tracker) Total() int {
	return t.total
}

// Init replaces the in-memory counts with the persisted ones.
// A failed or corrupt load is not fatal: the tracker starts out empty instead.
func (t *Tracker) Init(ctx context.Context) {
	loaded, err := t.store.Load(ctx)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to load completion counts, starting with empty state", "error", err.Error())
		reporting.Report(ctx, fmt.Errorf("failed to load completion counts: %w", err), map[string]string{
			"corrupt": strconv.FormatBool(errors.Is(err, domain.ErrCorruptState)),
		})
		t.counts = make(map[string]int)
		return
	}

	counts := make(map[string]int, len(loaded))
	for playerID, count := range loaded {
		if count > t.total {
			t.logger.WarnContext(
				ctx, "Clamping persisted count above total",
				"playerUUID", playerID,
				"count", count,
				"total", t.total,
			)
			count = t.total
		}
		counts[playerID] = max(count, 0)
	}
	t.counts = counts

	t.logger.InfoContext(ctx, "Loaded completion counts", "players", len(counts), "total", t.total)
}

// Record sets the completion count of a player
func (t *Tracker) Record(ctx context.Context, playerID string, count int) error {
	if count < 0 || count > t.total {
		return fmt.Errorf("%w: %d not in [0, %d]", domain.ErrInvalidCount, count, t.total)
	}

	previous, known := t.counts[playerID]
	t.counts[playerID] = count

	metrics.recordedUpdates.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("changed", !known || previous != count),
	))
	return nil
}

func (t *Tracker) Count(playerID string) (int, bool) {
	count, ok := t.counts[playerID]
	return count, ok
}

func (t *Tracker) Percent(playerID string) (float64, error) {
	count, ok := t.counts[playerID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnknownPlayer, playerID)
	}
	return domain.Percent(count, t.total), nil
}

// Recompute asks source for the current count of the player and records it
func (t *Tracker) Recompute(ctx context.Context, playerID string, source ProgressSource) (int, error) {
	count, err := source.CompletedCount(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to get completed count: %w", err)
	}

	err = t.Record(ctx, playerID, count)
	if err != nil {
		reporting.Report(ctx, err, map[string]string{
			"count": strconv.Itoa(count),
			"total": strconv.Itoa(t.total),
		})
		return 0, err
	}

	return count, nil
}

// Snapshot returns a copy of all counts
func (t *Tracker) Snapshot() map[string]int {
	return maps.Clone(t.counts)
}

// Records returns every known player ordered by player id
func (t *Tracker) Records() []domain.PlayerRecord {
	records := make([]domain.PlayerRecord, 0, len(t.counts))
	for _, playerID := range slices.Sorted(maps.Keys(t.counts)) {
		records = append(records, domain.PlayerRecord{
			PlayerID:       playerID,
			CompletedCount: t.counts[playerID],
		})
	}
	return records
}

// Save persists a snapshot of the counts. Failures are reported and returned,
// the next save will try again.
func (t *Tracker) Save(ctx context.Context) error {
	err := t.store.Save(ctx, t.Snapshot())
	if err != nil {
		metrics.saveFailures.Add(ctx, 1)
		t.logger.ErrorContext(ctx, "Failed to save completion counts", "error", err.Error())
		reporting.Report(ctx, err, map[string]string{
			"players": strconv.Itoa(len(t.counts)),
		})
		return err
	}

	t.logger.DebugContext(ctx, "Saved completion counts", "players", len(t.counts))
	return nil
}

func (t *Tracker) Shutdown(ctx context.Context) error {
	err := t.Save(ctx)
	if err != nil {
		return fmt.Errorf("final save failed: %w", err)
	}
	t.logger.InfoContext(ctx, "Saved completion counts on shutdown", "players", len(t.counts))
	return nil
}
