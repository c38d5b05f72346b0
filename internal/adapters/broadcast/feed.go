package broadcast

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/Amund211/advancements/internal/domain"
)

const DefaultFeedSize = 100

// Feed logs every broadcast and keeps the most recent ones for the host to poll
type Feed struct {
	size   int
	logger *slog.Logger

	mutex  sync.Mutex
	recent []domain.Broadcast
}

func NewFeed(size int, logger *slog.Logger) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{
		size:   size,
		logger: logger.With("component", "broadcast"),
		recent: make([]domain.Broadcast, 0, size),
	}
}

func (f *Feed) Broadcast(ctx context.Context, broadcast domain.Broadcast) {
	f.logger.InfoContext(ctx, broadcast.String(),
		"playerUUID", broadcast.PlayerID,
		"count", broadcast.CompletedCount,
		"total", broadcast.Total,
	)

	f.mutex.Lock()
	defer f.mutex.Unlock()

	if len(f.recent) == f.size {
		f.recent = slices.Delete(f.recent, 0, 1)
	}
	f.recent = append(f.recent, broadcast)
}

// Recent returns the kept broadcasts, oldest first
func (f *Feed) Recent() []domain.Broadcast {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return slices.Clone(f.recent)
}
