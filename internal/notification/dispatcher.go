package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/scheduler"
)

// One second at 20 ticks per second
const DefaultDelayTicks = 20

type Scheduler interface {
	RunTaskLater(ticks int, fn func()) *scheduler.Task
}

type Sink interface {
	Broadcast(ctx context.Context, broadcast domain.Broadcast)
}

type pendingTask struct {
	task         *scheduler.Task
	notification domain.PendingNotification
}

// Dispatcher debounces completion broadcasts per player.
// All methods must be called from the scheduler loop.
type Dispatcher struct {
	scheduler  Scheduler
	sink       Sink
	delayTicks int
	format     domain.PercentFormat
	nowFunc    func() time.Time
	logger     *slog.Logger

	pending map[string]pendingTask
}

func New(
	scheduler Scheduler,
	sink Sink,
	delayTicks int,
	format domain.PercentFormat,
	nowFunc func() time.Time,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		scheduler:  scheduler,
		sink:       sink,
		delayTicks: delayTicks,
		format:     format,
		nowFunc:    nowFunc,
		logger:     logger.With("component", "notification"),
		pending:    make(map[string]pendingTask),
	}
}

// OnCompletion schedules a broadcast of the given snapshot, replacing any
// broadcast still pending for the same player.
func (d *Dispatcher) OnCompletion(ctx context.Context, notification domain.PendingNotification) {
	if notification.ScheduledAt.IsZero() {
		notification.ScheduledAt = d.nowFunc()
	}

	if previous, ok := d.pending[notification.PlayerID]; ok {
		previous.task.Cancel()
		metrics.superseded.Add(ctx, 1)
		d.logger.DebugContext(ctx, "Superseding pending broadcast",
			"playerUUID", notification.PlayerID,
			"previousCount", previous.notification.CompletedCount,
			"count", notification.CompletedCount,
		)
	}

	// The broadcast fires after the request that triggered it is done
	fireCtx := context.WithoutCancel(ctx)

	var task *scheduler.Task
	task = d.scheduler.RunTaskLater(d.delayTicks, func() {
		if current, ok := d.pending[notification.PlayerID]; ok && current.task == task {
			delete(d.pending, notification.PlayerID)
		}
		d.send(fireCtx, notification)
	})

	d.pending[notification.PlayerID] = pendingTask{
		task:         task,
		notification: notification,
	}
	metrics.scheduled.Add(ctx, 1)
}

func (d *Dispatcher) send(ctx context.Context, notification domain.PendingNotification) {
	broadcast := domain.Broadcast{
		PlayerID:       notification.PlayerID,
		PlayerName:     notification.PlayerName,
		CompletedCount: notification.CompletedCount,
		Total:          notification.Total,
		Percent:        d.format.Format(notification.Percent),
		SentAt:         d.nowFunc(),
	}

	d.sink.Broadcast(ctx, broadcast)
	metrics.sent.Add(ctx, 1)
}

func (d *Dispatcher) Pending(playerID string) (domain.PendingNotification, bool) {
	pending, ok := d.pending[playerID]
	return pending.notification, ok
}

// CancelAll drops every pending broadcast without sending it
func (d *Dispatcher) CancelAll() {
	for playerID, pending := range d.pending {
		pending.task.Cancel()
		delete(d.pending, playerID)
	}
}
