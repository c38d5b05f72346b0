package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Amund211/advancements/internal/adapters/sidebar"
	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/leaderboard"
	"github.com/Amund211/advancements/internal/scheduler"
	"github.com/Amund211/advancements/internal/strutils"
	"github.com/Amund211/advancements/internal/tracker"
)

var ErrNotEnabled = errors.New("counter is not enabled")
var ErrAlreadyEnabled = errors.New("counter is already enabled")

type loop interface {
	Call(ctx context.Context, fn func()) error
	Submit(fn func()) bool
	RunTaskTimer(delayTicks, periodTicks int, fn func()) *scheduler.Task
}

type progressStore interface {
	tracker.ProgressSource
	Sync(playerID string, progress map[string][]string) []string
	Grant(playerID, key, criterion string) (bool, error)
}

type completionDispatcher interface {
	OnCompletion(ctx context.Context, notification domain.PendingNotification)
	CancelAll()
}

type storedAccounts interface {
	GetAccountsByUUIDs(ctx context.Context, uuids []string) ([]domain.Account, error)
}

type PlayerJoin func(ctx context.Context, playerID, name string, progress map[string][]string) error
type PlayerQuit func(ctx context.Context, playerID string) error
type CriterionGranted func(ctx context.Context, playerID, key, criterion string) (bool, error)
type GetLeaderboard func(ctx context.Context, viewerID string) ([]RankedPlayer, error)

type BoardSettings struct {
	Capacity int
	Format   domain.PercentFormat
}

// RankedPlayer is a leaderboard entry with the name shown for the player
type RankedPlayer struct {
	domain.LeaderboardEntry
	Name string
}

// Counter ties the tracker, the boards and the broadcasts to the events
// forwarded by the host. State is only touched from the scheduler loop.
type Counter struct {
	loop       loop
	catalog    milestoneCatalog
	isValid    domain.ValidityPredicate
	progress   progressStore
	store      tracker.CompletionStore
	dispatcher completionDispatcher
	boards     *sidebar.Boards
	getAccount GetAccountByUUID
	accounts   storedAccounts
	settings   BoardSettings
	saveTicks  int
	nowFunc    func() time.Time
	logger     *slog.Logger

	tracker  *tracker.Tracker
	saveTask *scheduler.Task
	online   map[string]bool
	// Players whose progress mirror was filled by a join. The mirror is not
	// persisted, so counts of other players must not be recomputed from it.
	synced map[string]bool
	names    map[string]string
	// Players whose name is being looked up, or could not be found
	resolving    map[string]bool
	unresolvable map[string]bool
}

func NewCounter(
	loop loop,
	catalog milestoneCatalog,
	isValid domain.ValidityPredicate,
	progress progressStore,
	store tracker.CompletionStore,
	dispatcher completionDispatcher,
	boards *sidebar.Boards,
	getAccount GetAccountByUUID,
	accounts storedAccounts,
	settings BoardSettings,
	saveInterval time.Duration,
	nowFunc func() time.Time,
	logger *slog.Logger,
) *Counter {
	if settings.Capacity <= 0 {
		settings.Capacity = leaderboard.DefaultCapacity
	}

	return &Counter{
		loop:       loop,
		catalog:    catalog,
		isValid:    isValid,
		progress:   progress,
		store:      store,
		dispatcher: dispatcher,
		boards:     boards,
		getAccount: getAccount,
		accounts:   accounts,
		settings:   settings,
		saveTicks:  max(int(saveInterval/scheduler.TickDuration), 1),
		nowFunc:    nowFunc,
		logger:     logger.With("component", "counter"),

		online:       make(map[string]bool),
		synced:       make(map[string]bool),
		names:        make(map[string]string),
		resolving:    make(map[string]bool),
		unresolvable: make(map[string]bool),
	}
}

// call runs fn on the loop once the counter is enabled
func (c *Counter) call(ctx context.Context, fn func() error) error {
	var fnErr error
	err := c.loop.Call(ctx, func() {
		if c.tracker == nil {
			fnErr = ErrNotEnabled
			return
		}
		fnErr = fn()
	})
	if err != nil {
		return fmt.Errorf("failed to run on scheduler loop: %w", err)
	}
	return fnErr
}

func (c *Counter) Enable(ctx context.Context) error {
	var enableErr error
	err := c.loop.Call(ctx, func() {
		if c.tracker != nil {
			enableErr = ErrAlreadyEnabled
			return
		}

		total := len(c.catalog.Valid(c.isValid))
		c.tracker = tracker.New(total, c.store, c.logger)
		c.tracker.Init(ctx)
		c.preloadNames(ctx)

		c.refreshBoards(ctx)

		saveCtx := context.WithoutCancel(ctx)
		c.saveTask = c.loop.RunTaskTimer(c.saveTicks, c.saveTicks, func() {
			// Failures are reported by the tracker and retried next time
			_ = c.tracker.Save(saveCtx)
		})

		c.logger.InfoContext(ctx, "Enabled", "total", total, "saveIntervalTicks", c.saveTicks)
	})
	if err != nil {
		return fmt.Errorf("failed to run on scheduler loop: %w", err)
	}
	return enableErr
}

// Disable removes every board, drops pending broadcasts and saves one last time
func (c *Counter) Disable(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.boards.DeleteAll()
		c.dispatcher.CancelAll()
		c.saveTask.Cancel()

		err := c.tracker.Shutdown(ctx)
		c.tracker = nil
		clear(c.online)
		if err != nil {
			return err
		}

		c.logger.InfoContext(ctx, "Disabled")
		return nil
	})
}

// PlayerJoin replaces the known progress of the player and shows them the board
func (c *Counter) PlayerJoin(ctx context.Context, playerID, name string, progress map[string][]string) error {
	return c.call(ctx, func() error {
		skipped := c.progress.Sync(playerID, progress)
		if len(skipped) > 0 {
			c.logger.DebugContext(ctx, "Skipped unknown progress on join", "playerUUID", playerID, "skipped", skipped)
		}

		c.online[playerID] = true
		c.synced[playerID] = true
		if name != "" {
			c.names[playerID] = name
		}

		if _, err := c.tracker.Recompute(ctx, playerID, c.progress); err != nil {
			return fmt.Errorf("failed to recompute on join: %w", err)
		}

		c.refreshBoards(ctx)
		return nil
	})
}

func (c *Counter) PlayerQuit(ctx context.Context, playerID string) error {
	return c.call(ctx, func() error {
		var recomputeErr error
		if c.synced[playerID] {
			_, recomputeErr = c.tracker.Recompute(ctx, playerID, c.progress)
		} else {
			c.logger.DebugContext(ctx, "Keeping count of player without synced progress", "playerUUID", playerID)
		}

		delete(c.online, playerID)
		c.refreshBoards(ctx)
		c.boards.Delete(playerID)

		// Failures are reported by the tracker and retried by the periodic save
		_ = c.tracker.Save(ctx)

		if recomputeErr != nil {
			return fmt.Errorf("failed to recompute on quit: %w", recomputeErr)
		}
		return nil
	})
}

// CriterionGranted awards a criterion to the player.
// Returns true if this completed the milestone.
func (c *Counter) CriterionGranted(ctx context.Context, playerID, key, criterion string) (bool, error) {
	completed := false
	err := c.call(ctx, func() error {
		var err error
		completed, err = c.progress.Grant(playerID, key, criterion)
		if err != nil {
			return err
		}
		if !completed {
			return nil
		}
		return c.advancementDone(ctx, playerID, key)
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

// AdvancementDone handles a milestone the host reports as completed
func (c *Counter) AdvancementDone(ctx context.Context, playerID, key string) error {
	return c.call(ctx, func() error {
		return c.advancementDone(ctx, playerID, key)
	})
}

func (c *Counter) advancementDone(ctx context.Context, playerID, key string) error {
	milestone, ok := c.catalog.Get(key)
	if !ok || !c.isValid(milestone) {
		c.logger.DebugContext(ctx, "Ignoring milestone that does not count", "milestone", key)
		return nil
	}

	if !c.synced[playerID] {
		c.logger.DebugContext(ctx, "Ignoring completion of player without synced progress",
			"playerUUID", playerID,
			"milestone", key,
		)
		return nil
	}

	count, err := c.tracker.Recompute(ctx, playerID, c.progress)
	if err != nil {
		return fmt.Errorf("failed to recompute on completion: %w", err)
	}

	c.refreshBoards(ctx)

	c.dispatcher.OnCompletion(ctx, domain.PendingNotification{
		PlayerID:       playerID,
		PlayerName:     c.displayName(ctx, playerID),
		CompletedCount: count,
		Total:          c.tracker.Total(),
		Percent:        domain.Percent(count, c.tracker.Total()),
		ScheduledAt:    c.nowFunc(),
	})
	return nil
}

// Leaderboard ranks every known player as seen by viewerID
func (c *Counter) Leaderboard(ctx context.Context, viewerID string) ([]RankedPlayer, error) {
	var ranked []RankedPlayer
	err := c.call(ctx, func() error {
		entries := leaderboard.Render(c.tracker.Snapshot(), c.tracker.Total(), viewerID, c.settings.Capacity)
		ranked = make([]RankedPlayer, 0, len(entries))
		for _, entry := range entries {
			ranked = append(ranked, RankedPlayer{
				LeaderboardEntry: entry,
				Name:             c.displayName(ctx, entry.PlayerID),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ranked, nil
}

// Save persists the current counts outside the periodic schedule
func (c *Counter) Save(ctx context.Context) error {
	return c.call(ctx, func() error {
		return c.tracker.Save(ctx)
	})
}

func (c *Counter) refreshBoards(ctx context.Context) {
	snapshot := c.tracker.Snapshot()
	names := func(playerID string) string {
		return c.displayName(ctx, playerID)
	}

	for viewerID := range c.online {
		entries := leaderboard.Render(snapshot, c.tracker.Total(), viewerID, c.settings.Capacity)
		lines := leaderboard.Lines(entries, names, c.settings.Format)
		leaderboard.Apply(c.boards.GetOrCreate(viewerID), lines)
	}
}

// displayName returns the known name of the player, starting a lookup if
// there is none.
func (c *Counter) displayName(ctx context.Context, playerID string) string {
	if name, ok := c.names[playerID]; ok {
		return name
	}
	c.resolveName(ctx, playerID)
	return strutils.ShortUUID(playerID)
}

// preloadNames fetches the stored names of every tracked player in the background
func (c *Counter) preloadNames(ctx context.Context) {
	if c.accounts == nil {
		return
	}

	playerIDs := []string{}
	for _, record := range c.tracker.Records() {
		if _, ok := c.names[record.PlayerID]; !ok {
			playerIDs = append(playerIDs, record.PlayerID)
		}
	}
	if len(playerIDs) == 0 {
		return
	}

	preloadCtx := context.WithoutCancel(ctx)
	go func() {
		accounts, err := c.accounts.GetAccountsByUUIDs(preloadCtx, playerIDs)
		if err != nil {
			c.logger.WarnContext(preloadCtx, "Failed to preload player names", "players", len(playerIDs), "error", err.Error())
			return
		}

		c.loop.Submit(func() {
			added := 0
			for _, account := range accounts {
				if _, ok := c.names[account.UUID]; ok {
					continue
				}
				c.names[account.UUID] = account.Username
				added++
			}

			c.logger.InfoContext(preloadCtx, "Preloaded player names", "players", len(playerIDs), "found", added)
			if added > 0 && c.tracker != nil {
				c.refreshBoards(preloadCtx)
			}
		})
	}()
}

func (c *Counter) resolveName(ctx context.Context, playerID string) {
	if c.getAccount == nil || c.resolving[playerID] || c.unresolvable[playerID] {
		return
	}
	c.resolving[playerID] = true

	lookupCtx := context.WithoutCancel(ctx)
	go func() {
		account, err := c.getAccount(lookupCtx, playerID)

		c.loop.Submit(func() {
			delete(c.resolving, playerID)
			if errors.Is(err, domain.ErrPlayerNotFound) {
				c.unresolvable[playerID] = true
				return
			}
			if err != nil {
				c.logger.WarnContext(lookupCtx, "Failed to resolve player name", "playerUUID", playerID, "error", err.Error())
				return
			}

			if _, ok := c.names[playerID]; ok {
				return
			}
			c.names[playerID] = account.Username
			if c.tracker != nil {
				c.refreshBoards(lookupCtx)
			}
		})
	}()
}
