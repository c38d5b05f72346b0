package app_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/Amund211/advancements/internal/adapters/accountrepository"
	"github.com/Amund211/advancements/internal/adapters/broadcast"
	"github.com/Amund211/advancements/internal/adapters/completionstore"
	"github.com/Amund211/advancements/internal/adapters/progress"
	"github.com/Amund211/advancements/internal/adapters/sidebar"
	"github.com/Amund211/advancements/internal/app"
	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/domaintest"
	"github.com/Amund211/advancements/internal/leaderboard"
	"github.com/Amund211/advancements/internal/notification"
	"github.com/Amund211/advancements/internal/scheduler"
	"github.com/stretchr/testify/require"
)

const (
	ALICE   = "01234567-89ab-cdef-0123-456789abcdef"
	BOB     = "a937646b-f115-44c3-8dbf-9ae4a65669a0"
	OFFLINE = "ec70bcaf-702f-4bb8-b48d-276fa52a780c"
)

type mockCatalog []domain.Milestone

func (c mockCatalog) Get(key string) (domain.Milestone, bool) {
	for _, milestone := range c {
		if milestone.Key == key {
			return milestone, true
		}
	}
	return domain.Milestone{}, false
}

func (c mockCatalog) Valid(isValid domain.ValidityPredicate) []domain.Milestone {
	valid := []domain.Milestone{}
	for _, milestone := range c {
		if isValid(milestone) {
			valid = append(valid, milestone)
		}
	}
	return valid
}

func newMockCatalog() mockCatalog {
	return mockCatalog{
		domaintest.NewMilestoneBuilder("minecraft:story/root").Build(),
		domaintest.NewMilestoneBuilder("minecraft:story/mine_stone").WithCriteria("get_stone").Build(),
		domaintest.NewMilestoneBuilder("minecraft:story/upgrade_tools").WithCriteria("stone_pickaxe").Build(),
		domaintest.NewMilestoneBuilder("minecraft:adventure/adventuring_time").WithCriteria("plains", "desert").Build(),
		domaintest.NewMilestoneBuilder("minecraft:recipes/misc/stick").WithoutDisplay().Build(),
	}
}

type nameLookups struct {
	mutex sync.Mutex
	calls []string
	names map[string]string
}

func (n *nameLookups) getAccount(ctx context.Context, uuid string) (domain.Account, error) {
	n.mutex.Lock()
	n.calls = append(n.calls, uuid)
	name, ok := n.names[uuid]
	n.mutex.Unlock()

	time.Sleep(100 * time.Millisecond)
	if !ok {
		return domain.Account{}, fmt.Errorf("%w: %s", domain.ErrPlayerNotFound, uuid)
	}
	return domain.Account{UUID: uuid, Username: name, QueriedAt: time.Now()}, nil
}

func (n *nameLookups) Calls() []string {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return slices.Clone(n.calls)
}

type counterHarness struct {
	t        *testing.T
	loop     *scheduler.Loop
	store    *completionstore.Stub
	feed     *broadcast.Feed
	boards   *sidebar.Boards
	lookups  *nameLookups
	accounts *accountrepository.Memory
	counter  *app.Counter
}

func newCounterHarness(t *testing.T, persisted map[string]int) *counterHarness {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	loop := scheduler.Start(t.Context())
	t.Cleanup(loop.Stop)

	catalog := newMockCatalog()
	store := completionstore.NewStub(persisted)
	feed := broadcast.NewFeed(10, logger)
	boards := sidebar.NewBoards()
	lookups := &nameLookups{names: map[string]string{OFFLINE: "Carol"}}
	accounts := accountrepository.NewMemory()

	dispatcher := notification.New(loop, feed, notification.DefaultDelayTicks, domain.PercentFormatDecimal, time.Now, logger)
	counter := app.NewCounter(
		loop,
		catalog,
		domain.HasDisplayCriterion,
		progress.New(catalog, domain.HasDisplayCriterion),
		store,
		dispatcher,
		boards,
		lookups.getAccount,
		accounts,
		app.BoardSettings{Capacity: 16, Format: domain.PercentFormatDecimal},
		time.Minute,
		time.Now,
		logger,
	)

	return &counterHarness{
		t:        t,
		loop:     loop,
		store:    store,
		feed:     feed,
		boards:   boards,
		lookups:  lookups,
		accounts: accounts,
		counter:  counter,
	}
}

// settle lets the loop process everything that is due
func (h *counterHarness) settle() {
	h.t.Helper()
	synctest.Wait()
	require.NoError(h.t, h.loop.Call(h.t.Context(), func() {}))
}

func (h *counterHarness) lines(viewerID string) []string {
	h.t.Helper()
	board, ok := h.boards.Get(viewerID)
	require.True(h.t, ok, "no board for %s", viewerID)

	view := board.View()
	require.Equal(h.t, leaderboard.Title, view.Title)

	texts := []string{}
	for _, line := range view.Lines {
		texts = append(texts, line.Text)
	}
	return texts
}

func TestCounter(t *testing.T) {
	t.Parallel()

	t.Run("not enabled", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)

			err := h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil)
			require.ErrorIs(t, err, app.ErrNotEnabled)

			_, err = h.counter.Leaderboard(t.Context(), ALICE)
			require.ErrorIs(t, err, app.ErrNotEnabled)

			require.NoError(t, h.counter.Enable(t.Context()))
			require.ErrorIs(t, h.counter.Enable(t.Context()), app.ErrAlreadyEnabled)
			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("join shows the board", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)
			require.NoError(t, h.counter.Enable(t.Context()))

			err := h.counter.PlayerJoin(t.Context(), ALICE, "Alice", map[string][]string{
				"minecraft:story/root":                 {"done"},
				"minecraft:recipes/misc/stick":         {"done"},
				"minecraft:adventure/adventuring_time": {"plains"},
			})
			require.NoError(t, err)

			require.Equal(t, []string{
				"§6 1§7 (§625.0§7%) | §f§e§n§lAlice",
			}, h.lines(ALICE))

			err = h.counter.PlayerJoin(t.Context(), BOB, "Bob", map[string][]string{
				"minecraft:story/root":       {"done"},
				"minecraft:story/mine_stone": {"get_stone"},
			})
			require.NoError(t, err)

			require.Equal(t, []string{
				"§6 1§7 (§650.0§7%) | §f§eBob",
				"§6 2§7 (§625.0§7%) | §f§n§lAlice",
			}, h.lines(ALICE))
			require.Equal(t, []string{
				"§6 1§7 (§650.0§7%) | §f§e§n§lBob",
				"§6 2§7 (§625.0§7%) | §fAlice",
			}, h.lines(BOB))

			ranked, err := h.counter.Leaderboard(t.Context(), "")
			require.NoError(t, err)
			require.Len(t, ranked, 2)
			require.Equal(t, "Bob", ranked[0].Name)
			require.True(t, ranked[0].IsTop)
			require.Equal(t, 2, ranked[0].CompletedCount)
			require.Equal(t, "Alice", ranked[1].Name)
			require.Equal(t, 2, ranked[1].Rank)

			require.Empty(t, h.lookups.Calls())
			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("unknown names are resolved", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, map[string]int{OFFLINE: 3})
			require.NoError(t, h.counter.Enable(t.Context()))

			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))
			require.Equal(t, []string{
				"§6 1§7 (§675.0§7%) | §f§eec70bcaf",
				"§6 2§7 (§600.0§7%) | §f§n§lAlice",
			}, h.lines(ALICE))

			time.Sleep(200 * time.Millisecond)
			h.settle()

			require.Equal(t, []string{
				"§6 1§7 (§675.0§7%) | §f§eCarol",
				"§6 2§7 (§600.0§7%) | §f§n§lAlice",
			}, h.lines(ALICE))
			require.Equal(t, []string{OFFLINE}, h.lookups.Calls())

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("stored names are preloaded on enable", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, map[string]int{OFFLINE: 1, BOB: 2})
			require.NoError(t, h.accounts.StoreAccount(t.Context(), domain.Account{
				UUID:      BOB,
				Username:  "Bob",
				QueriedAt: time.Now(),
			}))

			require.NoError(t, h.counter.Enable(t.Context()))
			h.settle()

			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))
			require.Equal(t, []string{
				"§6 1§7 (§650.0§7%) | §f§eBob",
				"§6 2§7 (§625.0§7%) | §fec70bcaf",
				"§6 3§7 (§600.0§7%) | §f§n§lAlice",
			}, h.lines(ALICE))

			time.Sleep(200 * time.Millisecond)
			h.settle()

			require.Equal(t, []string{OFFLINE}, h.lookups.Calls())
			require.Equal(t, "§6 2§7 (§625.0§7%) | §fCarol", h.lines(ALICE)[1])

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("names that do not exist are looked up once", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, map[string]int{BOB: 1})
			require.NoError(t, h.counter.Enable(t.Context()))

			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))
			time.Sleep(200 * time.Millisecond)
			h.settle()

			require.NoError(t, h.counter.PlayerJoin(t.Context(), OFFLINE, "Carol", nil))
			time.Sleep(200 * time.Millisecond)
			h.settle()

			require.Equal(t, []string{BOB}, h.lookups.Calls())
			require.Equal(t, []string{
				"§6 1§7 (§625.0§7%) | §f§ea937646b",
				"§6 2§7 (§600.0§7%) | §f§n§lAlice",
				"§6 3§7 (§600.0§7%) | §fCarol",
			}, h.lines(ALICE))

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("completion is broadcast after a delay", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)
			require.NoError(t, h.counter.Enable(t.Context()))
			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))

			completed, err := h.counter.CriterionGranted(t.Context(), ALICE, "minecraft:adventure/adventuring_time", "plains")
			require.NoError(t, err)
			require.False(t, completed)

			completed, err = h.counter.CriterionGranted(t.Context(), ALICE, "minecraft:adventure/adventuring_time", "desert")
			require.NoError(t, err)
			require.True(t, completed)

			require.Equal(t, []string{"§6 1§7 (§625.0§7%) | §f§e§n§lAlice"}, h.lines(ALICE))
			require.Empty(t, h.feed.Recent())

			completed, err = h.counter.CriterionGranted(t.Context(), ALICE, "minecraft:story/root", "done")
			require.NoError(t, err)
			require.True(t, completed)

			time.Sleep(time.Second + 2*time.Millisecond)
			h.settle()

			recent := h.feed.Recent()
			require.Len(t, recent, 1)
			require.Equal(t, "Alice", recent[0].PlayerName)
			require.Equal(t, 2, recent[0].CompletedCount)
			require.Equal(t, 4, recent[0].Total)
			require.Equal(t, "50.0", recent[0].Percent)

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("milestones that do not count are ignored", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)
			require.NoError(t, h.counter.Enable(t.Context()))
			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))

			completed, err := h.counter.CriterionGranted(t.Context(), ALICE, "minecraft:recipes/misc/stick", "done")
			require.NoError(t, err)
			require.True(t, completed)

			require.NoError(t, h.counter.AdvancementDone(t.Context(), ALICE, "minecraft:not/a_milestone"))

			time.Sleep(2 * time.Second)
			h.settle()
			require.Empty(t, h.feed.Recent())

			_, err = h.counter.CriterionGranted(t.Context(), ALICE, "minecraft:not/a_milestone", "done")
			require.ErrorIs(t, err, domain.ErrMilestoneNotFound)

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("quit removes the board and saves", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)
			require.NoError(t, h.counter.Enable(t.Context()))
			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", map[string][]string{
				"minecraft:story/root": {"done"},
			}))
			require.NoError(t, h.counter.PlayerJoin(t.Context(), BOB, "Bob", nil))

			require.NoError(t, h.counter.PlayerQuit(t.Context(), ALICE))

			_, ok := h.boards.Get(ALICE)
			require.False(t, ok)
			require.Equal(t, 1, h.boards.Count())
			require.Equal(t, 1, h.store.Saves())
			require.Equal(t, map[string]int{ALICE: 1, BOB: 0}, h.store.Counts())

			// The player who left is still ranked
			require.Equal(t, []string{
				"§6 1§7 (§625.0§7%) | §f§eAlice",
				"§6 2§7 (§600.0§7%) | §f§n§lBob",
			}, h.lines(BOB))

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("quit without join keeps the persisted count", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, map[string]int{ALICE: 3})
			require.NoError(t, h.counter.Enable(t.Context()))

			require.NoError(t, h.counter.PlayerQuit(t.Context(), ALICE))
			require.Equal(t, 1, h.store.Saves())
			require.Equal(t, map[string]int{ALICE: 3}, h.store.Counts())

			require.NoError(t, h.counter.Disable(t.Context()))
			require.Equal(t, map[string]int{ALICE: 3}, h.store.Counts())
		})
	})

	t.Run("completions before join keep the persisted count", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, map[string]int{BOB: 3})
			require.NoError(t, h.counter.Enable(t.Context()))

			completed, err := h.counter.CriterionGranted(t.Context(), BOB, "minecraft:story/mine_stone", "get_stone")
			require.NoError(t, err)
			require.True(t, completed)
			require.NoError(t, h.counter.AdvancementDone(t.Context(), BOB, "minecraft:story/root"))

			ranked, err := h.counter.Leaderboard(t.Context(), "")
			require.NoError(t, err)
			require.Len(t, ranked, 1)
			require.Equal(t, 3, ranked[0].CompletedCount)

			time.Sleep(2 * time.Second)
			h.settle()
			require.Empty(t, h.feed.Recent())

			// Once joined, the synced progress is authoritative
			require.NoError(t, h.counter.PlayerJoin(t.Context(), BOB, "Bob", map[string][]string{
				"minecraft:story/root":                 {"done"},
				"minecraft:story/mine_stone":           {"get_stone"},
				"minecraft:story/upgrade_tools":        {"stone_pickaxe"},
				"minecraft:adventure/adventuring_time": {"plains", "desert"},
			}))
			ranked, err = h.counter.Leaderboard(t.Context(), "")
			require.NoError(t, err)
			require.Equal(t, 4, ranked[0].CompletedCount)

			require.NoError(t, h.counter.Disable(t.Context()))
			require.Equal(t, map[string]int{BOB: 4}, h.store.Counts())
		})
	})

	t.Run("shrinking list clears stale rows", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)
			require.NoError(t, h.counter.Enable(t.Context()))
			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))
			require.Len(t, h.lines(ALICE), 1)
			require.NoError(t, h.counter.PlayerJoin(t.Context(), BOB, "Bob", nil))
			require.Len(t, h.lines(ALICE), 2)

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})

	t.Run("periodic save", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, map[string]int{BOB: 2})
			require.NoError(t, h.counter.Enable(t.Context()))

			time.Sleep(59 * time.Second)
			h.settle()
			require.Equal(t, 0, h.store.Saves())

			time.Sleep(2 * time.Second)
			h.settle()
			require.Equal(t, 1, h.store.Saves())

			time.Sleep(time.Minute)
			h.settle()
			require.Equal(t, 2, h.store.Saves())

			require.NoError(t, h.counter.Disable(t.Context()))
			require.Equal(t, 3, h.store.Saves())

			time.Sleep(5 * time.Minute)
			h.settle()
			require.Equal(t, 3, h.store.Saves())
		})
	})

	t.Run("disable drops boards and pending broadcasts", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)
			require.NoError(t, h.counter.Enable(t.Context()))
			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))
			require.NoError(t, h.counter.AdvancementDone(t.Context(), ALICE, "minecraft:story/root"))

			require.NoError(t, h.counter.Disable(t.Context()))
			require.Equal(t, 0, h.boards.Count())
			require.Equal(t, 1, h.store.Saves())

			time.Sleep(2 * time.Second)
			h.settle()
			require.Empty(t, h.feed.Recent())

			err := h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil)
			require.ErrorIs(t, err, app.ErrNotEnabled)
		})
	})

	t.Run("failed saves are retried", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			h := newCounterHarness(t, nil)
			h.store.SaveErr = domain.ErrStoreUnavailable
			require.NoError(t, h.counter.Enable(t.Context()))
			require.NoError(t, h.counter.PlayerJoin(t.Context(), ALICE, "Alice", nil))

			// Quitting still succeeds
			require.NoError(t, h.counter.PlayerQuit(t.Context(), ALICE))
			require.Equal(t, 0, h.store.Saves())

			require.NoError(t, h.loop.Call(t.Context(), func() {
				h.store.SaveErr = nil
			}))

			time.Sleep(time.Minute + time.Millisecond)
			h.settle()
			require.Equal(t, 1, h.store.Saves())
			require.Equal(t, map[string]int{ALICE: 0}, h.store.Counts())

			require.NoError(t, h.counter.Disable(t.Context()))
		})
	})
}
