package leaderboard_test

import (
	"maps"
	"slices"
	"testing"

	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/leaderboard"
	"github.com/stretchr/testify/require"
)

type fakeBoard struct {
	title   string
	lines   map[int]string
	cleared int
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{lines: map[int]string{}}
}

func (b *fakeBoard) SetTitle(title string) {
	b.title = title
}

func (b *fakeBoard) LineCount() int {
	return len(b.lines)
}

func (b *fakeBoard) Set(score int, text string) {
	b.lines[score] = text
}

func (b *fakeBoard) Clear() {
	b.cleared++
	clear(b.lines)
}

func (b *fakeBoard) scores() []int {
	return slices.Sorted(maps.Keys(b.lines))
}

func TestLines(t *testing.T) {
	t.Parallel()

	names := func(playerID string) string {
		return map[string]string{
			"a": "Notch",
			"b": "jeb_",
			"c": "Dinnerbone",
		}[playerID]
	}

	entries := []domain.LeaderboardEntry{
		{Rank: 1, PlayerID: "a", CompletedCount: 61, Percent: 100 * 61.0 / 122, IsTop: true},
		{Rank: 2, PlayerID: "b", CompletedCount: 6, Percent: 100 * 6.0 / 122, IsViewer: true},
		{Rank: 3, PlayerID: "c", CompletedCount: 0, Percent: 0},
	}

	t.Run("decimal", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, []leaderboard.Line{
			{Score: 16, Text: "§6 1§7 (§650.0§7%) | §f§eNotch"},
			{Score: 15, Text: "§6 2§7 (§604.9§7%) | §f§n§ljeb_"},
			{Score: 14, Text: "§6 3§7 (§600.0§7%) | §fDinnerbone"},
		}, leaderboard.Lines(entries, names, domain.PercentFormatDecimal))
	})

	t.Run("integer", func(t *testing.T) {
		t.Parallel()

		require.Equal(t, []leaderboard.Line{
			{Score: 16, Text: "§6 1§7 (§650§7%) | §f§eNotch"},
			{Score: 15, Text: "§6 2§7 (§64§7%) | §f§n§ljeb_"},
			{Score: 14, Text: "§6 3§7 (§60§7%) | §fDinnerbone"},
		}, leaderboard.Lines(entries, names, domain.PercentFormatInteger))
	})

	t.Run("viewer at the top", func(t *testing.T) {
		t.Parallel()

		lines := leaderboard.Lines([]domain.LeaderboardEntry{
			{Rank: 1, PlayerID: "a", CompletedCount: 122, Percent: 100, IsTop: true, IsViewer: true},
		}, names, domain.PercentFormatDecimal)
		require.Equal(t, []leaderboard.Line{
			{Score: 16, Text: "§6 1§7 (§6100.0§7%) | §f§e§n§lNotch"},
		}, lines)
	})

	t.Run("two digit ranks", func(t *testing.T) {
		t.Parallel()

		lines := leaderboard.Lines([]domain.LeaderboardEntry{
			{Rank: 12, PlayerID: "c", CompletedCount: 1, Percent: 10},
		}, names, domain.PercentFormatDecimal)
		require.Equal(t, "§612§7 (§610.0§7%) | §fDinnerbone", lines[0].Text)
	})
}

func TestApply(t *testing.T) {
	t.Parallel()

	lines := func(n int) []leaderboard.Line {
		result := []leaderboard.Line{}
		for i := range n {
			result = append(result, leaderboard.Line{Score: 16 - i, Text: string(rune('a' + i))})
		}
		return result
	}

	t.Run("sets title and lines", func(t *testing.T) {
		t.Parallel()

		board := newFakeBoard()
		leaderboard.Apply(board, lines(3))

		require.Equal(t, "§6- §3Advancements§6 -", board.title)
		require.Equal(t, []int{14, 15, 16}, board.scores())
		require.Equal(t, "a", board.lines[16])
		require.Equal(t, 0, board.cleared)
	})

	t.Run("shrinking removes stale rows", func(t *testing.T) {
		t.Parallel()

		board := newFakeBoard()
		leaderboard.Apply(board, lines(5))
		leaderboard.Apply(board, lines(2))

		require.Equal(t, []int{15, 16}, board.scores())
		require.Equal(t, 1, board.cleared)
	})

	t.Run("growing keeps the board", func(t *testing.T) {
		t.Parallel()

		board := newFakeBoard()
		leaderboard.Apply(board, lines(2))
		leaderboard.Apply(board, lines(2))
		leaderboard.Apply(board, lines(4))

		require.Equal(t, []int{13, 14, 15, 16}, board.scores())
		require.Equal(t, 0, board.cleared)
	})
}
