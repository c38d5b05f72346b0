package leaderboard

import (
	"cmp"
	"maps"
	"slices"

	"github.com/Amund211/advancements/internal/domain"
)

const DefaultCapacity = 16

// Render ranks the players by completed count, highest first.
// Players with the same count are ordered by player id.
func Render(records map[string]int, total int, viewerID string, capacity int) []domain.LeaderboardEntry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	playerIDs := slices.SortedFunc(maps.Keys(records), func(a, b string) int {
		if c := cmp.Compare(records[b], records[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	entries := make([]domain.LeaderboardEntry, 0, min(len(playerIDs), capacity))
	for i, playerID := range playerIDs[:min(len(playerIDs), capacity)] {
		count := records[playerID]
		entries = append(entries, domain.LeaderboardEntry{
			Rank:           i + 1,
			PlayerID:       playerID,
			CompletedCount: count,
			Percent:        domain.Percent(count, total),
			IsViewer:       playerID == viewerID,
			IsTop:          i == 0,
		})
	}

	return entries
}
