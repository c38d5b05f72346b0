package leaderboard

import (
	"fmt"

	"github.com/Amund211/advancements/internal/domain"
)

// Legacy chat formatting codes understood by the game client
const (
	colorGold     = "§6"
	colorDarkAqua = "§3"
	colorGray     = "§7"
	colorWhite    = "§f"
	colorYellow   = "§e"
	formatBold    = "§l"
	formatUnder   = "§n"
)

const Title = colorGold + "- " + colorDarkAqua + "Advancements" + colorGold + " -"

// The first line gets this score, the following lines count down from it
const topScore = 16

type Line struct {
	Score int
	Text  string
}

// NameLookup returns the display name of a player
type NameLookup func(playerID string) string

// Lines formats the entries as sidebar lines, from the top down
func Lines(entries []domain.LeaderboardEntry, names NameLookup, format domain.PercentFormat) []Line {
	lines := make([]Line, 0, len(entries))
	for i, entry := range entries {
		name := names(entry.PlayerID)
		if entry.IsViewer {
			name = formatUnder + formatBold + name
		}
		if entry.IsTop {
			name = colorYellow + name
		}

		lines = append(lines, Line{
			Score: topScore - i,
			Text: fmt.Sprintf(
				"%s%2d%s (%s%s%s%%) | %s%s",
				colorGold, entry.Rank, colorGray,
				colorGold, format.Format(entry.Percent), colorGray,
				colorWhite, name,
			),
		})
	}
	return lines
}

// Board is a sidebar shown to a single viewer. Lines are keyed by score.
type Board interface {
	SetTitle(title string)
	LineCount() int
	Set(score int, text string)
	Clear()
}

// Apply writes lines to board, clearing it first if it currently shows more
// lines than will be written.
func Apply(board Board, lines []Line) {
	board.SetTitle(Title)

	if len(lines) < board.LineCount() {
		board.Clear()
	}

	for _, line := range lines {
		board.Set(line.Score, line.Text)
	}
}
