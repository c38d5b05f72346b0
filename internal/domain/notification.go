package domain

import (
	"fmt"
	"time"
)

// PendingNotification is the state of a player at the moment of completion
type PendingNotification struct {
	PlayerID       string
	PlayerName     string
	CompletedCount int
	Total          int
	Percent        float64
	ScheduledAt    time.Time
}

type Broadcast struct {
	PlayerID       string
	PlayerName     string
	CompletedCount int
	Total          int
	Percent        string
	SentAt         time.Time
}

func (b Broadcast) String() string {
	return fmt.Sprintf(
		"[Advancements] %s -> %d/%d (%s%%)",
		b.PlayerName, b.CompletedCount, b.Total, b.Percent,
	)
}

// Legacy renders the message with section sign colour codes for in-game chat
func (b Broadcast) Legacy() string {
	return fmt.Sprintf(
		"§7[§6Advancements§7] §b%s§f -> §b%d§7/§b%d§7 (§3%s§f%%)",
		b.PlayerName, b.CompletedCount, b.Total, b.Percent,
	)
}
