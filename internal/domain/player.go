package domain

import "time"

type PlayerRecord struct {
	PlayerID       string
	CompletedCount int
}

// Account is the identity of a player as known by the account provider
type Account struct {
	UUID      string
	Username  string
	QueriedAt time.Time
}
