package domain

type LeaderboardEntry struct {
	Rank           int
	PlayerID       string
	CompletedCount int
	Percent        float64
	IsViewer       bool
	IsTop          bool
}
