package ports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Amund211/advancements/internal/domain"
)

type recentBroadcasts interface {
	Recent() []domain.Broadcast
}

type broadcastResponse struct {
	UUID           string    `json:"uuid"`
	Name           string    `json:"name"`
	CompletedCount int       `json:"completedCount"`
	Total          int       `json:"total"`
	Percent        string    `json:"percent"`
	Message        string    `json:"message"`
	Legacy         string    `json:"legacy"`
	SentAt         time.Time `json:"sentAt"`
}

type broadcastsResponse struct {
	Success    bool                `json:"success"`
	Broadcasts []broadcastResponse `json:"broadcasts"`
}

func MakeBroadcastsHandler(
	feed recentBroadcasts,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("broadcasts", rootLogger, sentryMiddleware, newIPRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		recent := feed.Recent()
		broadcasts := make([]broadcastResponse, 0, len(recent))
		for _, broadcast := range recent {
			broadcasts = append(broadcasts, broadcastResponse{
				UUID:           broadcast.PlayerID,
				Name:           broadcast.PlayerName,
				CompletedCount: broadcast.CompletedCount,
				Total:          broadcast.Total,
				Percent:        broadcast.Percent,
				Message:        broadcast.String(),
				Legacy:         broadcast.Legacy(),
				SentAt:         broadcast.SentAt,
			})
		}

		writeJSONResponse(r.Context(), w, http.StatusOK, broadcastsResponse{
			Success:    true,
			Broadcasts: broadcasts,
		})
	}

	return middleware(handler)
}
