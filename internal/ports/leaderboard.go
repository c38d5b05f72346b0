package ports

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Amund211/advancements/internal/adapters/sidebar"
	"github.com/Amund211/advancements/internal/app"
	"github.com/Amund211/advancements/internal/logging"
	"github.com/Amund211/advancements/internal/strutils"
)

type leaderboardEntryResponse struct {
	Rank           int     `json:"rank"`
	UUID           string  `json:"uuid"`
	Name           string  `json:"name"`
	CompletedCount int     `json:"completedCount"`
	Percent        float64 `json:"percent"`
	IsViewer       bool    `json:"isViewer"`
	IsTop          bool    `json:"isTop"`
}

type leaderboardResponse struct {
	Success bool                       `json:"success"`
	Entries []leaderboardEntryResponse `json:"entries"`
}

type sidebarLineResponse struct {
	Score int    `json:"score"`
	Text  string `json:"text"`
}

type sidebarResponse struct {
	Success bool                  `json:"success"`
	Title   string                `json:"title"`
	Lines   []sidebarLineResponse `json:"lines"`
}

func MakeLeaderboardHandler(
	getLeaderboard app.GetLeaderboard,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("leaderboard", rootLogger, sentryMiddleware, newIPRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		viewerID := ""
		if rawViewer := r.URL.Query().Get("viewer"); rawViewer != "" {
			var err error
			viewerID, err = strutils.NormalizeUUID(rawViewer)
			if err != nil {
				writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid viewer uuid")
				return
			}
			ctx = logging.AddMetaToContext(ctx, slog.String("viewer", viewerID))
		}

		ranked, err := getLeaderboard(ctx, viewerID)
		if err != nil {
			writeCounterError(ctx, w, fmt.Errorf("failed to get leaderboard: %w", err))
			return
		}

		entries := make([]leaderboardEntryResponse, 0, len(ranked))
		for _, player := range ranked {
			entries = append(entries, leaderboardEntryResponse{
				Rank:           player.Rank,
				UUID:           player.PlayerID,
				Name:           player.Name,
				CompletedCount: player.CompletedCount,
				Percent:        player.Percent,
				IsViewer:       player.IsViewer,
				IsTop:          player.IsTop,
			})
		}

		writeJSONResponse(ctx, w, http.StatusOK, leaderboardResponse{
			Success: true,
			Entries: entries,
		})
	}

	return middleware(handler)
}

func MakeSidebarHandler(
	boards *sidebar.Boards,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("sidebar", rootLogger, sentryMiddleware, newIPRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		uuid, err := strutils.NormalizeUUID(r.PathValue("uuid"))
		if err != nil {
			writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid uuid")
			return
		}

		board, ok := boards.Get(uuid)
		if !ok {
			writeErrorResponse(ctx, w, http.StatusNotFound, "no sidebar for player")
			return
		}

		view := board.View()
		lines := make([]sidebarLineResponse, 0, len(view.Lines))
		for _, line := range view.Lines {
			lines = append(lines, sidebarLineResponse{Score: line.Score, Text: line.Text})
		}

		writeJSONResponse(ctx, w, http.StatusOK, sidebarResponse{
			Success: true,
			Title:   view.Title,
			Lines:   lines,
		})
	}

	return middleware(handler)
}
