package ports

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Amund211/advancements/internal/app"
	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/logging"
	"github.com/Amund211/advancements/internal/reporting"
	"github.com/Amund211/advancements/internal/strutils"
)

// Full progress of a player with every advancement can be a few hundred kB
const maxEventBodySize = 1 << 20

type joinEvent struct {
	UUID     string              `json:"uuid"`
	Username string              `json:"username"`
	Progress map[string][]string `json:"progress"`
}

type quitEvent struct {
	UUID string `json:"uuid"`
}

type criterionEvent struct {
	UUID        string `json:"uuid"`
	Advancement string `json:"advancement"`
	Criterion   string `json:"criterion"`
}

type criterionResponse struct {
	Success   bool `json:"success"`
	Completed bool `json:"completed"`
}

// decodeEvent reads the body into event and returns the normalized player uuid
func decodeEvent[T any](w http.ResponseWriter, r *http.Request, event *T, rawUUID func(*T) string) (string, bool) {
	ctx := r.Context()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(event); err != nil {
		logging.FromContext(ctx).InfoContext(ctx, "Invalid event body", "error", err.Error())
		writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid body")
		return "", false
	}

	uuid, err := strutils.NormalizeUUID(rawUUID(event))
	if err != nil {
		writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid uuid")
		return "", false
	}
	return uuid, true
}

func MakeJoinHandler(
	playerJoin app.PlayerJoin,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("join", rootLogger, sentryMiddleware, newHostRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		var event joinEvent
		uuid, ok := decodeEvent(w, r, &event, func(e *joinEvent) string { return e.UUID })
		if !ok {
			return
		}

		ctx := logging.AddMetaToContext(logging.WithPlayer(r.Context(), uuid),
			slog.String("username", event.Username),
		)
		ctx = reporting.SetPlayerIDInContext(ctx, uuid)

		err := playerJoin(ctx, uuid, event.Username, event.Progress)
		if err != nil {
			writeCounterError(ctx, w, fmt.Errorf("failed to handle join: %w", err))
			return
		}

		writeJSONResponse(ctx, w, http.StatusOK, successResponse{Success: true})
	}

	return middleware(handler)
}

func MakeQuitHandler(
	playerQuit app.PlayerQuit,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("quit", rootLogger, sentryMiddleware, newHostRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		var event quitEvent
		uuid, ok := decodeEvent(w, r, &event, func(e *quitEvent) string { return e.UUID })
		if !ok {
			return
		}

		ctx := logging.WithPlayer(r.Context(), uuid)
		ctx = reporting.SetPlayerIDInContext(ctx, uuid)

		err := playerQuit(ctx, uuid)
		if err != nil {
			writeCounterError(ctx, w, fmt.Errorf("failed to handle quit: %w", err))
			return
		}

		writeJSONResponse(ctx, w, http.StatusOK, successResponse{Success: true})
	}

	return middleware(handler)
}

func MakeCriterionHandler(
	criterionGranted app.CriterionGranted,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("criterion", rootLogger, sentryMiddleware, newHostRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		var event criterionEvent
		uuid, ok := decodeEvent(w, r, &event, func(e *criterionEvent) string { return e.UUID })
		if !ok {
			return
		}

		ctx := logging.AddMetaToContext(logging.WithPlayer(r.Context(), uuid),
			slog.String("advancement", event.Advancement),
			slog.String("criterion", event.Criterion),
		)
		ctx = reporting.SetPlayerIDInContext(ctx, uuid)
		ctx = reporting.AddExtrasToContext(ctx, map[string]string{
			"advancement": event.Advancement,
			"criterion":   event.Criterion,
		})

		completed, err := criterionGranted(ctx, uuid, event.Advancement, event.Criterion)
		if errors.Is(err, domain.ErrMilestoneNotFound) {
			writeErrorResponse(ctx, w, http.StatusNotFound, "unknown advancement or criterion")
			return
		} else if err != nil {
			writeCounterError(ctx, w, fmt.Errorf("failed to handle criterion: %w", err))
			return
		}

		writeJSONResponse(ctx, w, http.StatusOK, criterionResponse{
			Success:   true,
			Completed: completed,
		})
	}

	return middleware(handler)
}
