package ports

import (
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

type criterionStatusResponse struct {
	Criterion string `json:"criterion"`
	Done      bool   `json:"done"`
}

type criteriaResponse struct {
	Success     bool                      `json:"success"`
	Advancement string                    `json:"advancement"`
	Hidden      bool                      `json:"hidden"`
	Criteria    []criterionStatusResponse `json:"criteria"`
}

type completionsResponse struct {
	Success      bool     `json:"success"`
	Advancements []string `json:"advancements"`
}

func MakeCriteriaHandler(
	lookupCriteria app.LookupCriteria,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("criteria", rootLogger, sentryMiddleware, newIPRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		argument := r.PathValue("advancement")

		playerID := ""
		if rawUUID := r.URL.Query().Get("uuid"); rawUUID != "" {
			var err error
			playerID, err = strutils.NormalizeUUID(rawUUID)
			if err != nil {
				writeErrorResponse(ctx, w, http.StatusBadRequest, "invalid uuid")
				return
			}
			ctx = logging.WithPlayer(ctx, playerID)
			ctx = reporting.SetPlayerIDInContext(ctx, playerID)
		}

		lookup, err := lookupCriteria(ctx, argument, playerID)
		if errors.Is(err, domain.ErrMilestoneNotFound) {
			writeErrorResponse(ctx, w, http.StatusNotFound, "advancement not found")
			return
		} else if err != nil {
			reporting.Report(ctx, fmt.Errorf("failed to look up criteria: %w", err))
			writeErrorResponse(ctx, w, http.StatusInternalServerError, "internal server error")
			return
		}

		criteria := make([]criterionStatusResponse, 0, len(lookup.Criteria))
		for _, status := range lookup.Criteria {
			criteria = append(criteria, criterionStatusResponse{
				Criterion: status.Criterion,
				Done:      status.Done,
			})
		}

		writeJSONResponse(ctx, w, http.StatusOK, criteriaResponse{
			Success:     true,
			Advancement: lookup.Milestone.Key,
			Hidden:      lookup.Milestone.Hidden,
			Criteria:    criteria,
		})
	}

	return middleware(handler)
}

func MakeCompleteCriteriaHandler(
	completeMilestones app.CompleteMilestones,
	rootLogger *slog.Logger,
	sentryMiddleware func(http.HandlerFunc) http.HandlerFunc,
) http.HandlerFunc {
	middleware := buildMiddleware("complete_criteria", rootLogger, sentryMiddleware, newIPRateLimiter())

	handler := func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(r.Context(), w, http.StatusOK, completionsResponse{
			Success:      true,
			Advancements: completeMilestones(r.URL.Query().Get("prefix")),
		})
	}

	return middleware(handler)
}
