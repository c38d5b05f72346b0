package ports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Amund211/advancements/internal/app"
	"github.com/Amund211/advancements/internal/reporting"
	"github.com/Amund211/advancements/internal/scheduler"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func writeJSONResponse(ctx context.Context, w http.ResponseWriter, statusCode int, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		reporting.Report(ctx, fmt.Errorf("failed to marshal response: %w", err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"cause":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(data)
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, cause string) {
	writeJSONResponse(ctx, w, statusCode, errorResponse{
		Success: false,
		Cause:   cause,
	})
}

// writeCounterError maps errors that any counter operation may return
func writeCounterError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, app.ErrNotEnabled) || errors.Is(err, scheduler.ErrStopped) {
		writeErrorResponse(ctx, w, http.StatusServiceUnavailable, "not running")
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeErrorResponse(ctx, w, http.StatusServiceUnavailable, "timed out")
		return
	}

	reporting.Report(ctx, err)
	writeErrorResponse(ctx, w, http.StatusInternalServerError, "internal server error")
}
