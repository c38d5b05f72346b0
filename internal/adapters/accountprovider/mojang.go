package accountprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/ratelimiting"
	"github.com/Amund211/advancements/internal/reporting"
	"github.com/Amund211/advancements/internal/strutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const USER_AGENT = "advancements/1.0 (+https://github.com/Amund211/advancements)"

// The session server allows 600 requests per 10 minutes, keep some headroom
const SESSION_SERVER_LIMIT = 500
const SESSION_SERVER_WINDOW = 10 * time.Minute

const maxRequestDuration = 10 * time.Second

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Limiter interface {
	Limit(ctx context.Context, maxOperationTime time.Duration, operation func()) bool
}

type Mojang struct {
	httpClient HttpClient
	limiter    Limiter
	nowFunc    func() time.Time

	tracer trace.Tracer
}

func NewMojang(httpClient HttpClient, limiter Limiter, nowFunc func() time.Time) *Mojang {
	return &Mojang{
		httpClient: httpClient,
		limiter:    limiter,
		nowFunc:    nowFunc,

		tracer: otel.Tracer("advancements/accountprovider/mojang"),
	}
}

// NewRateLimitedMojang limits requests to stay within the session server quota
func NewRateLimitedMojang(httpClient HttpClient, nowFunc func() time.Time) *Mojang {
	return NewMojang(
		httpClient,
		ratelimiting.NewWindowLimiter(SESSION_SERVER_LIMIT, SESSION_SERVER_WINDOW),
		nowFunc,
	)
}

func (m *Mojang) GetAccountByUUID(ctx context.Context, uuid string) (domain.Account, error) {
	ctx, span := m.tracer.Start(ctx, "Mojang.GetAccountByUUID")
	defer span.End()

	stripped := strings.ReplaceAll(uuid, "-", "")
	url := fmt.Sprintf("https://sessionserver.mojang.com/session/minecraft/profile/%s", stripped)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		err := fmt.Errorf("failed to create request: %w", err)
		reporting.Report(ctx, err)
		return domain.Account{}, err
	}
	req.Header.Set("User-Agent", USER_AGENT)

	var resp *http.Response
	ran := m.limiter.Limit(ctx, maxRequestDuration, func() {
		resp, err = m.httpClient.Do(req)
	})
	if !ran {
		return domain.Account{}, fmt.Errorf("%w: rate limited by session server quota", domain.ErrTemporarilyUnavailable)
	}
	if err != nil {
		err := fmt.Errorf("failed to send request: %w", err)
		reporting.Report(ctx, err)
		return domain.Account{}, err
	}

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err := fmt.Errorf("failed to read response body: %w", err)
		reporting.Report(ctx, err)
		return domain.Account{}, err
	}

	account, err := accountFromMojangResponse(resp.StatusCode, data, m.nowFunc())
	if err != nil {
		if errors.Is(err, domain.ErrPlayerNotFound) || errors.Is(err, domain.ErrTemporarilyUnavailable) {
			// Pass through error but don't report
			return domain.Account{}, err
		}

		err := fmt.Errorf("failed to get account from mojang response: %w", err)
		reporting.Report(ctx, err, map[string]string{
			"data":   string(data),
			"status": strconv.Itoa(resp.StatusCode),
		})
		return domain.Account{}, err
	}

	if account.UUID != uuid {
		err := fmt.Errorf("mojang returned a different uuid")
		reporting.Report(ctx, err, map[string]string{
			"requested": uuid,
			"returned":  account.UUID,
		})
		return domain.Account{}, err
	}

	return account, nil
}

type mojangResponse struct {
	UUID     string `json:"id"`
	Username string `json:"name"`
}

func accountFromMojangResponse(statusCode int, data []byte, queriedAt time.Time) (domain.Account, error) {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return domain.Account{}, fmt.Errorf("%w: mojang API returned status code %d", domain.ErrTemporarilyUnavailable, statusCode)
	case http.StatusNotFound,
		http.StatusNoContent:
		return domain.Account{}, domain.ErrPlayerNotFound
	}

	if statusCode != http.StatusOK {
		return domain.Account{}, fmt.Errorf("mojang API returned unexpected status code %d", statusCode)
	}

	var response mojangResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return domain.Account{}, fmt.Errorf("failed to parse mojang response: %w", err)
	}

	uuid, err := strutils.NormalizeUUID(response.UUID)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to normalize UUID from mojang: %w", err)
	}

	if response.Username == "" {
		return domain.Account{}, fmt.Errorf("mojang response is missing a username")
	}

	return domain.Account{
		Username:  response.Username,
		UUID:      uuid,
		QueriedAt: queriedAt,
	}, nil
}
