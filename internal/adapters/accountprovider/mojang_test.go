package accountprovider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/strutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountFromMojangResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		response   []byte
		statusCode int
		queriedAt  time.Time
		expected   domain.Account
		err        error
	}{
		{
			name: "Real valid response",
			response: []byte(`{
  "id" : "a937646bf11544c38dbf9ae4a65669a0",
  "name" : "Skydeath",
  "properties" : [ {
    "name" : "textures",
    "value" : "ewogICJ0aW1lc3RhbXAiIDogMTcwMDAwMDAwMDAwMCwKfQ=="
  } ],
  "profileActions" : [ ]
}`),
			statusCode: 200,
			queriedAt:  time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC),
			expected: domain.Account{
				UUID:      "a937646b-f115-44c3-8dbf-9ae4a65669a0",
				Username:  "Skydeath",
				QueriedAt: time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "Real not found response",
			response: []byte(`{
  "path" : "/session/minecraft/profile/01234567890abcdef01234567890abcd",
  "errorMessage" : "Not a valid UUID: 01234567890abcdef01234567890abcd"
}`),
			statusCode: 404,
			err:        domain.ErrPlayerNotFound,
		},
		{
			name:       "204 no body",
			response:   []byte(``),
			statusCode: 204,
			err:        domain.ErrPlayerNotFound,
		},
		{
			name:       "429 no body",
			response:   []byte(``),
			statusCode: 429,
			err:        domain.ErrTemporarilyUnavailable,
		},
		{
			name:       "503 no body",
			response:   []byte(``),
			statusCode: 503,
			err:        domain.ErrTemporarilyUnavailable,
		},
		{
			name:       "504 no body",
			response:   []byte(``),
			statusCode: 504,
			err:        domain.ErrTemporarilyUnavailable,
		},
		{
			name:       "500",
			response:   []byte(`{"id":"a937646bf11544c38dbf9ae4a65669a0","name":"Skydeath"}`),
			statusCode: 500,
			err:        assert.AnError,
		},
		{
			name:       "Invalid JSON",
			response:   []byte(`{"id":"invalid-json"`),
			statusCode: 200,
			err:        assert.AnError,
		},
		{
			name:       "Empty Response",
			response:   []byte(``),
			statusCode: 200,
			err:        assert.AnError,
		},
		{
			name:       "Missing name",
			response:   []byte(`{"id":"a937646bf11544c38dbf9ae4a65669a0"}`),
			statusCode: 200,
			err:        assert.AnError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			account, err := accountFromMojangResponse(tc.statusCode, tc.response, tc.queriedAt)
			if tc.err != nil {
				if errors.Is(tc.err, assert.AnError) {
					require.Error(t, err)
				} else {
					require.ErrorIs(t, err, tc.err)
				}
				return
			}
			require.NoError(t, err)

			require.Equal(t, tc.expected, account)
			require.True(t, strutils.UUIDIsNormalized(account.UUID))
		})
	}
}

type mockedHttpClient struct {
	t          *testing.T
	statusCode int
	body       string
	err        error
	requests   []*http.Request
}

func (m *mockedHttpClient) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(strings.NewReader(m.body)),
	}, nil
}

type mockedLimiter struct {
	allow bool
}

func (m *mockedLimiter) Limit(ctx context.Context, maxOperationTime time.Duration, operation func()) bool {
	if !m.allow {
		return false
	}
	operation()
	return true
}

func TestGetAccountByUUID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	nowFunc := func() time.Time { return now }
	const uuid = "a937646b-f115-44c3-8dbf-9ae4a65669a0"

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		client := &mockedHttpClient{
			t:          t,
			statusCode: 200,
			body:       `{"id":"a937646bf11544c38dbf9ae4a65669a0","name":"Skydeath"}`,
		}
		mojang := NewMojang(client, &mockedLimiter{allow: true}, nowFunc)

		account, err := mojang.GetAccountByUUID(t.Context(), uuid)
		require.NoError(t, err)
		require.Equal(t, domain.Account{UUID: uuid, Username: "Skydeath", QueriedAt: now}, account)

		require.Len(t, client.requests, 1)
		require.Equal(t, "https://sessionserver.mojang.com/session/minecraft/profile/a937646bf11544c38dbf9ae4a65669a0", client.requests[0].URL.String())
		require.Equal(t, USER_AGENT, client.requests[0].Header.Get("User-Agent"))
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		client := &mockedHttpClient{t: t, statusCode: 204}
		mojang := NewMojang(client, &mockedLimiter{allow: true}, nowFunc)

		_, err := mojang.GetAccountByUUID(t.Context(), uuid)
		require.ErrorIs(t, err, domain.ErrPlayerNotFound)
	})

	t.Run("limited", func(t *testing.T) {
		t.Parallel()

		client := &mockedHttpClient{t: t, statusCode: 200}
		mojang := NewMojang(client, &mockedLimiter{allow: false}, nowFunc)

		_, err := mojang.GetAccountByUUID(t.Context(), uuid)
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
		require.Empty(t, client.requests)
	})

	t.Run("request failure", func(t *testing.T) {
		t.Parallel()

		client := &mockedHttpClient{t: t, err: errors.New("connection reset by peer")}
		mojang := NewMojang(client, &mockedLimiter{allow: true}, nowFunc)

		_, err := mojang.GetAccountByUUID(t.Context(), uuid)
		require.Error(t, err)
	})

	t.Run("different uuid returned", func(t *testing.T) {
		t.Parallel()

		client := &mockedHttpClient{
			t:          t,
			statusCode: 200,
			body:       `{"id":"0123456789abcdef0123456789abcdef","name":"Someone"}`,
		}
		mojang := NewMojang(client, &mockedLimiter{allow: true}, nowFunc)

		_, err := mojang.GetAccountByUUID(t.Context(), uuid)
		require.Error(t, err)
	})
}
