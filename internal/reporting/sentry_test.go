package reporting

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	t.Run("session server lookup", func(t *testing.T) {
		t.Parallel()

		err := `failed to send request: Get "https://sessionserver.mojang.com/session/minecraft/profile/a937646bf11544c38dbf9ae4a65669a0": read tcp [dead:beef:feb1:d745::c001]:64079->[dead:beef::6811:112a]:443: read: connection reset by peer`
		want := `failed to send request: Get "https://sessionserver.mojang.com/session/minecraft/profile/<uuid>": read tcp <host>-><host>: read: connection reset by peer`
		require.Equal(t, want, sanitizeError(err))
	})

	t.Run("dashed player uuid", func(t *testing.T) {
		t.Parallel()

		err := `failed to record count for player 01234567-89ab-cdef-0123-456789abcdef: invalid completed count`
		want := `failed to record count for player <uuid>: invalid completed count`
		require.Equal(t, want, sanitizeError(err))
	})

	t.Run("temporary files", func(t *testing.T) {
		t.Parallel()

		err := `failed to write data/data.json.tmp-123456: no space left on device`
		want := `failed to write data/data.json.tmp-<n>: no space left on device`
		require.Equal(t, want, sanitizeError(err))
	})

	t.Run("misc ipv6", func(t *testing.T) {
		t.Parallel()

		ips := []string{
			`1:2:3:4:5:6:7:8`,
			`1::`,
			`1::8`,
			`1:2:3:4:5:6::8`,
			`1::7:8`,
			`::2:3:4:5:6:7:8`,
			`::8`,
			`::`,
		}
		for _, ip := range ips {
			t.Run(ip, func(t *testing.T) {
				t.Parallel()

				require.Equal(t, "<host>", sanitizeError(fmt.Sprintf("[%s]:1234", ip)))
			})
		}
	})
}

func TestReportWithoutHub(t *testing.T) {
	t.Parallel()

	// Should only log
	Report(t.Context(), fmt.Errorf("something went wrong"), map[string]string{"key": "value"})
	Report(t.Context(), nil)
}

func TestMetaFromContext(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	ctx = AddTagsToContext(ctx, map[string]string{"port": "leaderboard"})
	ctx = AddExtrasToContext(ctx, map[string]string{"viewer": "someone"})
	ctx = SetPlayerIDInContext(ctx, "01234567-89ab-cdef-0123-456789abcdef")

	meta := MetaFromContext(ctx)
	require.Equal(t, map[string]string{"port": "leaderboard"}, meta.tags)
	require.Equal(t, map[string]string{"viewer": "someone"}, meta.extras)
	require.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", meta.playerID)

	// Mutating the returned meta does not affect the context
	meta.tags["port"] = "changed"
	require.Equal(t, "leaderboard", MetaFromContext(ctx).tags["port"])
}
