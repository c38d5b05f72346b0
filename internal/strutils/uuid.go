package strutils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const STRIPPED_UUID_LENGTH = 32

// NormalizeUUID accepts a player UUID with or without dashes, in any case, and
// returns the dashed lower-case form used as the player identifier.
func NormalizeUUID(raw string) (string, error) {
	stripped := strings.ReplaceAll(raw, "-", "")
	if len(stripped) != STRIPPED_UUID_LENGTH {
		return "", fmt.Errorf("stripped UUID has incorrect length. input: '%s'", raw)
	}

	parsed, err := uuid.Parse(stripped)
	if err != nil {
		return "", fmt.Errorf("invalid character in UUID. input: '%s': %w", raw, err)
	}

	return parsed.String(), nil
}

func UUIDIsNormalized(raw string) bool {
	normalized, err := NormalizeUUID(raw)
	if err != nil {
		return false
	}
	return normalized == raw
}

// ShortUUID is a compact label for players whose name is not known yet
func ShortUUID(normalized string) string {
	if len(normalized) < 8 {
		return normalized
	}
	return normalized[:8]
}
