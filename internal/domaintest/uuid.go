package domaintest

import (
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func NewUUID(t *testing.T) string {
	id, err := uuid.NewRandom()
	require.NoError(t, err)
	return id.String()
}

// NewSortedUUIDs returns n distinct player ids in ascending order
func NewSortedUUIDs(t *testing.T, n int) []string {
	ids := make([]string, 0, n)
	for len(ids) < n {
		id := NewUUID(t)
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
