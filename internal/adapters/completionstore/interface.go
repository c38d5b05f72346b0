package completionstore

import "context"

// CompletionStore persists the completion count of every player as one snapshot
type CompletionStore interface {
	Load(ctx context.Context) (map[string]int, error)
	Save(ctx context.Context, counts map[string]int) error
}
