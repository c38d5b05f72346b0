package accountrepository

import (
	"context"

	"github.com/Amund211/advancements/internal/domain"
)

// AccountRepository remembers the last known name of players
type AccountRepository interface {
	StoreAccount(ctx context.Context, account domain.Account) error
	GetAccountByUUID(ctx context.Context, uuid string) (domain.Account, error)
	// GetAccountsByUUIDs returns the known accounts among uuids, ordered by uuid.
	// Unknown players are left out.
	GetAccountsByUUIDs(ctx context.Context, uuids []string) ([]domain.Account, error)
}
