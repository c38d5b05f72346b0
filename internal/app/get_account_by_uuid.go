package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Amund211/advancements/internal/adapters/cache"
	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/logging"
	"github.com/Amund211/advancements/internal/reporting"
	"github.com/Amund211/advancements/internal/strutils"
)

type GetAccountByUUID func(ctx context.Context, uuid string) (domain.Account, error)

type accountProviderByUUID interface {
	GetAccountByUUID(ctx context.Context, uuid string) (domain.Account, error)
}

type accountRepositoryByUUID interface {
	StoreAccount(ctx context.Context, account domain.Account) error
	GetAccountByUUID(ctx context.Context, uuid string) (domain.Account, error)
}

const (
	// Stored names younger than this are used without asking the provider
	freshAccountAge = 24 * time.Hour
	// A stale name on the sidebar is better than a uuid
	maxFallbackAccountAge = 30 * 24 * time.Hour
)

func buildGetAccountByUUIDWithoutCache(
	provider accountProviderByUUID,
	repo accountRepositoryByUUID,
	nowFunc func() time.Time,
) func(ctx context.Context, uuid string) (domain.Account, error) {
	return func(ctx context.Context, uuid string) (domain.Account, error) {
		if !strutils.UUIDIsNormalized(uuid) {
			err := fmt.Errorf("UUID is not normalized")
			reporting.Report(ctx, err)
			return domain.Account{}, err
		}

		// The session server quota is shared by every name on every board
		repoAccount, repoErr := repo.GetAccountByUUID(ctx, uuid)
		haveRepoAccount := repoErr == nil
		repoAccountAge := nowFunc().Sub(repoAccount.QueriedAt)
		if haveRepoAccount && repoAccountAge < freshAccountAge {
			return repoAccount, nil
		}

		getCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		providerAccount, err := provider.GetAccountByUUID(getCtx, uuid)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			return domain.Account{}, err
		} else if err != nil {
			// NOTE: accountProvider implementations handle their own error reporting
			if haveRepoAccount && repoAccountAge < maxFallbackAccountAge {
				logging.FromContext(ctx).InfoContext(ctx, "Using stored name after provider failure",
					"playerUUID", uuid,
					"age", repoAccountAge.String(),
				)
				return repoAccount, nil
			}
			return domain.Account{}, fmt.Errorf("could not get account for uuid: %w", err)
		}

		err = repo.StoreAccount(ctx, providerAccount)
		if err != nil {
			// NOTE: Not critical, the repository reports its own errors
			logging.FromContext(ctx).WarnContext(ctx, "Failed to store account", "error", err.Error())
		}

		return providerAccount, nil
	}
}

func BuildGetAccountByUUIDWithCache(
	accountByUUIDCache cache.Cache[domain.Account],
	provider accountProviderByUUID,
	repo accountRepositoryByUUID,
	nowFunc func() time.Time,
) GetAccountByUUID {
	getAccountByUUIDWithoutCache := buildGetAccountByUUIDWithoutCache(provider, repo, nowFunc)

	return func(ctx context.Context, uuid string) (domain.Account, error) {
		account, _, err := cache.GetOrCreate(ctx, accountByUUIDCache, uuid, func() (domain.Account, error) {
			return getAccountByUUIDWithoutCache(ctx, uuid)
		})
		if err != nil {
			// NOTE: GetOrCreate only returns an error if create() fails.
			// getAccountByUUIDWithoutCache handles its own error reporting
			return domain.Account{}, fmt.Errorf("failed to cache.GetOrCreate account for uuid: %w", err)
		}

		return account, nil
	}
}
