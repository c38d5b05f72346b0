package accountrepository

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Amund211/advancements/internal/domain"
)

// Memory keeps names for the lifetime of the process
type Memory struct {
	mutex    sync.Mutex
	accounts map[string]domain.Account
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]domain.Account),
	}
}

func (m *Memory) StoreAccount(ctx context.Context, account domain.Account) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if existing, ok := m.accounts[account.UUID]; ok && !existing.QueriedAt.Before(account.QueriedAt) {
		return nil
	}
	m.accounts[account.UUID] = account
	return nil
}

func (m *Memory) GetAccountByUUID(ctx context.Context, uuid string) (domain.Account, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	account, ok := m.accounts[uuid]
	if !ok {
		return domain.Account{}, domain.ErrPlayerNotFound
	}
	return account, nil
}

func (m *Memory) GetAccountsByUUIDs(ctx context.Context, uuids []string) ([]domain.Account, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	accounts := make([]domain.Account, 0, len(uuids))
	for _, uuid := range uuids {
		account, ok := m.accounts[uuid]
		if !ok || slices.ContainsFunc(accounts, func(a domain.Account) bool { return a.UUID == uuid }) {
			continue
		}
		accounts = append(accounts, account)
	}

	slices.SortFunc(accounts, func(a, b domain.Account) int {
		return cmp.Compare(a.UUID, b.UUID)
	})
	return accounts, nil
}
