package progress

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Amund211/advancements/internal/domain"
)

type Catalog interface {
	Get(key string) (domain.Milestone, bool)
	Valid(isValid domain.ValidityPredicate) []domain.Milestone
}

// Store mirrors the criteria the host has awarded to each player
type Store struct {
	catalog Catalog
	isValid domain.ValidityPredicate

	mutex sync.Mutex
	// player -> milestone key -> awarded criteria
	awarded map[string]map[string]map[string]bool
}

func New(catalog Catalog, isValid domain.ValidityPredicate) *Store {
	return &Store{
		catalog: catalog,
		isValid: isValid,
		awarded: make(map[string]map[string]map[string]bool),
	}
}

// Sync replaces everything known about the player with the given progress.
// Milestones and criteria missing from the catalog are skipped and returned.
func (s *Store) Sync(playerID string, progress map[string][]string) []string {
	byMilestone := make(map[string]map[string]bool, len(progress))
	skipped := []string{}
	for key, criteria := range progress {
		milestone, ok := s.catalog.Get(key)
		if !ok {
			skipped = append(skipped, key)
			continue
		}

		awarded := make(map[string]bool, len(criteria))
		for _, criterion := range criteria {
			if !slices.Contains(milestone.Criteria, criterion) {
				skipped = append(skipped, fmt.Sprintf("%s#%s", key, criterion))
				continue
			}
			awarded[criterion] = true
		}
		byMilestone[key] = awarded
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.awarded[playerID] = byMilestone

	slices.Sort(skipped)
	return skipped
}

// Grant awards a single criterion. Returns true if this completed the milestone.
func (s *Store) Grant(playerID, key, criterion string) (bool, error) {
	milestone, ok := s.catalog.Get(key)
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrMilestoneNotFound, key)
	}
	if !slices.Contains(milestone.Criteria, criterion) {
		return false, fmt.Errorf("%w: %s has no criterion %s", domain.ErrMilestoneNotFound, key, criterion)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	byMilestone, ok := s.awarded[playerID]
	if !ok {
		byMilestone = make(map[string]map[string]bool)
		s.awarded[playerID] = byMilestone
	}
	awarded, ok := byMilestone[key]
	if !ok {
		awarded = make(map[string]bool)
		byMilestone[key] = awarded
	}

	wasDone := milestone.IsDone(awarded)
	awarded[criterion] = true
	return !wasDone && milestone.IsDone(awarded), nil
}

// Awarded returns a copy of the criteria awarded to the player for a milestone
func (s *Store) Awarded(playerID, key string) map[string]bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	awarded := s.awarded[playerID][key]
	if awarded == nil {
		return map[string]bool{}
	}
	return maps.Clone(awarded)
}

func (s *Store) IsDone(playerID, key string) bool {
	milestone, ok := s.catalog.Get(key)
	if !ok {
		return false
	}
	return milestone.IsDone(s.Awarded(playerID, key))
}

// CompletedCount counts the valid milestones the player is done with
func (s *Store) CompletedCount(ctx context.Context, playerID string) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	count := 0
	for _, milestone := range s.catalog.Valid(s.isValid) {
		if milestone.IsDone(s.awarded[playerID][milestone.Key]) {
			count++
		}
	}
	return count, nil
}
