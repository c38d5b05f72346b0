package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Amund211/advancements/internal/domain"
)

type milestoneCatalog interface {
	Get(key string) (domain.Milestone, bool)
	Valid(isValid domain.ValidityPredicate) []domain.Milestone
}

type awardedCriteriaProvider interface {
	Awarded(playerID, key string) map[string]bool
}

// LookupCriteria lists the criteria of a milestone and whether the player has them.
// An empty playerID reports every criterion as not done.
type LookupCriteria func(ctx context.Context, argument string, playerID string) (domain.CriteriaLookup, error)

// CompleteMilestones suggests milestone keys for a partially typed argument
type CompleteMilestones func(prefix string) []string

func findMilestone(milestones []domain.Milestone, argument string) (domain.Milestone, bool) {
	// Prefer an exact key so a short key can never shadow a full one
	for _, milestone := range milestones {
		if strings.EqualFold(milestone.Key, argument) {
			return milestone, true
		}
	}
	for _, milestone := range milestones {
		if strings.EqualFold(milestone.ShortKey(), argument) {
			return milestone, true
		}
	}
	return domain.Milestone{}, false
}

func BuildLookupCriteria(
	catalog milestoneCatalog,
	isValid domain.ValidityPredicate,
	progress awardedCriteriaProvider,
) LookupCriteria {
	return func(ctx context.Context, argument string, playerID string) (domain.CriteriaLookup, error) {
		argument = strings.TrimSpace(argument)
		milestone, ok := findMilestone(catalog.Valid(isValid), argument)
		if !ok {
			return domain.CriteriaLookup{}, fmt.Errorf("%w: %s", domain.ErrMilestoneNotFound, argument)
		}

		awarded := map[string]bool{}
		if playerID != "" {
			awarded = progress.Awarded(playerID, milestone.Key)
		}

		criteria := make([]domain.CriterionStatus, 0, len(milestone.Criteria))
		for _, criterion := range milestone.Criteria {
			criteria = append(criteria, domain.CriterionStatus{
				Criterion: criterion,
				Done:      awarded[criterion],
			})
		}

		return domain.CriteriaLookup{
			Milestone: milestone,
			Criteria:  criteria,
		}, nil
	}
}

func BuildCompleteMilestones(catalog milestoneCatalog, isValid domain.ValidityPredicate) CompleteMilestones {
	return func(prefix string) []string {
		prefix = strings.ToLower(strings.TrimSpace(prefix))

		keys := []string{}
		for _, milestone := range catalog.Valid(isValid) {
			if strings.HasPrefix(strings.ToLower(milestone.Key), prefix) ||
				strings.HasPrefix(strings.ToLower(milestone.ShortKey()), prefix) {
				keys = append(keys, milestone.Key)
			}
		}
		return keys
	}
}
