package domain

import "strings"

// Milestone is a single advancement in the catalog
type Milestone struct {
	// Namespaced key, e.g. minecraft:story/mine_stone
	Key string

	Criteria []string

	// Each group must have at least one awarded criterion for the milestone to be done.
	// When empty, every criterion is its own group.
	Requirements [][]string

	// Milestones without a display criterion are not shown to players and do not count
	HasDisplay bool
	Hidden     bool
}

// ShortKey returns the key without its namespace
func (m Milestone) ShortKey() string {
	_, short, found := strings.Cut(m.Key, ":")
	if !found {
		return m.Key
	}
	return short
}

func (m Milestone) requirementGroups() [][]string {
	if len(m.Requirements) > 0 {
		return m.Requirements
	}

	groups := make([][]string, 0, len(m.Criteria))
	for _, criterion := range m.Criteria {
		groups = append(groups, []string{criterion})
	}
	return groups
}

// IsDone reports whether the awarded criteria satisfy every requirement group
func (m Milestone) IsDone(awarded map[string]bool) bool {
	groups := m.requirementGroups()
	if len(groups) == 0 {
		return false
	}

	for _, group := range groups {
		satisfied := false
		for _, criterion := range group {
			if awarded[criterion] {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// ValidityPredicate decides whether a milestone counts towards totals
type ValidityPredicate func(Milestone) bool

func HasDisplayCriterion(m Milestone) bool {
	return m.HasDisplay
}

type CriterionStatus struct {
	Criterion string
	Done      bool
}

type CriteriaLookup struct {
	Milestone Milestone
	Criteria  []CriterionStatus
}
