package domaintest

import (
	"slices"

	"github.com/Amund211/advancements/internal/domain"
)

type milestoneBuilder struct {
	milestone domain.Milestone
}

func (mb *milestoneBuilder) WithCriteria(criteria ...string) *milestoneBuilder {
	mb.milestone.Criteria = criteria
	return mb
}

// WithRequirements sets the requirement groups. Every criterion in the groups
// is added to the criteria of the milestone.
func (mb *milestoneBuilder) WithRequirements(requirements ...[]string) *milestoneBuilder {
	mb.milestone.Requirements = requirements
	for _, group := range requirements {
		for _, criterion := range group {
			if !slices.Contains(mb.milestone.Criteria, criterion) {
				mb.milestone.Criteria = append(mb.milestone.Criteria, criterion)
			}
		}
	}
	return mb
}

func (mb *milestoneBuilder) WithoutDisplay() *milestoneBuilder {
	mb.milestone.HasDisplay = false
	return mb
}

func (mb *milestoneBuilder) Hidden() *milestoneBuilder {
	mb.milestone.Hidden = true
	return mb
}

func (mb *milestoneBuilder) Build() domain.Milestone {
	milestone := mb.milestone
	milestone.Criteria = slices.Clone(mb.milestone.Criteria)
	milestone.Requirements = slices.Clone(mb.milestone.Requirements)
	return milestone
}

// NewMilestoneBuilder starts from a displayed milestone with a single criterion
func NewMilestoneBuilder(key string) *milestoneBuilder {
	return &milestoneBuilder{
		milestone: domain.Milestone{
			Key:        key,
			Criteria:   []string{"done"},
			HasDisplay: true,
		},
	}
}
