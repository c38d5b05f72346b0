package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Amund211/advancements/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed vanilla.yaml
var vanillaCatalog []byte

type yamlMilestone struct {
	Key          string     `yaml:"key"`
	Criteria     []string   `yaml:"criteria"`
	Requirements [][]string `yaml:"requirements"`
	Display      *bool      `yaml:"display"`
	Hidden       bool       `yaml:"hidden"`
}

// Catalog is the fixed list of milestones, in definition order
type Catalog struct {
	milestones []domain.Milestone
	byKey      map[string]int
}

// New loads the catalog at path, or the embedded vanilla catalog when path is empty
func New(path string) (*Catalog, error) {
	if path == "" {
		return Parse(vanillaCatalog)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return catalog, nil
}

func Parse(data []byte) (*Catalog, error) {
	var entries []yamlMilestone
	err := yaml.Unmarshal(data, &entries)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}

	catalog := &Catalog{
		milestones: make([]domain.Milestone, 0, len(entries)),
		byKey:      make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		milestone, err := entry.toDomain()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		if _, ok := catalog.byKey[milestone.Key]; ok {
			return nil, fmt.Errorf("entry %d: duplicate key %s", i, milestone.Key)
		}
		catalog.byKey[milestone.Key] = len(catalog.milestones)
		catalog.milestones = append(catalog.milestones, milestone)
	}

	return catalog, nil
}

func (e yamlMilestone) toDomain() (domain.Milestone, error) {
	namespace, path, found := strings.Cut(e.Key, ":")
	if !found || namespace == "" || path == "" {
		return domain.Milestone{}, fmt.Errorf("key '%s' is not namespaced", e.Key)
	}

	if len(e.Criteria) == 0 {
		return domain.Milestone{}, fmt.Errorf("%s has no criteria", e.Key)
	}

	for _, group := range e.Requirements {
		if len(group) == 0 {
			return domain.Milestone{}, fmt.Errorf("%s has an empty requirement group", e.Key)
		}
		for _, criterion := range group {
			if !slices.Contains(e.Criteria, criterion) {
				return domain.Milestone{}, fmt.Errorf("%s requires unknown criterion %s", e.Key, criterion)
			}
		}
	}

	hasDisplay := true
	if e.Display != nil {
		hasDisplay = *e.Display
	}

	return domain.Milestone{
		Key:          e.Key,
		Criteria:     e.Criteria,
		Requirements: e.Requirements,
		HasDisplay:   hasDisplay,
		Hidden:       e.Hidden,
	}, nil
}

// All returns every milestone, including the ones that do not count
func (c *Catalog) All() []domain.Milestone {
	return slices.Clone(c.milestones)
}

func (c *Catalog) Get(key string) (domain.Milestone, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return domain.Milestone{}, false
	}
	return c.milestones[i], true
}

// Valid returns the milestones accepted by isValid, in catalog order
func (c *Catalog) Valid(isValid domain.ValidityPredicate) []domain.Milestone {
	valid := make([]domain.Milestone, 0, len(c.milestones))
	for _, milestone := range c.milestones {
		if isValid(milestone) {
			valid = append(valid, milestone)
		}
	}
	return valid
}
