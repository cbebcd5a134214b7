// Package rules decides which achievements a counter change earns. It holds
// no state; callers supply the catalog and the before/after counter values.
package rules

import (
	"sort"

	"github.com/google/uuid"

	"storyquestAPI/internal/achievement"
)

type Metric string

const (
	MetricSharedStories    Metric = "shared_stories"
	MetricChallengeEntries Metric = "challenge_entries"
	MetricStoryLikes       Metric = "story_likes"
)

type Threshold struct {
	Value       int
	Achievement string
}

type Rule struct {
	Metric     Metric
	Thresholds []Threshold
}

var (
	ShareRule = Rule{
		Metric: MetricSharedStories,
		Thresholds: []Threshold{
			{1, "First Share"},
			{5, "Sharing Enthusiast"},
			{10, "Social Storyteller"},
		},
	}
	ChallengeRule = Rule{
		Metric: MetricChallengeEntries,
		Thresholds: []Threshold{
			{1, "Challenge Accepted"},
			{5, "Challenge Seeker"},
			{10, "Challenge Master"},
		},
	}
	LikeRule = Rule{
		Metric: MetricStoryLikes,
		Thresholds: []Threshold{
			{10, "Popular Story"},
			{50, "Trending Story"},
			{100, "Viral Story"},
		},
	}
)

// All lists every rule the service evaluates.
func All() []Rule {
	return []Rule{ShareRule, ChallengeRule, LikeRule}
}

// Crossed returns the achievement names whose threshold T satisfies
// prev < T <= next, in threshold order.
func Crossed(prev, next int, thresholds []Threshold) []string {
	if next <= prev {
		return nil
	}
	var names []string
	for _, t := range thresholds {
		if prev < t.Value && t.Value <= next {
			names = append(names, t.Achievement)
		}
	}
	return names
}

func (r Rule) Evaluate(prev, next int) []string {
	return Crossed(prev, next, r.Thresholds)
}

// Names returns every achievement name referenced by a rule.
func Names() []string {
	var names []string
	for _, r := range All() {
		for _, t := range r.Thresholds {
			names = append(names, t.Achievement)
		}
	}
	return names
}

// Catalog is a read-only name and id index over the achievement table.
type Catalog struct {
	byName map[string]*achievement.Achievement
	byID   map[uuid.UUID]*achievement.Achievement
	all    []*achievement.Achievement
}

func NewCatalog(list []*achievement.Achievement) *Catalog {
	c := &Catalog{
		byName: make(map[string]*achievement.Achievement, len(list)),
		byID:   make(map[uuid.UUID]*achievement.Achievement, len(list)),
		all:    make([]*achievement.Achievement, 0, len(list)),
	}
	for _, a := range list {
		c.byName[a.Name] = a
		c.byID[a.ID] = a
		c.all = append(c.all, a)
	}
	sort.SliceStable(c.all, func(i, j int) bool {
		if c.all[i].Points != c.all[j].Points {
			return c.all[i].Points < c.all[j].Points
		}
		return c.all[i].Name < c.all[j].Name
	})
	return c
}

func (c *Catalog) Lookup(name string) (*achievement.Achievement, bool) {
	a, ok := c.byName[name]
	return a, ok
}

func (c *Catalog) ByID(id uuid.UUID) (*achievement.Achievement, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// All returns the catalog ordered by points, then name.
func (c *Catalog) All() []*achievement.Achievement {
	out := make([]*achievement.Achievement, len(c.all))
	copy(out, c.all)
	return out
}

func (c *Catalog) Len() int { return len(c.all) }

// Pending resolves the names crossed by rule against the catalog and drops
// those already held. Names missing from the catalog are returned in missing.
func Pending(c *Catalog, held map[uuid.UUID]bool, rule Rule, prev, next int) (grant []*achievement.Achievement, missing []string) {
	for _, name := range rule.Evaluate(prev, next) {
		a, ok := c.Lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		if held[a.ID] {
			continue
		}
		grant = append(grant, a)
	}
	return grant, missing
}
