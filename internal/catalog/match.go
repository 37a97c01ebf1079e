package catalog

import (
	"fmt"
	"slices"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

// Attribute names a profile field in fallback priority order.
type Attribute string

const (
	AttrCategory  Attribute = "category"
	AttrFranchise Attribute = "franchise"
	AttrSize      Attribute = "size"
	AttrAgeBand   Attribute = "age_band"
	AttrSegment   Attribute = "segment"
	AttrNewStore  Attribute = "new_store"
)

// Priority is the order in which attributes are relaxed when no exact key
// exists: the last attribute is dropped first.
var Priority = []Attribute{AttrCategory, AttrFranchise, AttrSize, AttrAgeBand, AttrSegment, AttrNewStore}

// MatchResult is the persona chosen for a profile. Agreed lists the prefix of
// Priority the persona shares with the profile.
type MatchResult struct {
	Persona models.Persona `json:"persona"`
	Exact   bool           `json:"exact"`
	Agreed  []Attribute    `json:"agreed"`
}

func agrees(a Attribute, p, q models.StoreProfile) bool {
	switch a {
	case AttrCategory:
		return p.Category == q.Category
	case AttrFranchise:
		return p.Franchise == q.Franchise
	case AttrSize:
		return p.Size == q.Size
	case AttrAgeBand:
		return p.AgeBand == q.AgeBand
	case AttrSegment:
		return p.Segment == q.Segment
	case AttrNewStore:
		return p.NewStore == q.NewStore
	}
	return false
}

// Match finds the persona for profile: an exact key hit, or else the first
// persona in catalog order sharing the longest prefix of Priority. A persona
// must share at least the business category.
func (c *Catalog) Match(profile models.StoreProfile) (MatchResult, error) {
	if c.Len() == 0 {
		return MatchResult{}, ErrCatalogUnavailable
	}
	if p, ok := c.Lookup(profile.Key()); ok {
		return MatchResult{Persona: p, Exact: true, Agreed: slices.Clone(Priority)}, nil
	}

	best, bestLen := -1, 0
	for i, p := range c.personas {
		n := 0
		for _, a := range Priority {
			if !agrees(a, p.Profile, profile) {
				break
			}
			n++
		}
		if n > bestLen {
			best, bestLen = i, n
		}
	}
	if best < 0 {
		return MatchResult{}, fmt.Errorf("%w: %s", ErrNoMatchFound, profile.Key())
	}
	return MatchResult{
		Persona: c.personas[best],
		Agreed:  slices.Clone(Priority[:bestLen]),
	}, nil
}
