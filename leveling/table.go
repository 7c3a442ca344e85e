package leveling

import (
	"fmt"
	"sort"
)

// Tier maps a level number to the XP required to reach it and the Discord
// role granted at that level.
type Tier struct {
	Level       int
	XPThreshold int64
	RoleID      string
}

// Table is the ordered set of level tiers. Levels and thresholds are strictly
// increasing, so any XP value resolves to exactly one tier.
type Table []Tier

// NewTable validates and returns a level table. Tiers may be passed in any
// order; the result is sorted by threshold.
func NewTable(tiers []Tier) (Table, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("level table must have at least one tier")
	}

	t := make(Table, len(tiers))
	copy(t, tiers)
	sort.Slice(t, func(i, j int) bool { return t[i].XPThreshold < t[j].XPThreshold })

	for i := range t {
		if t[i].XPThreshold < 0 {
			return nil, fmt.Errorf("tier %d has negative XP threshold %d", t[i].Level, t[i].XPThreshold)
		}
		if i == 0 {
			continue
		}
		if t[i].XPThreshold == t[i-1].XPThreshold {
			return nil, fmt.Errorf("duplicate XP threshold %d", t[i].XPThreshold)
		}
		if t[i].Level <= t[i-1].Level {
			return nil, fmt.Errorf("tier levels must increase with thresholds: level %d follows level %d", t[i].Level, t[i-1].Level)
		}
	}

	return t, nil
}

// DefaultTable returns the stock progression curve. Role IDs are left empty;
// they come from deployment configuration.
func DefaultTable() Table {
	return Table{
		{Level: 1, XPThreshold: 0},
		{Level: 5, XPThreshold: 500},
		{Level: 10, XPThreshold: 1500},
		{Level: 20, XPThreshold: 3500},
		{Level: 30, XPThreshold: 7500},
		{Level: 40, XPThreshold: 15000},
		{Level: 50, XPThreshold: 30000},
		{Level: 75, XPThreshold: 60000},
		{Level: 100, XPThreshold: 100000},
	}
}

// TierFor resolves the highest tier whose threshold is at or below xp.
// XP below every threshold resolves to the lowest tier, which acts as the
// floor for brand-new members.
func (t Table) TierFor(xp int64) Tier {
	current := t[0]
	for _, tier := range t {
		if tier.XPThreshold > xp {
			break
		}
		current = tier
	}
	return current
}

// RoleIDs returns every non-empty role ID in the table, in tier order.
func (t Table) RoleIDs() []string {
	ids := make([]string, 0, len(t))
	for _, tier := range t {
		if tier.RoleID != "" {
			ids = append(ids, tier.RoleID)
		}
	}
	return ids
}
