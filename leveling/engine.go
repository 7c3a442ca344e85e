package leveling

// RolePolicy selects how tier roles are granted on level-up.
type RolePolicy string

const (
	// RolePolicyExclusive keeps exactly one tier role on a member: every
	// table role is revoked before the new tier's role is granted.
	RolePolicyExclusive RolePolicy = "exclusive"

	// RolePolicyStack grants the new tier's role and leaves earlier tier
	// roles in place as badges.
	RolePolicyStack RolePolicy = "stack"
)

// RoleChange is the set of role grants and revocations implied by a level-up.
// Applying it is the caller's problem; this package does no I/O.
type RoleChange struct {
	Add    []string
	Remove []string
}

// Empty reports whether the change carries no grants or revocations.
func (c RoleChange) Empty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0
}

// Result is the outcome of applying an XP gain.
type Result struct {
	XP         int64
	Level      int
	LeveledUp  bool
	RoleChange RoleChange
}

// ApplyGain adds gain to the current XP and resolves the resulting tier.
// A level-up occurs only when the resolved tier's level exceeds the previous
// level; XP never decreases and the level never regresses. On level-up the
// result carries the role change dictated by the policy.
func (t Table) ApplyGain(currentXP int64, currentLevel int, gain int64, policy RolePolicy) Result {
	newXP := currentXP + gain
	tier := t.TierFor(newXP)

	res := Result{XP: newXP, Level: currentLevel}
	if tier.Level <= currentLevel {
		return res
	}

	res.Level = tier.Level
	res.LeveledUp = true
	res.RoleChange = t.roleChangeFor(tier, policy)
	return res
}

func (t Table) roleChangeFor(tier Tier, policy RolePolicy) RoleChange {
	var change RoleChange
	if policy == RolePolicyExclusive {
		for _, id := range t.RoleIDs() {
			if id != tier.RoleID {
				change.Remove = append(change.Remove, id)
			}
		}
	}
	if tier.RoleID != "" {
		change.Add = append(change.Add, tier.RoleID)
	}
	return change
}
