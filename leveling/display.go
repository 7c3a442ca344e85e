package leveling

// BadgeRole is a named staff or community role used for dashboard display.
// These are unrelated to the XP tiers: the level table decides what to grant,
// the badge list decides what to show.
type BadgeRole struct {
	ID   string
	Name string
}

// DisplayRoleName picks the badge to show for a member. The priority list is
// ordered highest-precedence first and the first entry whose ID the member
// holds wins. Members holding none of the listed roles get the fallback label.
func DisplayRoleName(heldRoleIDs []string, priority []BadgeRole, fallback string) string {
	held := make(map[string]struct{}, len(heldRoleIDs))
	for _, id := range heldRoleIDs {
		held[id] = struct{}{}
	}

	for _, role := range priority {
		if _, ok := held[role.ID]; ok {
			return role.Name
		}
	}
	return fallback
}
