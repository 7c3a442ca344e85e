package models

import (
	"time"
)

// GuildProfile is the membership directory's view of a user: display data and
// the roles they currently hold. JoinedAt is zero when the member record did
// not carry one.
type GuildProfile struct {
	DiscordID   int64
	DisplayName string
	AvatarURL   string
	RoleIDs     []string
	JoinedAt    time.Time
}

// LeaderboardEntry is a leaderboard row enriched with directory data for the
// dashboard.
type LeaderboardEntry struct {
	DiscordID int64  `json:"id,string"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar"`
	Level     int    `json:"level"`
	XP        int64  `json:"xp"`
}

// Identity is what the OAuth2 exchange yields about the authenticating user.
type Identity struct {
	DiscordID int64
	Username  string
	Avatar    string
}
