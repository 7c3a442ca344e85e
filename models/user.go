package models

import (
	"time"
)

// User represents a guild member's XP progression record
type User struct {
	DiscordID int64     `db:"discord_id"`
	XP        int64     `db:"xp"`
	Level     int       `db:"-"` // Derived from XP via the level table, never persisted
	JoinedAt  time.Time `db:"joined_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
