package testutil

import (
	"time"

	"levant/models"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(discordID int64) *models.User {
	now := time.Now()
	return &models.User{
		DiscordID: discordID,
		XP:        0,
		JoinedAt:  now.Add(-30 * 24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateTestUserWithXP creates a test user with a specific XP counter
func CreateTestUserWithXP(discordID int64, xp int64) *models.User {
	user := CreateTestUser(discordID)
	user.XP = xp
	return user
}
