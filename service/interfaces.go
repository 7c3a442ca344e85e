package service

import (
	"context"
	"errors"
	"time"

	"levant/events"
	"levant/models"
)

// Nickname change refusals the dashboard surfaces as 403 rather than 500.
var (
	// ErrNicknameForbidden is returned when the target is the guild owner or
	// sits above the bot in the role hierarchy.
	ErrNicknameForbidden = errors.New("nickname change not permitted")

	// ErrNotInGuild is returned when the user has no membership in the
	// configured guild.
	ErrNotInGuild = errors.New("user is not a guild member")
)

// UserRepository defines the interface for progression data access
type UserRepository interface {
	// GetByDiscordID retrieves a user by their Discord ID, nil when absent
	GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error)

	// Create creates a new user record with zero XP
	Create(ctx context.Context, discordID int64, joinedAt time.Time) (*models.User, error)

	// UpdateXP sets a user's XP counter
	UpdateXP(ctx context.Context, discordID int64, xp int64) error

	// SetJoinedAt backfills the join timestamp, only when it is missing
	SetJoinedAt(ctx context.Context, discordID int64, joinedAt time.Time) error

	// GetTopByXP returns the highest-XP users, descending
	GetTopByXP(ctx context.Context, limit int) ([]*models.User, error)

	// Delete removes a user record, reporting whether one existed
	Delete(ctx context.Context, discordID int64) (bool, error)
}

// MemberDirectory is the guild membership collaborator: lookups, role
// grants/revocations and nickname changes. Role operations are idempotent on
// the Discord side; granting a held role is a no-op.
type MemberDirectory interface {
	// Profile returns display data and held roles for a member, falling
	// back to the bare Discord user when they left the guild
	Profile(ctx context.Context, discordID int64) (*models.GuildProfile, error)

	// AddRole grants a role to a guild member
	AddRole(ctx context.Context, discordID int64, roleID string) error

	// RemoveRole revokes a role from a guild member
	RemoveRole(ctx context.Context, discordID int64, roleID string) error

	// SetNickname changes a member's nickname, guarding owner and
	// hierarchy constraints
	SetNickname(ctx context.Context, discordID int64, nickname string) error
}

// ProgressionService defines the interface for XP and level operations
type ProgressionService interface {
	// GrantXP credits a gain to a user, creating the record lazily, and
	// reports the resulting state. Role changes ride the event bus after
	// commit; their failure never undoes the XP write.
	GrantXP(ctx context.Context, discordID int64, gain int64) (*models.User, error)

	// EnsureUser creates the record on first authentication and backfills
	// a missing join timestamp
	EnsureUser(ctx context.Context, discordID int64) (*models.User, error)

	// GetUserInfo returns a user's progression, or fresh defaults for an
	// ID that has never been seen
	GetUserInfo(ctx context.Context, discordID int64) (*models.User, error)

	// Leaderboard returns the top users by XP enriched with directory data
	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)

	// DisplayBadge resolves which held badge role to show for a member
	DisplayBadge(ctx context.Context, discordID int64) (string, error)

	// ChangeNickname relays a dashboard nickname change to the guild
	ChangeNickname(ctx context.Context, discordID int64, nickname string) error

	// Wipe destroys a user's record and triggers role revocation
	Wipe(ctx context.Context, discordID int64) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// UserRepository returns the user repository bound to the transaction
	UserRepository() UserRepository

	// EventBus returns the transactional event publisher
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
