package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"levant/events"
	"levant/leveling"
	"levant/models"
)

// DefaultAvatarURL is shown for users the directory cannot resolve.
const DefaultAvatarURL = "https://cdn.discordapp.com/embed/avatars/0.png"

// Config holds the progression rules the service applies.
type Config struct {
	LevelTable   leveling.Table
	RolePolicy   leveling.RolePolicy
	BadgeRoles   []leveling.BadgeRole
	DefaultBadge string
}

// progressionService implements the ProgressionService interface
type progressionService struct {
	uowFactory UnitOfWorkFactory
	directory  MemberDirectory
	cfg        Config
}

// NewProgressionService creates a new progression service
func NewProgressionService(uowFactory UnitOfWorkFactory, directory MemberDirectory, cfg Config) ProgressionService {
	return &progressionService{
		uowFactory: uowFactory,
		directory:  directory,
		cfg:        cfg,
	}
}

// GrantXP credits a gain to a user, creating the record lazily. The XP write
// commits first; any level-up role change is published through the
// transactional bus and applied by subscribers after the commit.
func (s *progressionService) GrantXP(ctx context.Context, discordID int64, gain int64) (*models.User, error) {
	if gain <= 0 {
		return nil, fmt.Errorf("gain must be positive, got %d", gain)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		user, err = uow.UserRepository().Create(ctx, discordID, s.resolveJoinDate(ctx, discordID))
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		uow.EventBus().Publish(events.UserCreatedEvent{DiscordID: discordID})
	}

	prevLevel := s.cfg.LevelTable.TierFor(user.XP).Level
	res := s.cfg.LevelTable.ApplyGain(user.XP, prevLevel, gain, s.cfg.RolePolicy)

	if err := uow.UserRepository().UpdateXP(ctx, discordID, res.XP); err != nil {
		return nil, fmt.Errorf("failed to update XP: %w", err)
	}

	if res.LeveledUp {
		uow.EventBus().Publish(events.LevelUpEvent{
			DiscordID:  discordID,
			OldLevel:   prevLevel,
			NewLevel:   res.Level,
			RoleChange: res.RoleChange,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.XP = res.XP
	user.Level = res.Level
	return user, nil
}

// EnsureUser creates the record on first authentication and backfills a
// missing join timestamp.
func (s *progressionService) EnsureUser(ctx context.Context, discordID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	switch {
	case user == nil:
		user, err = uow.UserRepository().Create(ctx, discordID, s.resolveJoinDate(ctx, discordID))
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		uow.EventBus().Publish(events.UserCreatedEvent{DiscordID: discordID})
	case user.JoinedAt.IsZero():
		joinedAt := s.resolveJoinDate(ctx, discordID)
		if err := uow.UserRepository().SetJoinedAt(ctx, discordID, joinedAt); err != nil {
			return nil, fmt.Errorf("failed to backfill join date: %w", err)
		}
		user.JoinedAt = joinedAt
	default:
		// Nothing to write; the deferred rollback closes the transaction.
		user.Level = s.cfg.LevelTable.TierFor(user.XP).Level
		return user, nil
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.Level = s.cfg.LevelTable.TierFor(user.XP).Level
	return user, nil
}

// GetUserInfo returns a user's progression, or fresh defaults for an ID that
// has never been seen.
func (s *progressionService) GetUserInfo(ctx context.Context, discordID int64) (*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return &models.User{
			DiscordID: discordID,
			XP:        0,
			Level:     s.cfg.LevelTable.TierFor(0).Level,
			JoinedAt:  time.Now().UTC(),
		}, nil
	}

	user.Level = s.cfg.LevelTable.TierFor(user.XP).Level
	return user, nil
}

// Leaderboard returns the top users by XP enriched with display names and
// avatars. Directory failures degrade to placeholders, never to an error.
func (s *progressionService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetTopByXP(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	entries := make([]*models.LeaderboardEntry, 0, len(users))
	for _, user := range users {
		entry := &models.LeaderboardEntry{
			DiscordID: user.DiscordID,
			Username:  "Unknown User",
			AvatarURL: DefaultAvatarURL,
			Level:     s.cfg.LevelTable.TierFor(user.XP).Level,
			XP:        user.XP,
		}

		profile, err := s.directory.Profile(ctx, user.DiscordID)
		if err != nil {
			log.WithFields(log.Fields{
				"discordID": user.DiscordID,
				"error":     err,
			}).Warn("Failed to resolve member profile for leaderboard")
		} else {
			entry.Username = profile.DisplayName
			entry.AvatarURL = profile.AvatarURL
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// DisplayBadge resolves which held badge role to show for a member.
func (s *progressionService) DisplayBadge(ctx context.Context, discordID int64) (string, error) {
	profile, err := s.directory.Profile(ctx, discordID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve member profile: %w", err)
	}
	return leveling.DisplayRoleName(profile.RoleIDs, s.cfg.BadgeRoles, s.cfg.DefaultBadge), nil
}

// ChangeNickname relays a dashboard nickname change to the guild.
func (s *progressionService) ChangeNickname(ctx context.Context, discordID int64, nickname string) error {
	if err := s.directory.SetNickname(ctx, discordID, nickname); err != nil {
		return fmt.Errorf("failed to set nickname: %w", err)
	}
	return nil
}

// Wipe destroys a user's record. The wipe event fires once, after the delete
// commits, and subscribers revoke the level-derived roles.
func (s *progressionService) Wipe(ctx context.Context, discordID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	found, err := uow.UserRepository().Delete(ctx, discordID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if found {
		uow.EventBus().Publish(events.UserWipedEvent{DiscordID: discordID})
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// resolveJoinDate captures the guild join time at first sight of a user. A
// directory miss is non-fatal; record-creation time stands in.
func (s *progressionService) resolveJoinDate(ctx context.Context, discordID int64) time.Time {
	profile, err := s.directory.Profile(ctx, discordID)
	if err != nil || profile.JoinedAt.IsZero() {
		if err != nil {
			log.WithFields(log.Fields{
				"discordID": discordID,
				"error":     err,
			}).Warn("Failed to resolve guild join date, using current time")
		}
		return time.Now().UTC()
	}
	return profile.JoinedAt
}
