package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"levant/models"
	"levant/service"

	"github.com/bwmarrin/discordgo"
)

// memberDirectory adapts a discordgo session to the membership directory the
// progression service depends on. All operations target a single guild.
type memberDirectory struct {
	session *discordgo.Session
	guildID string
}

// NewMemberDirectory creates a directory bound to the configured guild
func NewMemberDirectory(session *discordgo.Session, guildID string) service.MemberDirectory {
	return &memberDirectory{
		session: session,
		guildID: guildID,
	}
}

// Profile returns display data and held roles for a member. When the user has
// left the guild it falls back to the bare Discord user, with no roles and no
// join date.
func (d *memberDirectory) Profile(ctx context.Context, discordID int64) (*models.GuildProfile, error) {
	id := strconv.FormatInt(discordID, 10)

	member, err := d.session.GuildMember(d.guildID, id, discordgo.WithContext(ctx))
	if err == nil {
		return &models.GuildProfile{
			DiscordID:   discordID,
			DisplayName: member.DisplayName(),
			AvatarURL:   member.AvatarURL(""),
			RoleIDs:     member.Roles,
			JoinedAt:    member.JoinedAt,
		}, nil
	}
	if !isUnknownMember(err) {
		return nil, fmt.Errorf("failed to fetch guild member %d: %w", discordID, err)
	}

	user, err := d.session.User(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", discordID, err)
	}

	return &models.GuildProfile{
		DiscordID:   discordID,
		DisplayName: user.Username,
		AvatarURL:   user.AvatarURL(""),
	}, nil
}

// AddRole grants a role to a guild member
func (d *memberDirectory) AddRole(ctx context.Context, discordID int64, roleID string) error {
	id := strconv.FormatInt(discordID, 10)
	if err := d.session.GuildMemberRoleAdd(d.guildID, id, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add role %s to user %d: %w", roleID, discordID, err)
	}
	return nil
}

// RemoveRole revokes a role from a guild member
func (d *memberDirectory) RemoveRole(ctx context.Context, discordID int64, roleID string) error {
	id := strconv.FormatInt(discordID, 10)
	if err := d.session.GuildMemberRoleRemove(d.guildID, id, roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to remove role %s from user %d: %w", roleID, discordID, err)
	}
	return nil
}

// SetNickname changes a member's nickname. Discord refuses the change for the
// guild owner and for members above the bot in the role hierarchy; those come
// back as service.ErrNicknameForbidden so the API can answer 403.
func (d *memberDirectory) SetNickname(ctx context.Context, discordID int64, nickname string) error {
	id := strconv.FormatInt(discordID, 10)

	err := d.session.GuildMemberNickname(d.guildID, id, nickname, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}

	switch {
	case isUnknownMember(err):
		return service.ErrNotInGuild
	case isMissingPermissions(err):
		return service.ErrNicknameForbidden
	}
	return fmt.Errorf("failed to change nickname for user %d: %w", discordID, err)
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) &&
		restErr.Message != nil &&
		restErr.Message.Code == discordgo.ErrCodeUnknownMember
}

func isMissingPermissions(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) &&
		restErr.Message != nil &&
		restErr.Message.Code == discordgo.ErrCodeMissingPermissions
}
