package bot

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"levant/events"
	"levant/leveling"
	"levant/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	GuildID    string
	LevelTable leveling.Table
	XPCooldown time.Duration
	XPGainMin  int64
	XPGainMax  int64
}

type Bot struct {
	config             Config
	session            *discordgo.Session
	progressionService service.ProgressionService
	directory          service.MemberDirectory
	eventBus           *events.Bus
	cooldowns          *CooldownTracker
	done               chan struct{}
}

// NewSession creates a discord session with the gateway intents the bot needs
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates
	return dg, nil
}

func New(config Config, session *discordgo.Session, progressionService service.ProgressionService, directory service.MemberDirectory, eventBus *events.Bus) (*Bot, error) {
	bot := &Bot{
		config:             config,
		session:            session,
		progressionService: progressionService,
		directory:          directory,
		eventBus:           eventBus,
		cooldowns:          NewCooldownTracker(config.XPCooldown),
		done:               make(chan struct{}),
	}

	// Register gateway handlers
	session.AddHandler(bot.handleMessageCreate)
	session.AddHandler(bot.handleVoiceStateUpdate)

	// Subscribe to progression events for role updates
	eventBus.Subscribe(events.EventTypeLevelUp, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.LevelUpEvent); ok {
			bot.applyRoleChange(ctx, e.DiscordID, e.RoleChange)
		}
	})
	eventBus.Subscribe(events.EventTypeUserWiped, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.UserWipedEvent); ok {
			bot.revokeLevelRoles(ctx, e.DiscordID)
		}
	})

	// Open websocket connection
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Start periodic cleanup of expired cooldown entries
	go bot.startCooldownSweep()

	return bot, nil
}

func (b *Bot) Close() error {
	close(b.done)
	return b.session.Close()
}

// handleMessageCreate credits XP for guild messages, at most once per
// cooldown window per author.
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	// DMs carry no guild ID and never count
	if m.GuildID != b.config.GuildID {
		return
	}

	b.creditActivity(m.Author.ID)
}

// handleVoiceStateUpdate credits XP when a member joins a voice channel.
// Moves between channels and mute/deafen toggles do not count.
func (b *Bot) handleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.GuildID != b.config.GuildID {
		return
	}
	if v.ChannelID == "" {
		return // leave
	}
	if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != "" {
		return // move or state toggle inside a channel
	}
	if v.Member != nil && v.Member.User != nil && v.Member.User.Bot {
		return
	}

	b.creditActivity(v.UserID)
}

// creditActivity runs the shared gain pipeline for one activity event
func (b *Bot) creditActivity(userID string) {
	discordID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing Discord ID %s: %v", userID, err)
		return
	}

	if !b.cooldowns.TryAcquire(discordID, time.Now()) {
		return
	}

	gain := b.randomGain()
	if _, err := b.progressionService.GrantXP(context.Background(), discordID, gain); err != nil {
		log.Errorf("Failed to grant %d XP to user %d: %v", gain, discordID, err)
	}
}

// randomGain picks a gain uniformly from the configured inclusive range
func (b *Bot) randomGain() int64 {
	if b.config.XPGainMax <= b.config.XPGainMin {
		return b.config.XPGainMin
	}
	return b.config.XPGainMin + rand.Int63n(b.config.XPGainMax-b.config.XPGainMin+1)
}

// applyRoleChange reconciles a member's tier roles after a level up. Each
// grant and revocation is attempted independently; Discord treats repeats as
// no-ops, so a partial failure heals on the next level up.
func (b *Bot) applyRoleChange(ctx context.Context, discordID int64, change leveling.RoleChange) {
	for _, roleID := range change.Add {
		if err := b.directory.AddRole(ctx, discordID, roleID); err != nil {
			log.Errorf("Failed to grant role %s to user %d: %v", roleID, discordID, err)
		} else {
			log.Infof("Granted role %s to user %d", roleID, discordID)
		}
	}
	for _, roleID := range change.Remove {
		if err := b.directory.RemoveRole(ctx, discordID, roleID); err != nil {
			log.Errorf("Failed to revoke role %s from user %d: %v", roleID, discordID, err)
		}
	}
}

// revokeLevelRoles strips every tier role after a wipe
func (b *Bot) revokeLevelRoles(ctx context.Context, discordID int64) {
	for _, roleID := range b.config.LevelTable.RoleIDs() {
		if err := b.directory.RemoveRole(ctx, discordID, roleID); err != nil {
			log.Errorf("Failed to revoke role %s from wiped user %d: %v", roleID, discordID, err)
		}
	}
	log.Infof("Revoked tier roles from wiped user %d", discordID)
}

// startCooldownSweep runs periodic cleanup of expired cooldown entries
func (b *Bot) startCooldownSweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.cooldowns.Sweep(time.Now())
		case <-b.done:
			return
		}
	}
}
