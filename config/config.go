package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"levant/leveling"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// OAuth2 configuration for the dashboard login flow
	OAuthClientID     string
	OAuthClientSecret string

	// Database configuration
	DatabaseURL string

	// HTTP API configuration
	HTTPPort       string
	BackendURL     string
	FrontendURL    string
	AllowedOrigins []string

	// Progression configuration
	LevelTable       leveling.Table
	RolePolicy       leveling.RolePolicy
	BadgeRoles       []leveling.BadgeRole
	DefaultBadge     string
	XPCooldown       time.Duration
	XPGainMin        int64
	XPGainMax        int64
	LeaderboardLimit int

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		// OAuth2
		OAuthClientID:     os.Getenv("DISCORD_CLIENT_ID"),
		OAuthClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// HTTP defaults
		HTTPPort:    "3000",
		BackendURL:  os.Getenv("BACKEND_URL"),
		FrontendURL: os.Getenv("FRONTEND_URL"),

		// Progression defaults
		RolePolicy:       leveling.RolePolicyExclusive,
		DefaultBadge:     "Member",
		XPCooldown:       60 * time.Second,
		XPGainMin:        15,
		XPGainMax:        24,
		LeaderboardLimit: 20,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if port := os.Getenv("PORT"); port != "" {
		config.HTTPPort = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, origin)
			}
		}
	}
	if policy := os.Getenv("ROLE_POLICY"); policy != "" {
		switch leveling.RolePolicy(policy) {
		case leveling.RolePolicyExclusive, leveling.RolePolicyStack:
			config.RolePolicy = leveling.RolePolicy(policy)
		default:
			return nil, fmt.Errorf("invalid ROLE_POLICY %q (want %q or %q)", policy, leveling.RolePolicyExclusive, leveling.RolePolicyStack)
		}
	}
	if cooldown := os.Getenv("XP_COOLDOWN_SECONDS"); cooldown != "" {
		if secs, err := strconv.Atoi(cooldown); err == nil && secs >= 0 {
			config.XPCooldown = time.Duration(secs) * time.Second
		}
	}
	if minGain := os.Getenv("XP_GAIN_MIN"); minGain != "" {
		if parsed, err := strconv.ParseInt(minGain, 10, 64); err == nil && parsed > 0 {
			config.XPGainMin = parsed
		}
	}
	if maxGain := os.Getenv("XP_GAIN_MAX"); maxGain != "" {
		if parsed, err := strconv.ParseInt(maxGain, 10, 64); err == nil && parsed > 0 {
			config.XPGainMax = parsed
		}
	}
	if limit := os.Getenv("LEADERBOARD_LIMIT"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
			config.LeaderboardLimit = parsed
		}
	}
	if config.XPGainMax < config.XPGainMin {
		return nil, fmt.Errorf("XP_GAIN_MAX (%d) must be >= XP_GAIN_MIN (%d)", config.XPGainMax, config.XPGainMin)
	}

	// Level table: "level:xpThreshold:roleID" entries, comma separated.
	// Falls back to the stock curve with no role IDs bound.
	tiers := leveling.DefaultTable()
	if spec := os.Getenv("LEVEL_ROLES"); spec != "" {
		parsed, err := parseLevelRoles(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid LEVEL_ROLES: %w", err)
		}
		tiers = parsed
	}
	table, err := leveling.NewTable(tiers)
	if err != nil {
		return nil, fmt.Errorf("invalid level table: %w", err)
	}
	config.LevelTable = table

	// Badge roles: "roleID:Name" entries, comma separated, highest
	// precedence first.
	if spec := os.Getenv("BADGE_ROLES"); spec != "" {
		badges, err := parseBadgeRoles(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid BADGE_ROLES: %w", err)
		}
		config.BadgeRoles = badges
	}
	if badge := os.Getenv("DEFAULT_BADGE"); badge != "" {
		config.DefaultBadge = badge
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DiscordGuildID == "" {
			return nil, fmt.Errorf("DISCORD_GUILD_ID is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// OAuthRedirectURL is the callback registered with Discord for the dashboard
// login flow.
func (c *Config) OAuthRedirectURL() string {
	return c.BackendURL + "/api/auth/discord/redirect"
}

func parseLevelRoles(spec string) ([]leveling.Tier, error) {
	var tiers []leveling.Tier
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("entry %q: want level:xpThreshold:roleID", entry)
		}
		level, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad level: %w", entry, err)
		}
		threshold, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: bad threshold: %w", entry, err)
		}
		tiers = append(tiers, leveling.Tier{
			Level:       level,
			XPThreshold: threshold,
			RoleID:      strings.TrimSpace(parts[2]),
		})
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no tiers defined")
	}
	return tiers, nil
}

func parseBadgeRoles(spec string) ([]leveling.BadgeRole, error) {
	var badges []leveling.BadgeRole
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, name, ok := strings.Cut(entry, ":")
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("entry %q: want roleID:Name", entry)
		}
		badges = append(badges, leveling.BadgeRole{ID: id, Name: name})
	}
	return badges, nil
}
