package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"levant/api"
	"levant/bot"
	"levant/config"
	"levant/database"
	"levant/events"
	"levant/repository"
	"levant/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting levant...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// The Discord session is shared between the bot's gateway handlers and
	// the membership directory the service layer talks to.
	log.Println("Creating Discord session...")
	session, err := bot.NewSession(cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	directory := bot.NewMemberDirectory(session, cfg.DiscordGuildID)

	// Initialize services
	progressionService := service.NewProgressionService(uowFactory, directory, service.Config{
		LevelTable:   cfg.LevelTable,
		RolePolicy:   cfg.RolePolicy,
		BadgeRoles:   cfg.BadgeRoles,
		DefaultBadge: cfg.DefaultBadge,
	})

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		GuildID:    cfg.DiscordGuildID,
		LevelTable: cfg.LevelTable,
		XPCooldown: cfg.XPCooldown,
		XPGainMin:  cfg.XPGainMin,
		XPGainMax:  cfg.XPGainMax,
	}, session, progressionService, directory, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Initialize dashboard API
	identity := api.NewDiscordIdentityProvider(cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.OAuthRedirectURL())
	apiServer := api.NewServer(api.Config{
		Port:             cfg.HTTPPort,
		FrontendURL:      cfg.FrontendURL,
		AllowedOrigins:   cfg.AllowedOrigins,
		LeaderboardLimit: cfg.LeaderboardLimit,
	}, progressionService, identity)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- apiServer.Start()
	}()

	// Wait for context cancellation or a server failure
	log.Printf("Running in %s mode...", cfg.Environment)
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Printf("Dashboard API failed: %v", err)
		}
	}

	// Cleanup resources
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down dashboard API: %v", err)
	}

	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}
