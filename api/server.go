package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"levant/models"
	"levant/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds dashboard API configuration
type Config struct {
	Port             string
	FrontendURL      string
	AllowedOrigins   []string
	LeaderboardLimit int
}

// Server is the dashboard HTTP API
type Server struct {
	config             Config
	progressionService service.ProgressionService
	identity           IdentityProvider
	httpServer         *http.Server
}

// NewServer creates the dashboard API server
func NewServer(config Config, progressionService service.ProgressionService, identity IdentityProvider) *Server {
	s := &Server{
		config:             config,
		progressionService: progressionService,
		identity:           identity,
	}
	s.httpServer = &http.Server{
		Addr:         ":" + config.Port,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree. Exposed separately so handler tests can run
// against it without a listener.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.config.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Get("/members/leaderboard", s.handleLeaderboard)
		r.Get("/auth/discord/redirect", s.handleAuthRedirect)
		r.Get("/user-info/{id}", s.handleUserInfo)
		r.Post("/user/update-nick", s.handleUpdateNick)
		r.Post("/danger/wipe", s.handleWipe)
	})

	return r
}

// Start begins serving and blocks until the listener closes
func (s *Server) Start() error {
	log.Infof("Dashboard API listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes the listener
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.progressionService.Leaderboard(r.Context(), s.config.LeaderboardLimit)
	if err != nil {
		log.Errorf("Failed to build leaderboard: %v", err)
		http.Error(w, "Failed to fetch leaderboard", http.StatusInternalServerError)
		return
	}

	writeJSON(w, entries)
}

// handleAuthRedirect completes the OAuth2 login: code exchange, identity
// fetch, get-or-create of the progression record, then a redirect to the
// dashboard. Identity failure mutates nothing.
func (s *Server) handleAuthRedirect(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	identity, err := s.identity.Exchange(r.Context(), code)
	if err != nil {
		log.Errorf("OAuth2 exchange failed: %v", err)
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	if _, err := s.progressionService.EnsureUser(r.Context(), identity.DiscordID); err != nil {
		log.Errorf("Failed to ensure user %d after login: %v", identity.DiscordID, err)
		http.Error(w, "Failed to initialize account", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, s.dashboardURL(identity), http.StatusFound)
}

// dashboardURL carries the authenticated identity to the dashboard page in
// the query string, where the frontend reads it.
func (s *Server) dashboardURL(identity *models.Identity) string {
	q := url.Values{}
	q.Set("uid", strconv.FormatInt(identity.DiscordID, 10))
	q.Set("name", identity.Username)
	q.Set("avatar", identityAvatarURL(identity))
	return s.config.FrontendURL + "/dashboard.html?" + q.Encode()
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	discordID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	user, err := s.progressionService.GetUserInfo(r.Context(), discordID)
	if err != nil {
		log.Errorf("Failed to fetch user info for %d: %v", discordID, err)
		http.Error(w, "Failed to fetch user info", http.StatusInternalServerError)
		return
	}

	badge, err := s.progressionService.DisplayBadge(r.Context(), discordID)
	if err != nil {
		// Leave the badge out rather than fail the whole lookup
		log.Warnf("Failed to resolve badge for %d: %v", discordID, err)
	}

	writeJSON(w, map[string]any{
		"id":       strconv.FormatInt(user.DiscordID, 10),
		"level":    user.Level,
		"xp":       user.XP,
		"joinedAt": user.JoinedAt.UTC().Format(time.RFC3339),
		"badge":    badge,
	})
}

type updateNickRequest struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

func (s *Server) handleUpdateNick(w http.ResponseWriter, r *http.Request) {
	var req updateNickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	discordID, err := strconv.ParseInt(req.UserID, 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := s.progressionService.ChangeNickname(r.Context(), discordID, req.Nickname); err != nil {
		switch {
		case errors.Is(err, service.ErrNicknameForbidden), errors.Is(err, service.ErrNotInGuild):
			http.Error(w, "Nickname change not permitted", http.StatusForbidden)
		default:
			log.Errorf("Failed to change nickname for %d: %v", discordID, err)
			http.Error(w, "Failed to change nickname", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type wipeRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	var req wipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	discordID, err := strconv.ParseInt(req.UserID, 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := s.progressionService.Wipe(r.Context(), discordID); err != nil {
		log.Errorf("Failed to wipe user %d: %v", discordID, err)
		http.Error(w, "Failed to wipe user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}
