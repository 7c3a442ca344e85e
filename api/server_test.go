package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"levant/models"
	"levant/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockProgressionService is a mock implementation of service.ProgressionService
type mockProgressionService struct {
	mock.Mock
}

func (m *mockProgressionService) GrantXP(ctx context.Context, discordID int64, gain int64) (*models.User, error) {
	args := m.Called(ctx, discordID, gain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockProgressionService) EnsureUser(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockProgressionService) GetUserInfo(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockProgressionService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LeaderboardEntry), args.Error(1)
}

func (m *mockProgressionService) DisplayBadge(ctx context.Context, discordID int64) (string, error) {
	args := m.Called(ctx, discordID)
	return args.String(0), args.Error(1)
}

func (m *mockProgressionService) ChangeNickname(ctx context.Context, discordID int64, nickname string) error {
	args := m.Called(ctx, discordID, nickname)
	return args.Error(0)
}

func (m *mockProgressionService) Wipe(ctx context.Context, discordID int64) error {
	args := m.Called(ctx, discordID)
	return args.Error(0)
}

// mockIdentityProvider is a mock implementation of IdentityProvider
type mockIdentityProvider struct {
	mock.Mock
}

func (m *mockIdentityProvider) Exchange(ctx context.Context, code string) (*models.Identity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Identity), args.Error(1)
}

func newTestServer() (*Server, *mockProgressionService, *mockIdentityProvider) {
	svc := new(mockProgressionService)
	identity := new(mockIdentityProvider)
	server := NewServer(Config{
		Port:             "3000",
		FrontendURL:      "https://dash.example.com",
		AllowedOrigins:   []string{"https://dash.example.com"},
		LeaderboardLimit: 20,
	}, svc, identity)
	return server, svc, identity
}

func TestServer_Leaderboard(t *testing.T) {
	server, svc, _ := newTestServer()

	entries := []*models.LeaderboardEntry{
		{DiscordID: 111, Username: "alpha", AvatarURL: "https://cdn/a.png", Level: 10, XP: 1500},
		{DiscordID: 222, Username: "beta", AvatarURL: "https://cdn/b.png", Level: 5, XP: 505},
	}
	svc.On("Leaderboard", mock.Anything, 20).Return(entries, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/members/leaderboard", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "111", decoded[0]["id"])
	assert.Equal(t, "alpha", decoded[0]["username"])
	assert.Equal(t, float64(10), decoded[0]["level"])

	svc.AssertExpectations(t)
}

func TestServer_LeaderboardFailure(t *testing.T) {
	server, svc, _ := newTestServer()
	svc.On("Leaderboard", mock.Anything, 20).Return(nil, fmt.Errorf("db down"))

	req := httptest.NewRequest(http.MethodGet, "/api/members/leaderboard", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_UserInfo(t *testing.T) {
	server, svc, _ := newTestServer()

	joinedAt := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.On("GetUserInfo", mock.Anything, int64(123)).Return(&models.User{
		DiscordID: 123,
		XP:        505,
		Level:     5,
		JoinedAt:  joinedAt,
	}, nil)
	svc.On("DisplayBadge", mock.Anything, int64(123)).Return("Moderator", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/user-info/123", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "123", decoded["id"])
	assert.Equal(t, float64(5), decoded["level"])
	assert.Equal(t, float64(505), decoded["xp"])
	assert.Equal(t, "2023-04-01T12:00:00Z", decoded["joinedAt"])
	assert.Equal(t, "Moderator", decoded["badge"])

	svc.AssertExpectations(t)
}

func TestServer_UserInfo_InvalidID(t *testing.T) {
	server, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/user-info/not-a-number", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_UserInfo_BadgeFailureDegrades(t *testing.T) {
	server, svc, _ := newTestServer()

	svc.On("GetUserInfo", mock.Anything, int64(123)).Return(&models.User{
		DiscordID: 123,
		Level:     1,
		JoinedAt:  time.Now(),
	}, nil)
	svc.On("DisplayBadge", mock.Anything, int64(123)).Return("", fmt.Errorf("discord unavailable"))

	req := httptest.NewRequest(http.MethodGet, "/api/user-info/123", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	// Lookup still succeeds with an empty badge
	require.Equal(t, http.StatusOK, rec.Code)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "", decoded["badge"])
}

func TestServer_AuthRedirect(t *testing.T) {
	server, svc, identity := newTestServer()

	identity.On("Exchange", mock.Anything, "valid-code").Return(&models.Identity{
		DiscordID: 555,
		Username:  "gamma",
		Avatar:    "a1b2c3",
	}, nil)
	svc.On("EnsureUser", mock.Anything, int64(555)).Return(&models.User{DiscordID: 555, Level: 1}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/redirect?code=valid-code", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	// The dashboard reads the identity off the redirect query string.
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "dash.example.com", loc.Host)
	assert.Equal(t, "/dashboard.html", loc.Path)
	assert.Equal(t, "555", loc.Query().Get("uid"))
	assert.Equal(t, "gamma", loc.Query().Get("name"))
	assert.Equal(t, "https://cdn.discordapp.com/avatars/555/a1b2c3.png", loc.Query().Get("avatar"))

	svc.AssertExpectations(t)
	identity.AssertExpectations(t)
}

func TestServer_AuthRedirect_NoAvatarFallsBack(t *testing.T) {
	server, svc, identity := newTestServer()

	identity.On("Exchange", mock.Anything, "valid-code").Return(&models.Identity{
		DiscordID: 556,
		Username:  "delta",
	}, nil)
	svc.On("EnsureUser", mock.Anything, int64(556)).Return(&models.User{DiscordID: 556, Level: 1}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/redirect?code=valid-code", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, service.DefaultAvatarURL, loc.Query().Get("avatar"))
}

func TestServer_AuthRedirect_MissingCode(t *testing.T) {
	server, svc, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/redirect", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything)
}

func TestServer_AuthRedirect_ExchangeFailure(t *testing.T) {
	server, svc, identity := newTestServer()

	identity.On("Exchange", mock.Anything, "bad-code").Return(nil, fmt.Errorf("invalid grant"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/discord/redirect?code=bad-code", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	// Failed authentication creates nothing
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "EnsureUser", mock.Anything, mock.Anything)
}

func TestServer_UpdateNick(t *testing.T) {
	server, svc, _ := newTestServer()
	svc.On("ChangeNickname", mock.Anything, int64(123), "NewNick").Return(nil)

	body := strings.NewReader(`{"userId":"123","nickname":"NewNick"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/user/update-nick", body)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestServer_UpdateNick_Forbidden(t *testing.T) {
	server, svc, _ := newTestServer()
	svc.On("ChangeNickname", mock.Anything, int64(123), "Sneaky").Return(service.ErrNicknameForbidden)

	body := strings.NewReader(`{"userId":"123","nickname":"Sneaky"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/user/update-nick", body)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_UpdateNick_DiscordFailure(t *testing.T) {
	server, svc, _ := newTestServer()
	svc.On("ChangeNickname", mock.Anything, int64(123), "Nick").Return(fmt.Errorf("discord 500"))

	body := strings.NewReader(`{"userId":"123","nickname":"Nick"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/user/update-nick", body)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_UpdateNick_InvalidBody(t *testing.T) {
	server, _, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/user/update-nick", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Wipe(t *testing.T) {
	server, svc, _ := newTestServer()
	svc.On("Wipe", mock.Anything, int64(123)).Return(nil)

	body := strings.NewReader(`{"userId":"123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/danger/wipe", body)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestServer_CORS(t *testing.T) {
	server, svc, _ := newTestServer()
	svc.On("Leaderboard", mock.Anything, 20).Return([]*models.LeaderboardEntry{}, nil)

	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/members/leaderboard", nil)
		req.Header.Set("Origin", "https://dash.example.com")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/members/leaderboard", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/user/update-nick", nil)
		req.Header.Set("Origin", "https://dash.example.com")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	})
}
