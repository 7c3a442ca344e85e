package service

import (
	"context"
	"time"

	"levant/events"
	"levant/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, discordID int64, joinedAt time.Time) (*models.User, error) {
	args := m.Called(ctx, discordID, joinedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateXP(ctx context.Context, discordID int64, xp int64) error {
	args := m.Called(ctx, discordID, xp)
	return args.Error(0)
}

func (m *MockUserRepository) SetJoinedAt(ctx context.Context, discordID int64, joinedAt time.Time) error {
	args := m.Called(ctx, discordID, joinedAt)
	return args.Error(0)
}

func (m *MockUserRepository) GetTopByXP(ctx context.Context, limit int) ([]*models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, discordID int64) (bool, error) {
	args := m.Called(ctx, discordID)
	return args.Bool(0), args.Error(1)
}

// MockMemberDirectory is a mock implementation of MemberDirectory
type MockMemberDirectory struct {
	mock.Mock
}

func (m *MockMemberDirectory) Profile(ctx context.Context, discordID int64) (*models.GuildProfile, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GuildProfile), args.Error(1)
}

func (m *MockMemberDirectory) AddRole(ctx context.Context, discordID int64, roleID string) error {
	args := m.Called(ctx, discordID, roleID)
	return args.Error(0)
}

func (m *MockMemberDirectory) RemoveRole(ctx context.Context, discordID int64, roleID string) error {
	args := m.Called(ctx, discordID, roleID)
	return args.Error(0)
}

func (m *MockMemberDirectory) SetNickname(ctx context.Context, discordID int64, nickname string) error {
	args := m.Called(ctx, discordID, nickname)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher that records
// published events for assertions
type MockEventPublisher struct {
	mock.Mock
	Published []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
	m.Published = append(m.Published, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	userRepo  UserRepository
	publisher EventPublisher
}

// SetRepositories wires the repositories this unit of work hands out
func (m *MockUnitOfWork) SetRepositories(userRepo UserRepository, publisher EventPublisher) {
	m.userRepo = userRepo
	m.publisher = publisher
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.publisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
