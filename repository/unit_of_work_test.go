package repository

import (
	"context"
	"testing"
	"time"

	"levant/events"
	"levant/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeUserCreated, func(ctx context.Context, e events.Event) {
		received <- e
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.UserRepository().Create(ctx, 111, time.Now())
	require.NoError(t, err)
	uow.EventBus().Publish(events.UserCreatedEvent{DiscordID: 111})

	// Published events stay buffered until the transaction commits.
	select {
	case e := <-received:
		t.Fatalf("event emitted before commit: %+v", e)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, uow.Commit())

	select {
	case e := <-received:
		assert.Equal(t, events.UserCreatedEvent{DiscordID: 111}, e)
	case <-time.After(2 * time.Second):
		t.Fatal("event not emitted after commit")
	}

	user, err := NewUserRepository(testDB.DB).GetByDiscordID(ctx, 111)
	require.NoError(t, err)
	assert.NotNil(t, user)
}

func TestUnitOfWork_RollbackDiscardsEvents(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	received := make(chan events.Event, 1)
	bus.Subscribe(events.EventTypeUserCreated, func(ctx context.Context, e events.Event) {
		received <- e
	})

	factory := NewUnitOfWorkFactory(testDB.DB, bus)
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.UserRepository().Create(ctx, 222, time.Now())
	require.NoError(t, err)
	uow.EventBus().Publish(events.UserCreatedEvent{DiscordID: 222})

	require.NoError(t, uow.Rollback())

	// A rolled-back unit of work emits nothing and persists nothing.
	select {
	case e := <-received:
		t.Fatalf("event emitted after rollback: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}

	user, err := NewUserRepository(testDB.DB).GetByDiscordID(ctx, 222)
	require.NoError(t, err)
	assert.Nil(t, user)
}
