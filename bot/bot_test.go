package bot

import (
	"context"
	"errors"
	"testing"

	"levant/leveling"
	"levant/service"

	"github.com/stretchr/testify/require"
)

func roleTestBot(t *testing.T, directory service.MemberDirectory) *Bot {
	t.Helper()
	table, err := leveling.NewTable([]leveling.Tier{
		{Level: 1, XPThreshold: 0, RoleID: "R1"},
		{Level: 5, XPThreshold: 500, RoleID: "R2"},
		{Level: 10, XPThreshold: 1500, RoleID: "R3"},
	})
	require.NoError(t, err)

	return &Bot{
		config:    Config{GuildID: "guild-1", LevelTable: table},
		directory: directory,
	}
}

func TestApplyRoleChange(t *testing.T) {
	ctx := context.Background()

	t.Run("applies grants then revocations", func(t *testing.T) {
		directory := new(service.MockMemberDirectory)
		b := roleTestBot(t, directory)

		directory.On("AddRole", ctx, int64(123), "R2").Return(nil)
		directory.On("RemoveRole", ctx, int64(123), "R1").Return(nil)
		directory.On("RemoveRole", ctx, int64(123), "R3").Return(nil)

		b.applyRoleChange(ctx, 123, leveling.RoleChange{
			Add:    []string{"R2"},
			Remove: []string{"R1", "R3"},
		})

		directory.AssertExpectations(t)
	})

	t.Run("failed grant does not stop remaining operations", func(t *testing.T) {
		directory := new(service.MockMemberDirectory)
		b := roleTestBot(t, directory)

		directory.On("AddRole", ctx, int64(123), "R2").Return(errors.New("missing permissions"))
		directory.On("RemoveRole", ctx, int64(123), "R1").Return(nil)
		directory.On("RemoveRole", ctx, int64(123), "R3").Return(nil)

		b.applyRoleChange(ctx, 123, leveling.RoleChange{
			Add:    []string{"R2"},
			Remove: []string{"R1", "R3"},
		})

		// Revocations still ran after the failed grant.
		directory.AssertExpectations(t)
	})

	t.Run("failed revocation does not stop later revocations", func(t *testing.T) {
		directory := new(service.MockMemberDirectory)
		b := roleTestBot(t, directory)

		directory.On("RemoveRole", ctx, int64(123), "R1").Return(errors.New("discord unavailable"))
		directory.On("RemoveRole", ctx, int64(123), "R3").Return(nil)

		b.applyRoleChange(ctx, 123, leveling.RoleChange{
			Remove: []string{"R1", "R3"},
		})

		directory.AssertExpectations(t)
	})
}

func TestRevokeLevelRoles(t *testing.T) {
	ctx := context.Background()

	t.Run("revokes every tier role", func(t *testing.T) {
		directory := new(service.MockMemberDirectory)
		b := roleTestBot(t, directory)

		directory.On("RemoveRole", ctx, int64(123), "R1").Return(nil)
		directory.On("RemoveRole", ctx, int64(123), "R2").Return(nil)
		directory.On("RemoveRole", ctx, int64(123), "R3").Return(nil)

		b.revokeLevelRoles(ctx, 123)

		directory.AssertExpectations(t)
	})

	t.Run("continues past a failed revocation", func(t *testing.T) {
		directory := new(service.MockMemberDirectory)
		b := roleTestBot(t, directory)

		directory.On("RemoveRole", ctx, int64(123), "R1").Return(nil)
		directory.On("RemoveRole", ctx, int64(123), "R2").Return(errors.New("member left"))
		directory.On("RemoveRole", ctx, int64(123), "R3").Return(nil)

		b.revokeLevelRoles(ctx, 123)

		directory.AssertExpectations(t)
		directory.AssertNumberOfCalls(t, "RemoveRole", 3)
	})

	t.Run("skips tiers with no role bound", func(t *testing.T) {
		table, err := leveling.NewTable([]leveling.Tier{
			{Level: 1, XPThreshold: 0},
			{Level: 5, XPThreshold: 500, RoleID: "R2"},
		})
		require.NoError(t, err)

		directory := new(service.MockMemberDirectory)
		b := &Bot{
			config:    Config{GuildID: "guild-1", LevelTable: table},
			directory: directory,
		}

		directory.On("RemoveRole", ctx, int64(123), "R2").Return(nil)

		b.revokeLevelRoles(ctx, 123)

		directory.AssertExpectations(t)
		directory.AssertNumberOfCalls(t, "RemoveRole", 1)
	})
}
