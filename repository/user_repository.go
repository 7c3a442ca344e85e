package repository

import (
	"context"
	"fmt"
	"time"

	"levant/database"
	"levant/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable is satisfied by both the connection pool and a transaction
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByDiscordID retrieves a user by their Discord ID
func (r *UserRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.User, error) {
	query := `
		SELECT discord_id, xp, joined_at, created_at, updated_at
		FROM users
		WHERE discord_id = $1
	`

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by discord ID %d: %w", discordID, err)
	}

	return user, nil
}

// Create creates a new user record with zero XP. A zero joinedAt is stored
// as NULL and backfilled later.
func (r *UserRepository) Create(ctx context.Context, discordID int64, joinedAt time.Time) (*models.User, error) {
	query := `
		INSERT INTO users (discord_id, xp, joined_at)
		VALUES ($1, 0, $2)
		RETURNING discord_id, xp, joined_at, created_at, updated_at
	`

	user, err := scanUser(r.q.QueryRow(ctx, query, discordID, nullableTime(joinedAt)))
	if err != nil {
		return nil, fmt.Errorf("failed to create user with discord ID %d: %w", discordID, err)
	}

	return user, nil
}

// UpdateXP sets a user's XP counter
func (r *UserRepository) UpdateXP(ctx context.Context, discordID int64, xp int64) error {
	query := `
		UPDATE users
		SET xp = $1, updated_at = NOW()
		WHERE discord_id = $2
	`

	result, err := r.q.Exec(ctx, query, xp, discordID)
	if err != nil {
		return fmt.Errorf("failed to update XP for user %d: %w", discordID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user with discord ID %d not found", discordID)
	}

	return nil
}

// SetJoinedAt backfills the join timestamp. Only NULL values are written, so
// an already-captured join date is immutable; matching no row is not an error.
func (r *UserRepository) SetJoinedAt(ctx context.Context, discordID int64, joinedAt time.Time) error {
	query := `
		UPDATE users
		SET joined_at = $1, updated_at = NOW()
		WHERE discord_id = $2 AND joined_at IS NULL
	`

	if _, err := r.q.Exec(ctx, query, joinedAt, discordID); err != nil {
		return fmt.Errorf("failed to backfill join date for user %d: %w", discordID, err)
	}

	return nil
}

// GetTopByXP returns the highest-XP users, descending
func (r *UserRepository) GetTopByXP(ctx context.Context, limit int) ([]*models.User, error) {
	query := `
		SELECT discord_id, xp, joined_at, created_at, updated_at
		FROM users
		ORDER BY xp DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Delete removes a user record, reporting whether one existed
func (r *UserRepository) Delete(ctx context.Context, discordID int64) (bool, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM users WHERE discord_id = $1`, discordID)
	if err != nil {
		return false, fmt.Errorf("failed to delete user %d: %w", discordID, err)
	}

	return result.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var joinedAt *time.Time

	err := row.Scan(
		&user.DiscordID,
		&user.XP,
		&joinedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if joinedAt != nil {
		user.JoinedAt = *joinedAt
	}

	return &user, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
