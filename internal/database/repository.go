package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voicetime/internal/models"
)

// ErrNotFound is returned when no activity record exists for a key. Read
// paths treat it as an empty default, not a failure.
var ErrNotFound = errors.New("activity record not found")

const recordColumns = `user_id, guild_id, username, guild_name, sessions, total_time_minutes, is_premium, created_at, last_updated`

// Repository handles activity record persistence
type Repository struct {
	db      *DB
	timeout time.Duration
}

// NewRepository creates a new repository. Every query runs under the given
// timeout so a store outage surfaces as an error instead of a hang.
func NewRepository(db *DB, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Repository{db: db, timeout: timeout}
}

// GetOrCreate returns the record for (userID, guildID), creating an empty one
// if none exists. The upsert keys on the primary key, so concurrent calls for
// the same pair cannot create duplicates; username and guild name are
// refreshed on every call.
func (r *Repository) GetOrCreate(ctx context.Context, userID, username, guildID, guildName string) (*models.ActivityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.conn.QueryRowContext(ctx, `
		INSERT INTO user_activity (user_id, guild_id, username, guild_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, guild_id) DO UPDATE
			SET username = EXCLUDED.username, guild_name = EXCLUDED.guild_name
		RETURNING `+recordColumns,
		userID, guildID, username, guildName)

	record, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create activity record: %w", err)
	}
	return record, nil
}

// FindByKey returns the record for (userID, guildID) or ErrNotFound.
func (r *Repository) FindByKey(ctx context.Context, userID, guildID string) (*models.ActivityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.conn.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM user_activity
		WHERE user_id = $1 AND guild_id = $2`,
		userID, guildID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find activity record: %w", err)
	}
	return record, nil
}

// Save persists the mutable fields of a record back to its row.
func (r *Repository) Save(ctx context.Context, record *models.ActivityRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sessions, err := json.Marshal(record.Sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}

	_, err = r.db.conn.ExecContext(ctx, `
		UPDATE user_activity
		SET username = $3, guild_name = $4, sessions = $5,
			total_time_minutes = $6, is_premium = $7, last_updated = $8
		WHERE user_id = $1 AND guild_id = $2`,
		record.UserID, record.GuildID, record.Username, record.GuildName,
		sessions, record.TotalTimeInVoice, record.IsPremium, record.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save activity record: %w", err)
	}
	return nil
}

// TopByTotalTime returns up to limit records for a guild ordered by total
// voice time descending. Ties break on record creation order.
func (r *Repository) TopByTotalTime(ctx context.Context, guildID string, limit int) ([]*models.ActivityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM user_activity
		WHERE guild_id = $1
		ORDER BY total_time_minutes DESC, created_at ASC, user_id ASC
		LIMIT $2`,
		guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var records []*models.ActivityRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
	}
	return records, nil
}

// SetPremiumForUser updates the premium flag on every guild record for a
// user. Premium is a user-level property even though rows are guild-scoped.
// It reports whether any row actually changed.
func (r *Repository) SetPremiumForUser(ctx context.Context, userID string, isPremium bool) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.conn.ExecContext(ctx, `
		UPDATE user_activity
		SET is_premium = $2, last_updated = now()
		WHERE user_id = $1 AND is_premium IS DISTINCT FROM $2`,
		userID, isPremium)
	if err != nil {
		return false, fmt.Errorf("failed to set premium status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ActivityRecord, error) {
	var record models.ActivityRecord
	var sessions []byte

	err := row.Scan(&record.UserID, &record.GuildID, &record.Username, &record.GuildName,
		&sessions, &record.TotalTimeInVoice, &record.IsPremium, &record.CreatedAt, &record.LastUpdated)
	if err != nil {
		return nil, err
	}

	if len(sessions) > 0 {
		if err := json.Unmarshal(sessions, &record.Sessions); err != nil {
			return nil, fmt.Errorf("failed to decode sessions: %w", err)
		}
	}
	return &record, nil
}
