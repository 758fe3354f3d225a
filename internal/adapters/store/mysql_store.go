package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLStore is a MySQL implementation of the StateStore interface, for
// deployments where several machines share one analysis state.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL state store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	// Create tables if they don't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_state (
			collection VARCHAR(64) NOT NULL,
			item_key VARCHAR(255) NOT NULL,
			payload MEDIUMTEXT NOT NULL,
			updated_at TIMESTAMP NULL,
			PRIMARY KEY (collection, item_key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analysis_state table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS email_tracking (
			message_id VARCHAR(255) PRIMARY KEY,
			last_seen_read BOOLEAN,
			times_seen_unread INT,
			first_seen TIMESTAMP NULL,
			last_seen TIMESTAMP NULL,
			INDEX idx_last_seen (last_seen)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create email_tracking table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

func (s *MySQLStore) replaceCollection(ctx context.Context, collection string, rows map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_state WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", collection, err)
	}

	now := time.Now().UTC().Format(mysqlTimeFormat)
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analysis_state (collection, item_key, payload, updated_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for key, payload := range rows {
		if _, err := stmt.ExecContext(ctx, collection, key, string(payload), now); err != nil {
			return fmt.Errorf("failed to insert %s/%s: %w", collection, key, err)
		}
	}
	return tx.Commit()
}

func (s *MySQLStore) loadCollection(ctx context.Context, collection string) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_key, payload FROM analysis_state WHERE collection = ?
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", collection, err)
		}
		out[key] = []byte(payload)
	}
	return out, rows.Err()
}

// PutIdentities replaces the stored identity map
func (s *MySQLStore) PutIdentities(ctx context.Context, ids map[string]*core.Identity) error {
	return putJSON(ctx, s, collectionIdentities, ids)
}

// GetIdentities returns the stored identity map
func (s *MySQLStore) GetIdentities(ctx context.Context) (map[string]*core.Identity, error) {
	return getJSON[core.Identity](ctx, s, collectionIdentities)
}

// PutProfiles replaces the stored behavior profiles
func (s *MySQLStore) PutProfiles(ctx context.Context, profiles map[string]*core.BehaviorProfile) error {
	return putJSON(ctx, s, collectionProfiles, profiles)
}

// GetProfiles returns the stored behavior profiles
func (s *MySQLStore) GetProfiles(ctx context.Context) (map[string]*core.BehaviorProfile, error) {
	return getJSON[core.BehaviorProfile](ctx, s, collectionProfiles)
}

// PutSenderScores replaces the stored sender scores
func (s *MySQLStore) PutSenderScores(ctx context.Context, scores map[string]*core.SenderScoreRecord) error {
	return putJSON(ctx, s, collectionSenderScores, scores)
}

// GetSenderScores returns the stored sender scores
func (s *MySQLStore) GetSenderScores(ctx context.Context) (map[string]*core.SenderScoreRecord, error) {
	return getJSON[core.SenderScoreRecord](ctx, s, collectionSenderScores)
}

// GetTracking returns the tracking entry for one message
func (s *MySQLStore) GetTracking(ctx context.Context, messageID string) (*core.EmailTrackingEntry, error) {
	var entry core.EmailTrackingEntry
	var firstSeen, lastSeen string

	err := s.db.QueryRowContext(ctx, `
		SELECT message_id, last_seen_read, times_seen_unread, first_seen, last_seen
		FROM email_tracking
		WHERE message_id = ?
	`, messageID).Scan(&entry.MessageID, &entry.LastSeenRead, &entry.TimesSeenUnread, &firstSeen, &lastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query tracking entry: %w", err)
	}

	if t, err := time.Parse(mysqlTimeFormat, firstSeen); err == nil {
		entry.FirstSeen = t
	}
	if t, err := time.Parse(mysqlTimeFormat, lastSeen); err == nil {
		entry.LastSeen = t
	}
	return &entry, nil
}

// PutTracking stores the tracking entry for one message
func (s *MySQLStore) PutTracking(ctx context.Context, entry *core.EmailTrackingEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_tracking (message_id, last_seen_read, times_seen_unread, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			last_seen_read = VALUES(last_seen_read),
			times_seen_unread = VALUES(times_seen_unread),
			last_seen = VALUES(last_seen)
	`, entry.MessageID, entry.LastSeenRead, entry.TimesSeenUnread,
		entry.FirstSeen.Format(mysqlTimeFormat), entry.LastSeen.Format(mysqlTimeFormat))
	if err != nil {
		return fmt.Errorf("failed to insert tracking entry: %w", err)
	}
	return nil
}

// AllTracking returns every tracking entry
func (s *MySQLStore) AllTracking(ctx context.Context) (map[string]*core.EmailTrackingEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, last_seen_read, times_seen_unread, first_seen, last_seen
		FROM email_tracking
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*core.EmailTrackingEntry)
	for rows.Next() {
		var entry core.EmailTrackingEntry
		var firstSeen, lastSeen string
		if err := rows.Scan(&entry.MessageID, &entry.LastSeenRead, &entry.TimesSeenUnread, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan tracking row: %w", err)
		}
		if t, err := time.Parse(mysqlTimeFormat, firstSeen); err == nil {
			entry.FirstSeen = t
		}
		if t, err := time.Parse(mysqlTimeFormat, lastSeen); err == nil {
			entry.LastSeen = t
		}
		out[entry.MessageID] = &entry
	}
	return out, rows.Err()
}

// Stop closes the database connection
func (s *MySQLStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
