package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

const (
	collectionIdentities   = "identities"
	collectionProfiles     = "profiles"
	collectionSenderScores = "sender_scores"
)

// SQLiteStore is a SQLite implementation of the StateStore interface. The
// analysis collections are stored as JSON payloads keyed by collection and
// item key; tracking entries get typed columns because they are updated
// row-by-row.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite state store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Create tables if they don't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analysis_state (
			collection TEXT NOT NULL,
			item_key TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP,
			PRIMARY KEY (collection, item_key)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create analysis_state table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS email_tracking (
			message_id TEXT PRIMARY KEY,
			last_seen_read BOOLEAN,
			times_seen_unread INTEGER,
			first_seen TIMESTAMP,
			last_seen TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create email_tracking table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// replaceCollection swaps the full contents of one collection in a single
// transaction so readers never observe a half-written analysis run.
func (s *SQLiteStore) replaceCollection(ctx context.Context, collection string, rows map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_state WHERE collection = ?`, collection); err != nil {
		return fmt.Errorf("failed to clear collection %s: %w", collection, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
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

func (s *SQLiteStore) loadCollection(ctx context.Context, collection string) (map[string][]byte, error) {
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
func (s *SQLiteStore) PutIdentities(ctx context.Context, ids map[string]*core.Identity) error {
	return putJSON(ctx, s, collectionIdentities, ids)
}

// GetIdentities returns the stored identity map
func (s *SQLiteStore) GetIdentities(ctx context.Context) (map[string]*core.Identity, error) {
	return getJSON[core.Identity](ctx, s, collectionIdentities)
}

// PutProfiles replaces the stored behavior profiles
func (s *SQLiteStore) PutProfiles(ctx context.Context, profiles map[string]*core.BehaviorProfile) error {
	return putJSON(ctx, s, collectionProfiles, profiles)
}

// GetProfiles returns the stored behavior profiles
func (s *SQLiteStore) GetProfiles(ctx context.Context) (map[string]*core.BehaviorProfile, error) {
	return getJSON[core.BehaviorProfile](ctx, s, collectionProfiles)
}

// PutSenderScores replaces the stored sender scores
func (s *SQLiteStore) PutSenderScores(ctx context.Context, scores map[string]*core.SenderScoreRecord) error {
	return putJSON(ctx, s, collectionSenderScores, scores)
}

// GetSenderScores returns the stored sender scores
func (s *SQLiteStore) GetSenderScores(ctx context.Context) (map[string]*core.SenderScoreRecord, error) {
	return getJSON[core.SenderScoreRecord](ctx, s, collectionSenderScores)
}

// GetTracking returns the tracking entry for one message
func (s *SQLiteStore) GetTracking(ctx context.Context, messageID string) (*core.EmailTrackingEntry, error) {
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

	if t, err := time.Parse(time.RFC3339, firstSeen); err == nil {
		entry.FirstSeen = t
	}
	if t, err := time.Parse(time.RFC3339, lastSeen); err == nil {
		entry.LastSeen = t
	}
	return &entry, nil
}

// PutTracking stores the tracking entry for one message
func (s *SQLiteStore) PutTracking(ctx context.Context, entry *core.EmailTrackingEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO email_tracking (message_id, last_seen_read, times_seen_unread, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
	`, entry.MessageID, entry.LastSeenRead, entry.TimesSeenUnread,
		entry.FirstSeen.Format(time.RFC3339), entry.LastSeen.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert tracking entry: %w", err)
	}
	return nil
}

// AllTracking returns every tracking entry
func (s *SQLiteStore) AllTracking(ctx context.Context) (map[string]*core.EmailTrackingEntry, error) {
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
		if t, err := time.Parse(time.RFC3339, firstSeen); err == nil {
			entry.FirstSeen = t
		}
		if t, err := time.Parse(time.RFC3339, lastSeen); err == nil {
			entry.LastSeen = t
		}
		out[entry.MessageID] = &entry
	}
	return out, rows.Err()
}

// Stop closes the database connection
func (s *SQLiteStore) Stop() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}

type collectionStore interface {
	replaceCollection(ctx context.Context, collection string, rows map[string][]byte) error
	loadCollection(ctx context.Context, collection string) (map[string][]byte, error)
}

func putJSON[V any](ctx context.Context, s collectionStore, collection string, items map[string]*V) error {
	rows := make(map[string][]byte, len(items))
	for key, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
		}
		rows[key] = payload
	}
	return s.replaceCollection(ctx, collection, rows)
}

func getJSON[V any](ctx context.Context, s collectionStore, collection string) (map[string]*V, error) {
	rows, err := s.loadCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*V, len(rows))
	for key, payload := range rows {
		item := new(V)
		if err := json.Unmarshal(payload, item); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
		}
		out[key] = item
	}
	return out, nil
}
