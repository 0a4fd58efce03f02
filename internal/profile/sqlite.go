package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/liaizen/mediation-plane/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS communication_profiles (
	user_id    TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLite stores one JSON profile document per user. The engine's access
// pattern is whole-profile read and whole-profile write, so a document
// column beats a normalized schema here.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (and if needed creates) the profile database at path.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open profile db: %w", err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent profile updates.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init profile schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// GetProfile loads a user's profile, or (nil, nil) if none exists.
func (s *SQLite) GetProfile(ctx context.Context, userID string) (*models.CommunicationProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT profile FROM communication_profiles WHERE user_id = ?`,
		normalizeID(userID),
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}

	var p models.CommunicationProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", userID, err)
	}
	return &p, nil
}

// UpdateProfile upserts a profile, bumping its version and update stamp.
func (s *SQLite) UpdateProfile(ctx context.Context, p *models.CommunicationProfile) error {
	p.UserID = normalizeID(p.UserID)
	p.ProfileVersion++
	now := s.now().UTC()
	p.LastProfileUpdate = &now
	return s.write(ctx, p)
}

// RecordIntervention counts one delivered intervention, creating the
// profile on first touch.
func (s *SQLite) RecordIntervention(ctx context.Context, userID string) error {
	p, err := s.getOrInit(ctx, userID)
	if err != nil {
		return err
	}
	recordIntervention(p, s.now().UTC())
	return s.write(ctx, p)
}

// RecordOutcome tags the user's intervention stats with how they reacted.
func (s *SQLite) RecordOutcome(ctx context.Context, userID string, accepted bool) error {
	p, err := s.getOrInit(ctx, userID)
	if err != nil {
		return err
	}
	recordOutcome(p, accepted)
	return s.write(ctx, p)
}

// RecordAcceptedRewrite appends a rewrite the user chose to send.
func (s *SQLite) RecordAcceptedRewrite(ctx context.Context, userID, original, rewrite string) error {
	p, err := s.getOrInit(ctx, userID)
	if err != nil {
		return err
	}
	appendRewrite(p, original, rewrite, s.now().UTC())
	return s.write(ctx, p)
}

func (s *SQLite) getOrInit(ctx context.Context, userID string) (*models.CommunicationProfile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &models.CommunicationProfile{UserID: normalizeID(userID)}
	}
	return p, nil
}

func (s *SQLite) write(ctx context.Context, p *models.CommunicationProfile) error {
	now := s.now().UTC()
	if p.LastProfileUpdate == nil {
		p.LastProfileUpdate = &now
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", p.UserID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO communication_profiles (user_id, profile, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, updated_at = excluded.updated_at`,
		p.UserID, string(raw), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store profile %s: %w", p.UserID, err)
	}
	return nil
}

func normalizeID(id string) string { return strings.ToLower(strings.TrimSpace(id)) }
