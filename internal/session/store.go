package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oceanward/reefguide/internal/log"
)

var (
	// ErrNotFound is returned by write operations against a session
	// that does not exist.
	ErrNotFound = errors.New("session: not found")
	// ErrExpired is returned by write operations against a session
	// whose expiry has passed.
	ErrExpired = errors.New("session: expired")
)

// Store persists sessions in PostgreSQL.
type Store struct {
	pool       *pgxpool.Pool
	ttl        time.Duration
	maxHistory int
	logger     log.Logger
}

// New creates a session store. ttl sets the lifetime of new sessions;
// maxHistory caps stored entries, trimming oldest first.
func New(pool *pgxpool.Pool, ttl time.Duration, maxHistory int, logger log.Logger) *Store {
	return &Store{pool: pool, ttl: ttl, maxHistory: maxHistory, logger: logger}
}

// Create inserts a new session with an optional initial profile.
func (s *Store) Create(ctx context.Context, profile DiverProfile) (*Data, error) {
	now := time.Now().UTC()
	data := &Data{
		ID:        uuid.New(),
		History:   []Entry{},
		Profile:   profile,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	profileJSON, err := json.Marshal(data.Profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, history, diver_profile, created_at, expires_at)
		VALUES ($1, '[]', $2, $3, $4)`,
		data.ID, profileJSON, data.CreatedAt, data.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	s.logger.Debug("session created", "session_id", data.ID, "expires_at", data.ExpiresAt)
	return data, nil
}

// Get returns the session for id, or nil without error when id is
// malformed, unknown, or expired. Only storage failures are errors.
func (s *Store) Get(ctx context.Context, id string) (*Data, error) {
	sessionID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	data, err := s.fetch(ctx, s.pool, sessionID, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// UpdateHistory appends one user and one assistant entry with a shared
// timestamp, trimming history to the store's cap (oldest first). The
// row is locked for the duration so concurrent turns against the same
// session serialize instead of losing writes.
func (s *Store) UpdateHistory(ctx context.Context, id uuid.UUID, userMessage, assistantMessage string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	data, err := s.fetch(ctx, tx, id, true)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	history := append(data.History,
		Entry{Role: RoleUser, Content: userMessage, Timestamp: now},
		Entry{Role: RoleAssistant, Content: assistantMessage, Timestamp: now})
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET history = $2 WHERE id = $1`,
		id, historyJSON); err != nil {
		return fmt.Errorf("update history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit history update: %w", err)
	}
	return nil
}

// UpdateProfile shallow-merges update over the existing profile.
func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, update DiverProfile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	data, err := s.fetch(ctx, tx, id, true)
	if err != nil {
		return err
	}

	merged := data.Profile.merge(update)
	profileJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET diver_profile = $2 WHERE id = $1`,
		id, profileJSON); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit profile update: %w", err)
	}
	return nil
}

// Expire marks the session expired immediately. Expiring an already
// expired or missing session is not an error.
func (s *Store) Expire(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE sessions SET expires_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("expire session: %w", err)
	}
	return nil
}

// Extend pushes the session's expiry to ttl from now.
func (s *Store) Extend(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET expires_at = $2 WHERE id = $1 AND expires_at >= now()`,
		id, time.Now().UTC().Add(s.ttl))
	if err != nil {
		return fmt.Errorf("extend session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns live sessions ordered by creation time, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Data, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, history, diver_profile, created_at, expires_at
		FROM sessions
		WHERE expires_at >= now()
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Data
	for rows.Next() {
		data, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// querier covers both pool and transaction for fetch.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// fetch loads one session, optionally taking a row lock for a pending
// write. Missing rows map to ErrNotFound, expired ones to ErrExpired.
func (s *Store) fetch(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*Data, error) {
	query := `
		SELECT id, history, diver_profile, created_at, expires_at
		FROM sessions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	data, err := scanSession(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if IsExpired(data, time.Now().UTC()) {
		return nil, ErrExpired
	}
	return data, nil
}

func scanSession(row pgx.Row) (*Data, error) {
	var data Data
	var historyJSON, profileJSON []byte
	if err := row.Scan(&data.ID, &historyJSON, &profileJSON, &data.CreatedAt, &data.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &data.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	if err := json.Unmarshal(profileJSON, &data.Profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &data, nil
}
