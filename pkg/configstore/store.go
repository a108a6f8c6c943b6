// Package configstore persists named platform connections and AI provider
// settings in a local SQLite database. At most one connection is active at a
// time; activating one deactivates the rest.
package configstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/aep"
	"github.com/shubhambhiwapurkar/aep-power-tools-ext/pkg/llm"
)

// ErrNotFound is returned when a connection ID does not exist.
var ErrNotFound = errors.New("configuration not found")

const schema = `
CREATE TABLE IF NOT EXISTS connections (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	client_id TEXT NOT NULL DEFAULT '',
	client_secret TEXT NOT NULL DEFAULT '',
	org_id TEXT NOT NULL DEFAULT '',
	sandbox TEXT NOT NULL DEFAULT 'prod',
	sandbox_id TEXT NOT NULL DEFAULT '',
	auth_token TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_connections_active ON connections(is_active);

CREATE TABLE IF NOT EXISTS ai_settings (
	id TEXT PRIMARY KEY,
	settings TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Connection is a stored platform connection. The embedded credentials map
// onto aep.Config.
type Connection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	aep.Config
}

// Store wraps the SQLite database. Schema is applied on open.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts or updates a connection. An empty ID gets a generated one.
// Saving with IsActive set deactivates every other connection in the same
// transaction. The connection's ID is returned.
func (s *Store) Save(ctx context.Context, conn Connection) (string, error) {
	if conn.Name == "" {
		return "", fmt.Errorf("connection name is required")
	}
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.Sandbox == "" {
		conn.Sandbox = "prod"
	}
	now := time.Now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if conn.IsActive {
		if _, err := tx.ExecContext(ctx,
			`UPDATE connections SET is_active = 0, updated_at = ? WHERE id != ? AND is_active = 1`,
			now, conn.ID); err != nil {
			return "", err
		}
	}

	var createdAt int64
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM connections WHERE id = ?`, conn.ID).Scan(&createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		createdAt = now
	case err != nil:
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO connections (id, name, client_id, client_secret, org_id, sandbox, sandbox_id, auth_token, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			org_id = excluded.org_id,
			sandbox = excluded.sandbox,
			sandbox_id = excluded.sandbox_id,
			auth_token = excluded.auth_token,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		conn.ID, conn.Name, conn.ClientID, conn.ClientSecret, conn.OrgID,
		conn.Sandbox, conn.SandboxID, conn.AuthToken, boolToInt(conn.IsActive), createdAt, now)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return conn.ID, nil
}

// List returns all connections, newest first.
func (s *Store) List(ctx context.Context) ([]Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, client_id, client_secret, org_id, sandbox, sandbox_id, auth_token, is_active, created_at, updated_at
		FROM connections ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// Get returns the connection with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Connection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, client_id, client_secret, org_id, sandbox, sandbox_id, auth_token, is_active, created_at, updated_at
		FROM connections WHERE id = ?`, id)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Delete removes the connection with the given ID. Deleting a missing ID is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	return err
}

// Active returns the active connection, or nil when none is active.
func (s *Store) Active(ctx context.Context) (*Connection, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, client_id, client_secret, org_id, sandbox, sandbox_id, auth_token, is_active, created_at, updated_at
		FROM connections WHERE is_active = 1 LIMIT 1`)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// SetActive marks the connection with the given ID active and every other
// connection inactive.
func (s *Store) SetActive(ctx context.Context, id string) error {
	conn, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	conn.IsActive = true
	_, err = s.Save(ctx, *conn)
	return err
}

// SaveAISettings stores the single AI provider configuration as JSON.
func (s *Store) SaveAISettings(ctx context.Context, cfg llm.Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ai_settings (id, settings, updated_at) VALUES ('default', ?, ?)
		ON CONFLICT(id) DO UPDATE SET settings = excluded.settings, updated_at = excluded.updated_at`,
		string(raw), time.Now().UnixMilli())
	return err
}

// AISettings returns the stored AI provider configuration, or nil when none
// has been saved.
func (s *Store) AISettings(ctx context.Context) (*llm.Config, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT settings FROM ai_settings WHERE id = 'default'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg llm.Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("decoding AI settings: %w", err)
	}
	return &cfg, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (Connection, error) {
	var conn Connection
	var active int
	err := row.Scan(&conn.ID, &conn.Name, &conn.ClientID, &conn.ClientSecret, &conn.OrgID,
		&conn.Sandbox, &conn.SandboxID, &conn.AuthToken, &active, &conn.CreatedAt, &conn.UpdatedAt)
	conn.IsActive = active != 0
	return conn, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
