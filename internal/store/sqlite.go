// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Persists agents, status events and messages with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS agents (
			code       TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			role       TEXT NOT NULL,
			team_id    INTEGER,
			team_name  TEXT,
			email      TEXT,

			CHECK (role IN ('agent', 'supervisor'))
		);

		CREATE INDEX IF NOT EXISTS idx_agents_team ON agents(team_id);

		CREATE TABLE IF NOT EXISTS agent_status (
			id         TEXT PRIMARY KEY,
			agent_code TEXT NOT NULL,
			status     TEXT NOT NULL,
			team_id    INTEGER,
			created_at TEXT NOT NULL,

			CHECK (status IN ('Available', 'Busy', 'Break', 'Offline'))
		);

		CREATE INDEX IF NOT EXISTS idx_status_agent_created
			ON agent_status(agent_code, created_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			from_code  TEXT NOT NULL,
			to_code    TEXT,
			to_team_id INTEGER,
			content    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			priority   TEXT NOT NULL DEFAULT 'normal',
			is_read    INTEGER NOT NULL DEFAULT 0,
			read_at    TEXT,
			created_at TEXT NOT NULL,

			CHECK (kind IN ('direct', 'broadcast')),
			CHECK (priority IN ('low', 'normal', 'high')),
			CHECK (length(content) <= 500)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_to_code
			ON messages(to_code, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_messages_to_team
			ON messages(to_team_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Ping verifies the database connection is alive
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AppendStatus persists a status transition. The event ID and timestamp
// are assigned here so callers always see the accepted values.
func (s *SQLiteStore) AppendStatus(ctx context.Context, ev *StatusEvent) error {
	ev.ID = uuid.New().String()
	ev.Timestamp = time.Now().UTC()

	query := `
		INSERT INTO agent_status (id, agent_code, status, team_id, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		ev.ID,
		ev.AgentCode,
		ev.Status,
		nullInt(ev.TeamID),
		ev.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting status event: %w", err)
	}

	s.logger.Debug("appended status event", "id", ev.ID, "agent", ev.AgentCode, "status", ev.Status)
	return nil
}

// AppendMessage persists a message. The message ID and timestamp are
// assigned here before the insert.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	msg.ID = uuid.New().String()
	msg.Timestamp = time.Now().UTC()

	query := `
		INSERT INTO messages (id, from_code, to_code, to_team_id, content, kind, priority, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID,
		msg.FromCode,
		nullString(msg.ToCode),
		nullInt(msg.ToTeamID),
		msg.Content,
		msg.Kind,
		msg.Priority,
		msg.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("appended message", "id", msg.ID, "from", msg.FromCode, "kind", msg.Kind)
	return nil
}

// GetAgent retrieves a directory entry by agent code.
// Returns ErrNotFound if no agent exists with that code.
func (s *SQLiteStore) GetAgent(ctx context.Context, code string) (*AgentRecord, error) {
	query := `
		SELECT code, name, role, team_id, team_name, email
		FROM agents
		WHERE code = ?
	`

	var rec AgentRecord
	var teamID sql.NullInt64
	var teamName, email sql.NullString

	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&rec.Code,
		&rec.Name,
		&rec.Role,
		&teamID,
		&teamName,
		&email,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying agent: %w", err)
	}

	if teamID.Valid {
		v := int(teamID.Int64)
		rec.TeamID = &v
	}
	rec.TeamName = teamName.String
	rec.Email = email.String

	return &rec, nil
}

// ListTeamAgents returns all directory entries for a team, agents and
// supervisors alike, ordered by code.
func (s *SQLiteStore) ListTeamAgents(ctx context.Context, teamID int) ([]*AgentRecord, error) {
	query := `
		SELECT code, name, role, team_id, team_name, email
		FROM agents
		WHERE team_id = ?
		ORDER BY code
	`

	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("querying team agents: %w", err)
	}
	defer rows.Close()

	var records []*AgentRecord
	for rows.Next() {
		var rec AgentRecord
		var tid sql.NullInt64
		var teamName, email sql.NullString

		if err := rows.Scan(&rec.Code, &rec.Name, &rec.Role, &tid, &teamName, &email); err != nil {
			return nil, fmt.Errorf("scanning agent row: %w", err)
		}

		if tid.Valid {
			v := int(tid.Int64)
			rec.TeamID = &v
		}
		rec.TeamName = teamName.String
		rec.Email = email.String

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agent rows: %w", err)
	}
	return records, nil
}

// CreateAgent inserts a directory entry.
// Returns ErrDuplicateAgent if the code is already taken.
func (s *SQLiteStore) CreateAgent(ctx context.Context, rec *AgentRecord) error {
	query := `
		INSERT INTO agents (code, name, role, team_id, team_name, email)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.Code,
		rec.Name,
		rec.Role,
		nullInt(rec.TeamID),
		nullString(rec.TeamName),
		nullString(rec.Email),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateAgent
		}
		return fmt.Errorf("inserting agent: %w", err)
	}

	s.logger.Debug("created agent", "code", rec.Code, "role", rec.Role)
	return nil
}

// ListStatusHistory retrieves the most recent status events for an agent,
// newest first. If limit is 0 or negative, a default of 50 is used.
func (s *SQLiteStore) ListStatusHistory(ctx context.Context, agentCode string, limit int) ([]*StatusEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT id, agent_code, status, team_id, created_at
		FROM agent_status
		WHERE agent_code = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, agentCode, limit)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	var events []*StatusEvent
	for rows.Next() {
		var ev StatusEvent
		var teamID sql.NullInt64
		var createdAtStr string

		if err := rows.Scan(&ev.ID, &ev.AgentCode, &ev.Status, &teamID, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning status row: %w", err)
		}

		ev.Timestamp, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if teamID.Valid {
			v := int(teamID.Int64)
			ev.TeamID = &v
		}

		events = append(events, &ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status rows: %w", err)
	}
	return events, nil
}

// ListAgentMessages retrieves messages addressed to an agent, newest first.
// This includes direct messages to the agent's code and broadcasts to the
// agent's team when teamID is non-nil. If unreadOnly is set, read messages
// are filtered out. If limit is 0 or negative, a default of 50 is used.
func (s *SQLiteStore) ListAgentMessages(ctx context.Context, agentCode string, teamID *int, unreadOnly bool, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	var conds []string
	var args []any

	if teamID != nil {
		conds = append(conds, "(to_code = ? OR to_team_id = ?)")
		args = append(args, agentCode, *teamID)
	} else {
		conds = append(conds, "to_code = ?")
		args = append(args, agentCode)
	}
	if unreadOnly {
		conds = append(conds, "is_read = 0")
	}

	query := fmt.Sprintf(`
		SELECT id, from_code, to_code, to_team_id, content, kind, priority, is_read, read_at, created_at
		FROM messages
		WHERE %s
		ORDER BY created_at DESC
		LIMIT ?
	`, strings.Join(conds, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying agent messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// MarkMessageRead marks a message as read and returns the updated record.
// Marking an already-read message is a no-op that preserves the original
// read_at. Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) MarkMessageRead(ctx context.Context, messageID string) (*Message, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET is_read = 1, read_at = ?
		WHERE id = ? AND is_read = 0
	`, now, messageID)
	if err != nil {
		return nil, fmt.Errorf("marking message read: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, from_code, to_code, to_team_id, content, kind, priority, is_read, read_at, created_at
		FROM messages
		WHERE id = ?
	`, messageID)

	msg, err := scanMessage(row)
	if err == ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var msg Message
	var toCode sql.NullString
	var toTeamID sql.NullInt64
	var isRead int
	var readAt sql.NullString
	var createdAtStr string

	err := row.Scan(&msg.ID, &msg.FromCode, &toCode, &toTeamID, &msg.Content,
		&msg.Kind, &msg.Priority, &isRead, &readAt, &createdAtStr)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message row: %w", err)
	}

	msg.ToCode = toCode.String
	if toTeamID.Valid {
		v := int(toTeamID.Int64)
		msg.ToTeamID = &v
	}
	msg.IsRead = isRead != 0
	if readAt.Valid {
		t, err := time.Parse(time.RFC3339, readAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing read_at: %w", err)
		}
		msg.ReadAt = &t
	}
	msg.Timestamp, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &msg, nil
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt returns nil for nil pointers, otherwise the dereferenced value
func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
