package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
	"supportagent/model"
)

// TranscriptEntry is one archived message as stored on disk.
type TranscriptEntry struct {
	ID        string
	Channel   string
	UserID    string
	Role      string
	Content   string
	ToolName  string // set on tool-result entries
	Timestamp time.Time
}

// TranscriptStore is an append-only SQLite archive of every message that
// passes through the agent. It exists for operators (auditing, "what did the
// bot say last night"), not for the LLM: histories fed to the model come from
// the in-memory ConversationStore only.
type TranscriptStore struct {
	db *sql.DB
}

func NewTranscriptStore(dataDir string) (*TranscriptStore, error) {
	dbPath := filepath.Join(dataDir, "transcripts.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &TranscriptStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (ts *TranscriptStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_name TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_identity ON transcripts(channel, user_id);
	CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
	`

	_, err := ts.db.Exec(schema)
	return err
}

// Record archives one message for an identity. Failures are returned but are
// never fatal to a turn: the caller logs and moves on.
func (ts *TranscriptStore) Record(identity model.Identity, msg model.Message) error {
	query := `
	INSERT INTO transcripts (id, channel, user_id, role, content, tool_name, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	toolName := ""
	if msg.ToolResult != nil {
		toolName = msg.ToolResult.Name
	}

	createdAt := msg.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := ts.db.Exec(query,
		msg.ID,
		identity.Channel,
		identity.UserID,
		msg.Role,
		msg.Content,
		toolName,
		createdAt,
	)

	return err
}

// Recent returns the newest entries across all identities, newest first.
func (ts *TranscriptStore) Recent(limit int) ([]TranscriptEntry, error) {
	query := `
	SELECT id, channel, user_id, role, content, COALESCE(tool_name, ''), created_at
	FROM transcripts
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := ts.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// History returns all archived entries for one identity in append order.
func (ts *TranscriptStore) History(identity model.Identity) ([]TranscriptEntry, error) {
	query := `
	SELECT id, channel, user_id, role, content, COALESCE(tool_name, ''), created_at
	FROM transcripts
	WHERE channel = ? AND user_id = ?
	ORDER BY created_at ASC
	`

	rows, err := ts.db.Query(query, identity.Channel, identity.UserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]TranscriptEntry, error) {
	var entries []TranscriptEntry
	for rows.Next() {
		var entry TranscriptEntry
		err := rows.Scan(
			&entry.ID,
			&entry.Channel,
			&entry.UserID,
			&entry.Role,
			&entry.Content,
			&entry.ToolName,
			&entry.Timestamp,
		)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (ts *TranscriptStore) Close() error {
	if ts.db != nil {
		return ts.db.Close()
	}
	return nil
}
