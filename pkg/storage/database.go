package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalidID = errors.New("invalid message id")
)

// MessageDB is the persistent record store of a node. Only the persisted
// fields of a message are kept; sender public keys live in their own table.
type MessageDB struct {
	db     *sql.DB
	logger *zap.Logger

	// serializes load-modify-save sequences such as UpdateStatus
	mu sync.Mutex
}

// NewMessageDB opens (or creates) the sqlite database at dbPath
func NewMessageDB(dbPath string) (*MessageDB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite has a single writer
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	mdb := &MessageDB{
		db:     db,
		logger: zap.NewNop(),
	}

	if err := mdb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return mdb, nil
}

// SetLogger sets the logger used for store diagnostics
func (db *MessageDB) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	db.logger = l
}

// initSchema creates database tables
func (db *MessageDB) initSchema() error {
	schema := `
	-- Persisted message records
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		relay_node_id TEXT NOT NULL DEFAULT '',
		src_node_id TEXT NOT NULL DEFAULT '',
		dst_node_id TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		checksum TEXT NOT NULL DEFAULT '',
		sent_nodes TEXT NOT NULL DEFAULT '[]',
		relay_count INTEGER NOT NULL DEFAULT 0,
		forward_cycles INTEGER NOT NULL DEFAULT 0,
		encryption_mode TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		ignore_flag INTEGER NOT NULL DEFAULT 0,
		time_created INTEGER NOT NULL,
		time_received INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Sender public keys, base64 PEM
	CREATE TABLE IF NOT EXISTS sender_keys (
		message_id TEXT PRIMARY KEY,
		public_key TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status, time_created);
	CREATE INDEX IF NOT EXISTS idx_messages_dst ON messages(dst_node_id, time_created);
	`

	if _, err := db.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *MessageDB) Close() error {
	return db.db.Close()
}
