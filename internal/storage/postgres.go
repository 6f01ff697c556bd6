package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	db *sql.DB
}

func NewPostgresClient(connStr string) (*PostgresClient, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &PostgresClient{db: db}

	// Initialize schema
	if err := client.initSchema(); err != nil {
		return nil, err
	}

	return client, nil
}

func (p *PostgresClient) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		bio TEXT DEFAULT '',
		age INT DEFAULT 0,
		gender VARCHAR(32) DEFAULT '',
		interests TEXT[] DEFAULT '{}',
		avatar_ref VARCHAR(255) DEFAULT '',
		location TEXT DEFAULT '',
		geohash VARCHAR(12) DEFAULT '',
		is_online BOOLEAN DEFAULT FALSE,
		hide_exact_location BOOLEAN DEFAULT FALSE,
		manual_location BOOLEAN DEFAULT FALSE,
		is_business BOOLEAN DEFAULT FALSE,
		last_seen TIMESTAMPTZ DEFAULT NOW(),
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_online ON profiles (is_online, last_seen);
	CREATE INDEX IF NOT EXISTS idx_profiles_geohash ON profiles (geohash);

	CREATE TABLE IF NOT EXISTS friend_requests (
		id SERIAL PRIMARY KEY,
		sender_id VARCHAR(64) NOT NULL,
		receiver_id VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ DEFAULT NOW(),
		UNIQUE (sender_id, receiver_id)
	);
	CREATE INDEX IF NOT EXISTS idx_requests_receiver ON friend_requests (receiver_id);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id SERIAL PRIMARY KEY,
		sender_id VARCHAR(64) NOT NULL,
		receiver_id VARCHAR(64) NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON chat_messages (sender_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_receiver ON chat_messages (receiver_id, created_at);
	`

	_, err := p.db.Exec(schema)
	return err
}

// DB exposes the underlying handle for query layers.
func (p *PostgresClient) DB() *sql.DB {
	return p.db
}

func (p *PostgresClient) Close() error {
	return p.db.Close()
}
