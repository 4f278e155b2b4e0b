package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps ":memory:"
	// databases and per-connection pragmas alive for the pool's lifetime.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate creates the messaging schema. Statements are idempotent.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Directory mirror of externally owned identities
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			role TEXT NOT NULL CHECK (role IN ('client', 'specialist')),
			fullname TEXT NOT NULL,
			governorate TEXT NOT NULL DEFAULT '',
			district TEXT NOT NULL DEFAULT '',
			specialty TEXT DEFAULT NULL,
			is_available BOOLEAN NOT NULL DEFAULT 1,
			needed_specialists TEXT DEFAULT NULL,
			created_at DATETIME NOT NULL
		);`,
		// One conversation per unordered pair
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			user_low_id INTEGER NOT NULL,
			user_high_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (user_low_id, user_high_id),
			CHECK (user_low_id < user_high_id),
			FOREIGN KEY (user_low_id) REFERENCES users(id),
			FOREIGN KEY (user_high_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			sender_id INTEGER NOT NULL,
			body TEXT NOT NULL,
			client_id TEXT DEFAULT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (conversation_id, sender_id, client_id),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
			FOREIGN KEY (sender_id) REFERENCES users(id)
		);`,
		// Read sets; rows are only ever added
		`CREATE TABLE IF NOT EXISTS message_reads (
			message_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			read_at DATETIME NOT NULL,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id INTEGER PRIMARY KEY,
			owner_id INTEGER NOT NULL,
			counterpart_id INTEGER NOT NULL,
			counterpart_role TEXT NOT NULL,
			is_done BOOLEAN NOT NULL DEFAULT 0,
			date_added DATETIME NOT NULL,
			UNIQUE (owner_id, counterpart_id),
			CHECK (owner_id <> counterpart_id),
			FOREIGN KEY (owner_id) REFERENCES users(id),
			FOREIGN KEY (counterpart_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_high ON conversations(user_high_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at, id);`,
		`CREATE INDEX IF NOT EXISTS idx_message_reads_user ON message_reads(user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
