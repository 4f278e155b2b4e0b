package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the messaging schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users mirror an external identity provider, so ids are not generated here
		`CREATE TABLE IF NOT EXISTS users (
			id                 BIGINT       PRIMARY KEY,
			role               TEXT         NOT NULL CHECK (role IN ('client', 'specialist')),
			fullname           TEXT         NOT NULL,
			governorate        TEXT         NOT NULL DEFAULT '',
			district           TEXT         NOT NULL DEFAULT '',
			specialty          TEXT,
			is_available       BOOLEAN      NOT NULL DEFAULT TRUE,
			needed_specialists TEXT,
			created_at         TIMESTAMPTZ  NOT NULL
		)`,

		// Conversations, one per unordered pair
		`CREATE TABLE IF NOT EXISTS conversations (
			id           BIGSERIAL    PRIMARY KEY,
			user_low_id  BIGINT       NOT NULL REFERENCES users(id),
			user_high_id BIGINT       NOT NULL REFERENCES users(id),
			created_at   TIMESTAMPTZ  NOT NULL,
			updated_at   TIMESTAMPTZ  NOT NULL,
			CONSTRAINT conversations_pair_key UNIQUE (user_low_id, user_high_id),
			CONSTRAINT conversations_pair_order CHECK (user_low_id < user_high_id)
		)`,

		// Messages
		`CREATE TABLE IF NOT EXISTS messages (
			id              BIGSERIAL    PRIMARY KEY,
			conversation_id BIGINT       NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id       BIGINT       NOT NULL REFERENCES users(id),
			body            TEXT         NOT NULL,
			client_id       TEXT,
			created_at      TIMESTAMPTZ  NOT NULL,
			CONSTRAINT messages_client_key UNIQUE (conversation_id, sender_id, client_id)
		)`,

		// Read sets
		`CREATE TABLE IF NOT EXISTS message_reads (
			message_id BIGINT      NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			user_id    BIGINT      NOT NULL REFERENCES users(id),
			read_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (message_id, user_id)
		)`,

		// Relationships
		`CREATE TABLE IF NOT EXISTS relationships (
			id               BIGSERIAL    PRIMARY KEY,
			owner_id         BIGINT       NOT NULL REFERENCES users(id),
			counterpart_id   BIGINT       NOT NULL REFERENCES users(id),
			counterpart_role TEXT         NOT NULL,
			is_done          BOOLEAN      NOT NULL DEFAULT FALSE,
			date_added       TIMESTAMPTZ  NOT NULL,
			CONSTRAINT relationships_owner_counterpart_key UNIQUE (owner_id, counterpart_id),
			CONSTRAINT relationships_not_self CHECK (owner_id <> counterpart_id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_high ON conversations(user_high_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_message_reads_user ON message_reads(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
