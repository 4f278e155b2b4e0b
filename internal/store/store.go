// Package store selects a persistence backend and exposes its repositories.
package store

import (
	"database/sql"
	"fmt"

	"workmatch/internal/domain"
	"workmatch/internal/store/postgres"
	"workmatch/internal/store/sqlite"
)

// Repositories bundles every repository the services depend on.
type Repositories struct {
	Users         domain.UserRepository
	Conversations domain.ConversationRepository
	Messages      domain.MessageRepository
	Relationships domain.RelationshipRepository
}

// Store is an open database together with its repositories.
type Store struct {
	DB     *sql.DB
	Driver string
	Repositories
}

// Open connects to the configured backend. driver is "sqlite" or "postgres".
func Open(driver, dsn string) (*Store, error) {
	switch driver {
	case "postgres":
		db, err := postgres.Open(dsn)
		if err != nil {
			return nil, err
		}
		return &Store{DB: db, Driver: driver, Repositories: Repositories{
			Users:         postgres.NewUserRepo(db),
			Conversations: postgres.NewConversationRepo(db),
			Messages:      postgres.NewMessageRepo(db),
			Relationships: postgres.NewRelationshipRepo(db),
		}}, nil
	case "sqlite":
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, err
		}
		return &Store{DB: db, Driver: driver, Repositories: Repositories{
			Users:         sqlite.NewUserRepo(db),
			Conversations: sqlite.NewConversationRepo(db),
			Messages:      sqlite.NewMessageRepo(db),
			Relationships: sqlite.NewRelationshipRepo(db),
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate applies the schema for the store's backend.
func (s *Store) Migrate() error {
	if s.Driver == "postgres" {
		return postgres.Migrate(s.DB)
	}
	return sqlite.Migrate(s.DB)
}

func (s *Store) Close() error {
	return s.DB.Close()
}
