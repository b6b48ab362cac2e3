package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/repository"
)

// NewRepositories creates the Postgres-backed repositories. The session store
// lives in Redis and is attached by the caller.
func NewRepositories(db *sql.DB, session repository.SessionRepository, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Session: session,
		Event:   NewEventRepository(db, logger),
	}
}
