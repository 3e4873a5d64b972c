package repository

import (
	"database/sql"
)

// Repository provides database operations. All tables live in the
// billing schema; the schema is expected to exist before startup.
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
