package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories so a service can run several of them in one transaction.
type Store interface {
	Users() UserRepository
	Projects() ProjectRepository
	States() StateRepository
	Logs() LogRepository
	Audits() AuditRepository
	Markers() MarkerRepository
	// WithTransaction runs fn with a Store bound to a single database transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed store.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository       { return NewUserRepository(s.db) }
func (s *gormStore) Projects() ProjectRepository { return NewProjectRepository(s.db) }
func (s *gormStore) States() StateRepository     { return NewStateRepository(s.db) }
func (s *gormStore) Logs() LogRepository         { return NewLogRepository(s.db) }
func (s *gormStore) Audits() AuditRepository     { return NewAuditRepository(s.db) }
func (s *gormStore) Markers() MarkerRepository   { return NewMarkerRepository(s.db) }

// WithTransaction executes a function within a database transaction.
func (s *gormStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormStore{db: tx})
	})
}
