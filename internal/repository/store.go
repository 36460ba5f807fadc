package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle. A Store obtained
// inside Transaction is bound to that transaction.
type Store interface {
	Students() StudentRepository
	Activity() ActivityLogRepository
	Analytics() AnalyticsRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Students() StudentRepository {
	return NewStudentRepository(s.db)
}

func (s *gormStore) Activity() ActivityLogRepository {
	return NewActivityLogRepository(s.db)
}

func (s *gormStore) Analytics() AnalyticsRepository {
	return NewAnalyticsRepository(s.db)
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
