// Package sqlstore implements the analysis repositories on database/sql.
// One implementation serves mysql, postgres and sqlite; see Dialect.
package sqlstore

import (
	"context"
	"database/sql"
)

// Store bundles the repositories that share one connection pool.
type Store struct {
	DB       *sql.DB
	Dialect  Dialect
	Requests *RequestRepository
	Reports  *ReportRepository
	Finals   *FinalReportRepository
	Tasks    *TaskRepository
}

func New(db *sql.DB, d Dialect) *Store {
	return &Store{
		DB:       db,
		Dialect:  d,
		Requests: NewRequestRepository(db, d),
		Reports:  NewReportRepository(db, d),
		Finals:   NewFinalReportRepository(db, d),
		Tasks:    NewTaskRepository(db, d),
	}
}

func (s *Store) Migrate(ctx context.Context) error { return Migrate(ctx, s.DB, s.Dialect) }

// Ping is used by the readiness check.
func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }
