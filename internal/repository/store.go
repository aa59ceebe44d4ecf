package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrConflict is returned when a write would break a uniqueness guarantee,
// such as a second open treatment for one operation.
var ErrConflict = errors.New("repository: conflicting row")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles every repository bound to one connection or transaction.
type Repositories struct {
	Tickets       TicketRepository
	Operations    OperationRepository
	Treatments    TreatmentRepository
	Resolutions   ResolutionRepository
	Pauses        PauseRepository
	ServicePoints ServicePointRepository
	Sectors       SectorRepository
	Clients       ClientRepository
	Staff         StaffRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	// WithinTx runs fn in a transaction; it commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// NewRepositories binds the Postgres repositories to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Tickets:       NewTicketRepository(db),
		Operations:    NewOperationRepository(db),
		Treatments:    NewTreatmentRepository(db),
		Resolutions:   NewResolutionRepository(db),
		Pauses:        NewPauseRepository(db),
		ServicePoints: NewServicePointRepository(db),
		Sectors:       NewSectorRepository(db),
		Clients:       NewClientRepository(db),
		Staff:         NewStaffRepository(db),
	}
}

type postgresStore struct {
	pool  *pgxpool.Pool
	repos Repositories
}

// NewPostgresStore builds a Store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, repos: NewRepositories(pool)}
}

func (s *postgresStore) Repositories() Repositories {
	return s.repos
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(Repositories) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(NewRepositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

const uniqueViolation = "23505"

// mapWriteError turns unique violations into ErrConflict.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// timeOrNil lets COALESCE($n, NOW()) fill in unset timestamps.
func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
