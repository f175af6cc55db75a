package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mooover/mooover-services/internal/apperr"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/mooover/mooover-services/models"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo implements services.Repository on top of a querier.
type repo struct {
	q querier
}

// StepsDB is the PostgreSQL implementation of services.Store.
type StepsDB struct {
	repo
	DB  *sql.DB
	Log *zerolog.Logger
}

var _ services.Store = (*StepsDB)(nil)

// NewStepsDB opens and pings the database at connStr.
func NewStepsDB(connStr string, log *zerolog.Logger) (*StepsDB, error) {
	if connStr == "" {
		log.Error().Msg("database source is not set")
		return nil, fmt.Errorf("database source is not set")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open database connection")
		return nil, err
	}

	// Check we are actually connected
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Database connection failed during ping")
		db.Close()
		return nil, err
	}

	return NewStepsDBFromConn(db, log), nil
}

// NewStepsDBFromConn wraps an already opened connection pool.
func NewStepsDBFromConn(db *sql.DB, log *zerolog.Logger) *StepsDB {
	return &StepsDB{repo: repo{q: db}, DB: db, Log: log}
}

func (s *StepsDB) Close() error {
	if err := s.DB.Close(); err != nil {
		return err
	}
	s.Log.Info().Msg("database connection closed")
	return nil
}

// Migrate applies every pending migration.
func (s *StepsDB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{s.Log})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, s.DB, "migrations"); err != nil {
		s.Log.Error().Err(err).Msg("failed to run migrations")
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Atomically runs fn inside one transaction. The transaction is rolled back when fn fails.
func (s *StepsDB) Atomically(ctx context.Context, fn func(services.Repository) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Internal(err, "error starting transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.Log.Error().Err(rbErr).Msg("error rolling back transaction")
			}
		}
	}()

	if err = fn(repo{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return apperr.Internal(err, "error committing transaction")
	}
	return nil
}

// mapError translates driver errors into application errors. missing is returned when
// no row matched or a referenced row does not exist, duplicate when a unique key is taken.
func mapError(err, missing, duplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && missing != nil {
		return missing
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			if duplicate != nil {
				return duplicate
			}
		case "23503": // foreign_key_violation
			if missing != nil {
				return missing
			}
		case "23514": // check_violation
			return apperr.Validation("steps must not be negative")
		case "22003": // numeric_value_out_of_range
			return apperr.Validation("steps must not exceed %d", models.MaxSteps)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Internal(err, "database error")
}

// expectRow turns an UPDATE or DELETE that matched nothing into a NotFound error.
func expectRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Internal(err, "database error")
	}
	if n == 0 {
		return missing
	}
	return nil
}

type gooseLogger struct {
	log *zerolog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Fatal().Msgf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Msgf(format, v...)
}
