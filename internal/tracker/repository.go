package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/contexthelpers"
	"github.com/jersjar7/Fit14-sub001/internal/sqlite"
)

// repository bundles the repositories of the three persisted aggregates.
type repository struct {
	goals      *sqliteGoalRepository
	plans      *sqlitePlanRepository
	challenges *sqliteChallengeRepository
}

func newRepository(db *sqlite.Database, logger *slog.Logger, now func() time.Time) *repository {
	base := newBaseRepository(db, logger, now)
	return &repository{
		goals:      &sqliteGoalRepository{baseRepository: base},
		plans:      &sqlitePlanRepository{baseRepository: base},
		challenges: &sqliteChallengeRepository{baseRepository: base},
	}
}

// baseRepository holds the dependencies shared by every repository.
type baseRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
	// now stamps bookkeeping columns such as updated_at.
	now func() time.Time
}

func newBaseRepository(db *sqlite.Database, logger *slog.Logger, now func() time.Time) baseRepository {
	return baseRepository{
		db:     db,
		logger: logger,
		now:    now,
	}
}

// queryRower is implemented by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// deviceID returns the device the repositories are scoped to.
func deviceID(ctx context.Context) (string, error) {
	id := contexthelpers.DeviceID(ctx)
	if id == "" {
		return "", ErrNoDevice
	}
	return id, nil
}

// ensureDevice registers the device on its first write.
func ensureDevice(ctx context.Context, tx *sql.Tx, deviceID string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO devices (id) VALUES (?) ON CONFLICT (id) DO NOTHING`,
		deviceID); err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(sqlite.TimestampFormat)
}

// parseTimestamp parses a nullable timestamp column. NULL is the zero time.
func parseTimestamp(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(sqlite.TimestampFormat, s.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t, nil
}
