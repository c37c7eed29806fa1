package release

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roomsense/roomsense-platform/pkg/postgres"
)

// DecisionArchive stores countdown resolutions durably
type DecisionArchive interface {
	Store(ctx context.Context, d Decision) error
}

// PostgresArchive archives decisions into the release_decisions table
type PostgresArchive struct {
	pg     postgres.Client
	logger *slog.Logger
}

// NewPostgresArchive creates a Postgres-backed decision archive
func NewPostgresArchive(pgClient postgres.Client, logger *slog.Logger) *PostgresArchive {
	return &PostgresArchive{
		pg:     pgClient,
		logger: logger,
	}
}

// EnsureSchema creates the archive table if it does not exist
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS release_decisions (
			id UUID PRIMARY KEY,
			room TEXT NOT NULL,
			session_id UUID NOT NULL,
			booking_id TEXT NOT NULL DEFAULT '',
			meeting_id TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS release_decisions_room_idx
			ON release_decisions (room, resolved_at DESC);
	`

	if _, err := a.pg.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create release_decisions schema: %w", err)
	}

	a.logger.Info("Decision archive schema ready")
	return nil
}

// Store inserts one decision row
func (a *PostgresArchive) Store(ctx context.Context, d Decision) error {
	query := `
		INSERT INTO release_decisions
			(id, room, session_id, booking_id, meeting_id, outcome, started_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := a.pg.Exec(ctx, query,
		d.ID, d.Room, d.SessionID, d.BookingID, d.MeetingID, d.Outcome, d.StartedAt, d.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to archive decision %s: %w", d.ID, err)
	}

	return nil
}
