package completionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/reporting"
	"github.com/Amund211/advancements/internal/strutils"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Postgres struct {
	db      *sqlx.DB
	schema  string
	nowFunc func() time.Time

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string, nowFunc func() time.Time) *Postgres {
	tracer := otel.Tracer("advancements/completionstore/postgres")

	return &Postgres{
		db:      db,
		schema:  schema,
		nowFunc: nowFunc,

		tracer: tracer,
	}
}

type dbCompletionCount struct {
	PlayerUUID     string    `db:"player_uuid"`
	CompletedCount int       `db:"completed_count"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (p *Postgres) Load(ctx context.Context) (map[string]int, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.Load")
	defer span.End()

	txx, err := p.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to set search path: %w", domain.ErrStoreUnavailable, err)
	}

	var rows []dbCompletionCount
	err = txx.SelectContext(ctx, &rows, "SELECT player_uuid, completed_count, updated_at FROM completion_counts")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to select completion counts: %w", domain.ErrStoreUnavailable, err)
	}

	err = txx.Commit()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to commit transaction: %w", domain.ErrStoreUnavailable, err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		playerID, err := strutils.NormalizeUUID(row.PlayerUUID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid player uuid in database: %w", domain.ErrCorruptState, err)
		}
		if row.CompletedCount < 0 {
			return nil, fmt.Errorf("%w: negative count for %s", domain.ErrCorruptState, playerID)
		}
		counts[playerID] = row.CompletedCount
	}

	span.SetAttributes(attribute.Int("players", len(counts)))

	return counts, nil
}

// Save upserts every count in a single transaction. Rows for players missing
// from counts are left untouched.
func (p *Postgres) Save(ctx context.Context, counts map[string]int) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.Save")
	defer span.End()
	span.SetAttributes(attribute.Int("players", len(counts)))

	for playerID := range counts {
		if !strutils.UUIDIsNormalized(playerID) {
			err := fmt.Errorf("uuid is not normalized")
			reporting.Report(ctx, err, map[string]string{
				"uuid": playerID,
			})
			return err
		}
	}

	txx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to start transaction: %w", domain.ErrStoreUnavailable, err)
	}
	defer txx.Rollback()

	_, err = txx.ExecContext(ctx, fmt.Sprintf("SET search_path TO %s", pq.QuoteIdentifier(p.schema)))
	if err != nil {
		return fmt.Errorf("%w: failed to set search path: %w", domain.ErrStoreUnavailable, err)
	}

	stmt, err := txx.PreparexContext(
		ctx,
		`INSERT INTO completion_counts
		(player_uuid, completed_count, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_uuid)
		DO UPDATE SET
			completed_count = EXCLUDED.completed_count,
			updated_at = EXCLUDED.updated_at
		WHERE completion_counts.completed_count != EXCLUDED.completed_count`,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare upsert: %w", domain.ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	now := p.nowFunc()
	for playerID, count := range counts {
		_, err := stmt.ExecContext(ctx, playerID, count, now)
		if err != nil {
			return fmt.Errorf("%w: failed to upsert count %d for %s: %w", domain.ErrStoreUnavailable, count, playerID, err)
		}
	}

	err = txx.Commit()
	if err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", domain.ErrStoreUnavailable, err)
	}

	return nil
}
