package accountrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
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

var errUnnormalizedUUID = errors.New("uuid is not normalized")

// Postgres keeps names in the player_names table of schema
type Postgres struct {
	db     *sqlx.DB
	schema string

	tracer trace.Tracer
}

func NewPostgres(db *sqlx.DB, schema string) *Postgres {
	return &Postgres{
		db:     db,
		schema: schema,

		tracer: otel.Tracer("advancements/accountrepository/postgres"),
	}
}

type dbPlayerName struct {
	PlayerUUID string    `db:"player_uuid"`
	Username   string    `db:"username"`
	QueriedAt  time.Time `db:"queried_at"`
}

func (n dbPlayerName) toDomain() domain.Account {
	return domain.Account{
		UUID:      n.PlayerUUID,
		Username:  n.Username,
		QueriedAt: n.QueriedAt,
	}
}

func (p *Postgres) table() string {
	return fmt.Sprintf("%s.player_names", pq.QuoteIdentifier(p.schema))
}

func requireNormalized(ctx context.Context, uuids ...string) error {
	for _, uuid := range uuids {
		if !strutils.UUIDIsNormalized(uuid) {
			reporting.Report(ctx, errUnnormalizedUUID, map[string]string{
				"uuid": uuid,
			})
			return fmt.Errorf("%w: %s", errUnnormalizedUUID, uuid)
		}
	}
	return nil
}

func (p *Postgres) StoreAccount(ctx context.Context, account domain.Account) error {
	ctx, span := p.tracer.Start(ctx, "Postgres.StoreAccount")
	defer span.End()

	if err := requireNormalized(ctx, account.UUID); err != nil {
		return err
	}

	// A name is only replaced by one that was queried later
	_, err := p.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s AS names (player_uuid, username, queried_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_uuid) DO UPDATE
		SET username = EXCLUDED.username, queried_at = EXCLUDED.queried_at
		WHERE names.queried_at < EXCLUDED.queried_at`,
		p.table(),
	),
		account.UUID,
		account.Username,
		account.QueriedAt,
	)
	if err != nil {
		err := fmt.Errorf("failed to store name of %s: %w", account.UUID, err)
		reporting.Report(ctx, err, map[string]string{
			"username":  account.Username,
			"queriedAt": account.QueriedAt.Format(time.RFC3339),
		})
		return err
	}

	return nil
}

func (p *Postgres) GetAccountByUUID(ctx context.Context, uuid string) (domain.Account, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetAccountByUUID")
	defer span.End()

	if err := requireNormalized(ctx, uuid); err != nil {
		return domain.Account{}, err
	}

	var name dbPlayerName
	err := p.db.GetContext(ctx, &name, fmt.Sprintf(
		"SELECT player_uuid, username, queried_at FROM %s WHERE player_uuid = $1",
		p.table(),
	), uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.ErrPlayerNotFound
	} else if err != nil {
		err := fmt.Errorf("failed to get name of %s: %w", uuid, err)
		reporting.Report(ctx, err)
		return domain.Account{}, err
	}

	return name.toDomain(), nil
}

func (p *Postgres) GetAccountsByUUIDs(ctx context.Context, uuids []string) ([]domain.Account, error) {
	ctx, span := p.tracer.Start(ctx, "Postgres.GetAccountsByUUIDs", trace.WithAttributes(
		attribute.Int("uuids", len(uuids)),
	))
	defer span.End()

	if len(uuids) == 0 {
		return []domain.Account{}, nil
	}
	if err := requireNormalized(ctx, uuids...); err != nil {
		return nil, err
	}

	names := []dbPlayerName{}
	err := p.db.SelectContext(ctx, &names, fmt.Sprintf(
		"SELECT player_uuid, username, queried_at FROM %s WHERE player_uuid = ANY($1) ORDER BY player_uuid",
		p.table(),
	), pq.Array(uuids))
	if err != nil {
		err := fmt.Errorf("failed to get names of %d players: %w", len(uuids), err)
		reporting.Report(ctx, err, map[string]string{
			"uuids": strings.Join(uuids, ","),
		})
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(names))
	for _, name := range names {
		accounts = append(accounts, name.toDomain())
	}
	return accounts, nil
}
