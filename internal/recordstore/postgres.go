package recordstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
	"github.com/dropDatabas3/mailmaint/internal/sequencer"
)

// Postgres persiste records en una tabla propia. El schema se asegura al
// construir el store (operator tool, una tabla: no amerita migraciones).
type Postgres struct {
	pool *pgxpool.Pool
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS maintenance_records (
    server     TEXT PRIMARY KEY,
    partner    TEXT NOT NULL DEFAULT '',
    policy     TEXT NOT NULL,
    run_id     TEXT NOT NULL,
    saved_at   TIMESTAMPTZ NOT NULL
);`

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("recordstore pg: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("recordstore pg: ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close libera el pool.
func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Save(ctx context.Context, rec *sequencer.MaintenanceRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO maintenance_records (server, partner, policy, run_id, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (server) DO UPDATE
		SET partner = EXCLUDED.partner, policy = EXCLUDED.policy,
		    run_id = EXCLUDED.run_id, saved_at = EXCLUDED.saved_at`,
		normKey(rec.Server), rec.Partner, string(rec.Policy), rec.RunID, rec.SavedAt)
	if err != nil {
		return fmt.Errorf("recordstore pg: upsert: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, server string) (*sequencer.MaintenanceRecord, error) {
	var rec sequencer.MaintenanceRecord
	var policy string
	err := p.pool.QueryRow(ctx, `
		SELECT server, partner, policy, run_id, saved_at
		FROM maintenance_records WHERE server = $1`, normKey(server)).
		Scan(&rec.Server, &rec.Partner, &policy, &rec.RunID, &rec.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("recordstore pg: select: %w", err)
	}
	rec.Policy = cp.ActivationPolicy(policy)
	return &rec, nil
}

func (p *Postgres) Delete(ctx context.Context, server string) error {
	if _, err := p.pool.Exec(ctx,
		`DELETE FROM maintenance_records WHERE server = $1`, normKey(server)); err != nil {
		return fmt.Errorf("recordstore pg: delete: %w", err)
	}
	return nil
}
