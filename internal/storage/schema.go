package storage

import (
	"context"
	"fmt"
)

// schemaStatements bootstrap and additively evolve the schema. Columns added
// after the first release only ever arrive via ADD COLUMN IF NOT EXISTS, so
// existing rows gain defaults and nothing is migrated destructively.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS offers (
        title        TEXT PRIMARY KEY,
        url          TEXT,
        model        TEXT,
        memory_gb    INTEGER,
        color_native TEXT,
        color_en     TEXT,
        sim_desc     TEXT,
        sim_count    INTEGER,
        stock_status TEXT,
        site_price   NUMERIC NOT NULL,
        resale_price NUMERIC NOT NULL DEFAULT 0,
        updated_at   TIMESTAMPTZ NOT NULL
    );`,
	`ALTER TABLE offers ADD COLUMN IF NOT EXISTS cashback TEXT;`,
	`ALTER TABLE offers ADD COLUMN IF NOT EXISTS image_url TEXT;`,
	`ALTER TABLE offers ADD COLUMN IF NOT EXISTS image_local TEXT;`,
	`ALTER TABLE offers ADD COLUMN IF NOT EXISTS image_key TEXT;`,

	`CREATE TABLE IF NOT EXISTS price_history (
        id           BIGSERIAL PRIMARY KEY,
        title        TEXT NOT NULL,
        ts           TIMESTAMPTZ NOT NULL,
        site_price   NUMERIC NOT NULL,
        stock_status TEXT
    );`,
	`ALTER TABLE price_history ADD COLUMN IF NOT EXISTS model TEXT;`,
	`CREATE INDEX IF NOT EXISTS idx_hist_title_ts ON price_history (title, ts);`,
	`CREATE INDEX IF NOT EXISTS idx_hist_model_ts ON price_history (model, ts);`,

	`CREATE TABLE IF NOT EXISTS watches (
        id              BIGSERIAL PRIMARY KEY,
        query           TEXT NOT NULL,
        mode            TEXT NOT NULL,
        threshold       NUMERIC,
        drop_amount     NUMERIC,
        last_best       NUMERIC,
        last_trigger_ts TIMESTAMPTZ,
        is_enabled      BOOLEAN NOT NULL DEFAULT TRUE,
        created_at      TIMESTAMPTZ NOT NULL
    );`,

	`CREATE TABLE IF NOT EXISTS alert_outbox (
        id       BIGSERIAL PRIMARY KEY,
        ts       TIMESTAMPTZ NOT NULL,
        watch_id BIGINT,
        message  TEXT NOT NULL,
        payload  JSONB
    );`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_ts ON alert_outbox (ts);`,

	`CREATE TABLE IF NOT EXISTS refresh_lease (
        name       TEXT PRIMARY KEY,
        holder     TEXT NOT NULL,
        started_at TIMESTAMPTZ NOT NULL
    );`,
}

// EnsureSchema applies the additive schema statements.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, stmt := range schemaStatements {
		if _, execErr := pool.Exec(ctx, stmt); execErr != nil {
			return fmt.Errorf("ensure schema: %w", execErr)
		}
	}
	return nil
}
