package store

import (
	"context"
	"fmt"
)

// schemaStatements are applied in order on startup. Every statement is idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS countries (
		code2 VARCHAR(2) PRIMARY KEY,
		code3 VARCHAR(3) NOT NULL DEFAULT '',
		name  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cities (
		id           BIGSERIAL PRIMARY KEY,
		country_code VARCHAR(2) NOT NULL REFERENCES countries (code2) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		region       TEXT,
		CONSTRAINT cities_country_name_key UNIQUE (country_code, name)
	)`,
	`CREATE TABLE IF NOT EXISTS partners (
		id                       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		organization_name        VARCHAR(255) NOT NULL,
		organization_description TEXT,
		website                  TEXT,
		is_verified              BOOLEAN NOT NULL DEFAULT FALSE,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email               TEXT NOT NULL,
		first_name          VARCHAR(150) NOT NULL DEFAULT '',
		last_name           VARCHAR(150) NOT NULL DEFAULT '',
		role                VARCHAR(10) NOT NULL DEFAULT '' CHECK (role IN ('', 'wisher', 'donor')),
		country             VARCHAR(2) NOT NULL DEFAULT '',
		city                VARCHAR(100) NOT NULL DEFAULT '',
		phone_number        VARCHAR(20) NOT NULL DEFAULT '',
		language_preference VARCHAR(10) NOT NULL DEFAULT 'en',
		password_hash       TEXT NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS wisher_profiles (
		user_id        UUID PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
		verified_by    UUID REFERENCES partners (id) ON DELETE SET NULL,
		household_size INTEGER CHECK (household_size IS NULL OR household_size > 0),
		income_bracket VARCHAR(20) CHECK (income_bracket IS NULL OR income_bracket IN ('below_average', 'average', 'above_average')),
		id_document    TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS donor_profiles (
		user_id           UUID PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
		display_name      VARCHAR(100) NOT NULL DEFAULT '',
		hear_about        VARCHAR(20) CHECK (hear_about IS NULL OR hear_about IN ('search', 'social', 'friend', 'news', 'other')),
		giving_focus      TEXT[] NOT NULL DEFAULT '{}',
		show_display_name BOOLEAN NOT NULL DEFAULT TRUE,
		is_anonymous      BOOLEAN NOT NULL DEFAULT FALSE,
		visibility        BOOLEAN NOT NULL DEFAULT TRUE,
		impact_score      DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (impact_score >= 0),
		total_donations   INTEGER NOT NULL DEFAULT 0 CHECK (total_donations >= 0),
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS wishes (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title       VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		user_id     UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		status      VARCHAR(10) NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'fulfilled', 'expired')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS wishes_user_created_idx ON wishes (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS wishes_status_created_idx ON wishes (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS donations (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		wish_id    UUID NOT NULL REFERENCES wishes (id) ON DELETE CASCADE,
		donor_id   UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		notes      TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT donations_wish_donor_key UNIQUE (wish_id, donor_id)
	)`,
	`CREATE TABLE IF NOT EXISTS event_outbox (
		id                    BIGSERIAL PRIMARY KEY,
		exchange              TEXT NOT NULL,
		routing_key           TEXT NOT NULL,
		payload               JSONB NOT NULL,
		status                VARCHAR(12) NOT NULL DEFAULT 'pending',
		attempts              INTEGER NOT NULL DEFAULT 0,
		next_attempt_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processing_started_at TIMESTAMPTZ,
		published_at          TIMESTAMPTZ,
		last_error            TEXT,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS event_outbox_pending_idx ON event_outbox (status, next_attempt_at)`,
}

// EnsureSchema creates any missing tables and indexes.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
