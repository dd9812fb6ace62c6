package db

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name VARCHAR(100) NOT NULL DEFAULT '',
		last_name VARCHAR(100) NOT NULL DEFAULT '',
		role VARCHAR(20) NOT NULL DEFAULT 'user',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id VARCHAR(64) PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		ip VARCHAR(64),
		ua VARCHAR(255)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions (expires_at)`,

	`CREATE TABLE IF NOT EXISTS user_files (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		content_type VARCHAR(128) NOT NULL DEFAULT 'application/octet-stream',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE(owner_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS contact_messages (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		reviewed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS activity_logs (
		id BIGSERIAL PRIMARY KEY,
		actor_id UUID REFERENCES profiles(id) ON DELETE SET NULL,
		action VARCHAR(64) NOT NULL,
		details JSONB NOT NULL DEFAULT '{}',
		ip_address VARCHAR(64),
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_activity_logs_occurred_at ON activity_logs (occurred_at DESC)`,

	`CREATE TABLE IF NOT EXISTS password_reset_tokens (
		token_hash VARCHAR(64) PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		used_at TIMESTAMPTZ
	)`,
}

// Migrate applies the schema statements in order. Statements are
// idempotent so repeated startup runs are safe.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range migrations {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migration %d: %w", i, err)
		}
	}
	return nil
}
