package migrations

import (
	"context"
	"time"

	"git.handmade.network/hmn/syllabus/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(Initial{})
}

type Initial struct{}

func (m Initial) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 9, 14, 12, 0, 0, 0, time.UTC))
}

func (m Initial) Name() string {
	return "Initial"
}

func (m Initial) Description() string {
	return "Users and login sessions"
}

func (m Initial) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE site_user (
			id SERIAL PRIMARY KEY,
			username VARCHAR(150) NOT NULL,
			password VARCHAR(256) NOT NULL DEFAULT '',
			email VARCHAR(254) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL DEFAULT '',
			date_joined TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			last_login TIMESTAMP WITH TIME ZONE,
			is_staff BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE UNIQUE INDEX site_user_username ON site_user (LOWER(username));

		CREATE TABLE session (
			id VARCHAR(40) PRIMARY KEY,
			username VARCHAR(150) NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
			csrf_token VARCHAR(30) NOT NULL
		);
		CREATE INDEX session_expires_at ON session (expires_at);
		`,
	)
	return err
}

func (m Initial) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP TABLE session;
		DROP TABLE site_user;
		`,
	)
	return err
}
