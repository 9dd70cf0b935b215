package migrations

import (
	"context"
	"time"

	"git.handmade.network/hmn/syllabus/src/migration/types"
	"github.com/jackc/pgx/v5"
)

func init() {
	registerMigration(AddCoursesAndSyllabi{})
}

type AddCoursesAndSyllabi struct{}

func (m AddCoursesAndSyllabi) Version() types.MigrationVersion {
	return types.MigrationVersion(time.Date(2026, 9, 21, 9, 30, 0, 0, time.UTC))
}

func (m AddCoursesAndSyllabi) Name() string {
	return "AddCoursesAndSyllabi"
}

func (m AddCoursesAndSyllabi) Description() string {
	return "Add courses, enrolments, stored files, and the two syllabus slots per course"
}

func (m AddCoursesAndSyllabi) Up(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		CREATE TABLE course (
			id SERIAL PRIMARY KEY,
			shortname VARCHAR(255) NOT NULL,
			fullname VARCHAR(1333) NOT NULL
		);

		CREATE TABLE enrolment (
			course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			user_id INT NOT NULL REFERENCES site_user (id) ON DELETE CASCADE,
			role VARCHAR(16) NOT NULL CHECK (role IN ('student', 'instructor')),
			UNIQUE (course_id, user_id)
		);

		CREATE TABLE asset (
			id UUID PRIMARY KEY,
			uploader_id INT REFERENCES site_user (id) ON DELETE SET NULL,
			s3_key VARCHAR(2000) NOT NULL UNIQUE,
			filename VARCHAR(1000) NOT NULL,
			size INT NOT NULL,
			mime_type VARCHAR(255) NOT NULL,
			sha1sum VARCHAR(40) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		);

		CREATE TABLE syllabus (
			id SERIAL PRIMARY KEY,
			course_id INT NOT NULL REFERENCES course (id) ON DELETE CASCADE,
			kind VARCHAR(16) NOT NULL CHECK (kind IN ('public', 'private')),
			access_level VARCHAR(16) NOT NULL CHECK (access_level IN ('public', 'loggedin', 'private')),
			display_name VARCHAR(255) NOT NULL,
			is_preview BOOLEAN NOT NULL DEFAULT FALSE,
			asset_id UUID REFERENCES asset (id) ON DELETE RESTRICT,
			url VARCHAR(1333),
			time_created TIMESTAMP WITH TIME ZONE NOT NULL,
			time_modified TIMESTAMP WITH TIME ZONE NOT NULL,
			UNIQUE (course_id, kind),
			CHECK ((asset_id IS NULL) <> (url IS NULL)),
			CHECK ((kind = 'private') = (access_level = 'private'))
		);
		`,
	)
	return err
}

func (m AddCoursesAndSyllabi) Down(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx,
		`
		DROP TABLE syllabus;
		DROP TABLE asset;
		DROP TABLE enrolment;
		DROP TABLE course;
		`,
	)
	return err
}
