package syllabus

import (
	"context"
	"errors"
	"time"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresStore struct {
	Conn db.ConnOrTx
}

var _ Store = &PostgresStore{}

type syllabusRow struct {
	ID           int         `db:"id"`
	CourseID     int         `db:"course_id"`
	Kind         Kind        `db:"kind"`
	AccessLevel  AccessLevel `db:"access_level"`
	DisplayName  string      `db:"display_name"`
	IsPreview    bool        `db:"is_preview"`
	AssetID      *uuid.UUID  `db:"asset_id"`
	Url          *string     `db:"url"`
	TimeCreated  time.Time   `db:"time_created"`
	TimeModified time.Time   `db:"time_modified"`
}

type syllabusAndAsset struct {
	Syllabus syllabusRow   `db:"s"`
	Asset    *models.Asset `db:"a"`
}

func (row *syllabusAndAsset) toRecord() *Record {
	rec := &Record{
		ID:           row.Syllabus.ID,
		CourseID:     row.Syllabus.CourseID,
		Kind:         row.Syllabus.Kind,
		AccessLevel:  row.Syllabus.AccessLevel,
		DisplayName:  row.Syllabus.DisplayName,
		IsPreview:    row.Syllabus.IsPreview,
		TimeCreated:  row.Syllabus.TimeCreated,
		TimeModified: row.Syllabus.TimeModified,
	}
	if row.Asset != nil {
		rec.Source.File = FileFromAsset(row.Asset)
	} else if row.Syllabus.Url != nil {
		rec.Source.Url = *row.Syllabus.Url
	}
	return rec
}

func FileFromAsset(a *models.Asset) *File {
	return &File{
		AssetID:  a.ID,
		Key:      a.S3Key,
		Filename: a.Filename,
		MimeType: a.MimeType,
		Size:     a.Size,
	}
}

func (s *PostgresStore) Syllabi(ctx context.Context, courseID int) (Records, error) {
	rows, err := db.Query[syllabusAndAsset](ctx, s.Conn,
		`
		---- Fetch syllabi for course
		SELECT $columns
		FROM
			syllabus AS s
			LEFT JOIN asset AS a ON a.id = s.asset_id
		WHERE s.course_id = $1
		`,
		courseID,
	)
	if err != nil {
		return Records{}, oops.New(err, "failed to query syllabi")
	}

	var records Records
	for _, row := range rows {
		records.Set(row.Syllabus.Kind, row.toRecord())
	}
	return records, nil
}

func sourceArgs(src Source) (*uuid.UUID, *string) {
	if src.File != nil {
		id := src.File.AssetID
		return &id, nil
	}
	url := src.Url
	return nil, &url
}

func (s *PostgresStore) Insert(ctx context.Context, rec *Record) error {
	assetID, url := sourceArgs(rec.Source)
	now := time.Now()

	id, err := db.QueryOneScalar[int](ctx, s.Conn,
		`
		---- Insert syllabus
		INSERT INTO syllabus (course_id, kind, access_level, display_name, is_preview, asset_id, url, time_created, time_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
		`,
		rec.CourseID,
		string(rec.Kind),
		string(rec.AccessLevel),
		rec.DisplayName,
		rec.IsPreview,
		assetID,
		url,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if rec.Kind == KindPublic {
				return ErrDuplicatePublic
			}
			return errKindTaken
		}
		return oops.New(err, "failed to insert syllabus")
	}

	rec.ID = id
	rec.TimeCreated = now
	rec.TimeModified = now
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, rec *Record) error {
	assetID, url := sourceArgs(rec.Source)
	now := time.Now()

	tag, err := s.Conn.Exec(ctx,
		`
		---- Update syllabus
		UPDATE syllabus
		SET
			access_level = $4,
			display_name = $5,
			is_preview = $6,
			asset_id = $7,
			url = $8,
			time_modified = $9
		WHERE
			id = $1
			AND course_id = $2
			AND kind = $3
		`,
		rec.ID,
		rec.CourseID,
		string(rec.Kind),
		string(rec.AccessLevel),
		rec.DisplayName,
		rec.IsPreview,
		assetID,
		url,
		now,
	)
	if err != nil {
		return oops.New(err, "failed to update syllabus")
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSuchSyllabus
	}

	rec.TimeModified = now
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, courseID int, kind Kind) error {
	tag, err := s.Conn.Exec(ctx,
		`
		---- Delete syllabus
		DELETE FROM syllabus
		WHERE course_id = $1 AND kind = $2
		`,
		courseID,
		string(kind),
	)
	if err != nil {
		return oops.New(err, "failed to delete syllabus")
	}
	if tag.RowsAffected() == 0 {
		return ErrNoSuchSyllabus
	}
	return nil
}

func (s *PostgresStore) Convert(ctx context.Context, courseID int, from Kind, converted *Record) error {
	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return oops.New(err, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	kinds, err := db.QueryScalar[Kind](ctx, tx,
		`
		---- Lock syllabi for conversion
		SELECT kind
		FROM syllabus
		WHERE course_id = $1
		FOR UPDATE
		`,
		courseID,
	)
	if err != nil {
		return oops.New(err, "failed to lock syllabi")
	}

	hasFrom := false
	for _, k := range kinds {
		if k == from.Opposite() {
			return ErrAmbiguousConversion
		}
		if k == from {
			hasFrom = true
		}
	}
	if !hasFrom {
		return ErrNoSuchSyllabus
	}

	now := time.Now()
	_, err = tx.Exec(ctx,
		`
		---- Convert syllabus
		UPDATE syllabus
		SET
			kind = $3,
			access_level = $4,
			is_preview = $5,
			time_modified = $6
		WHERE course_id = $1 AND kind = $2
		`,
		courseID,
		string(from),
		string(converted.Kind),
		string(converted.AccessLevel),
		converted.IsPreview,
		now,
	)
	if err != nil {
		return oops.New(err, "failed to convert syllabus")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return oops.New(err, "failed to commit syllabus conversion")
	}

	converted.TimeModified = now
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
