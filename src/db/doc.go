/*
This package contains lowish-level APIs for making database queries to our Postgres database. It maps query results to Go types while still letting you write plain SQL.

The primary functions are Query and QueryIterator.

# Query syntax

Arguments can be provided using placeholders like $1, $2, etc. All arguments are passed through to pgx, which escapes them and maps them to the right Postgres type.

	courseIDs, err := db.QueryScalar[int](ctx, conn,
		`
		SELECT course_id
		FROM enrolment
		WHERE
			username = $1
			AND role = ANY($2)
		`,
		"alice",
		[]string{"student", "instructor"},
	)

(If you want to use a slice in your query, use Postgres arrays instead of IN.)

To query multiple columns at once, use a struct type with `db:"column_name"` tags and the special $columns placeholder:

	type Course struct {
		ID        int    `db:"id"`
		ShortName string `db:"shortname"`
	}
	courses, err := db.Query[Course](ctx, conn, `SELECT $columns FROM course`)
	// Resulting query:
	// SELECT id, shortname FROM course

When a JOIN makes column names ambiguous, put the table alias in the placeholder as $columns{alias}. Nested structs with their own db tag get their tag appended to the prefix, so a field tagged "asset" inside $columns{s} selects from s_asset:

	type SyllabusAndAsset struct {
		Syllabus models.Syllabus `db:"s"`
		Asset    *models.Asset   `db:"a"`
	}
	rows, err := db.Query[SyllabusAndAsset](ctx, conn, `
		SELECT $columns
		FROM
			syllabus AS s
			LEFT JOIN asset AS a ON a.id = s.asset_id
	`)
	// Resulting query:
	// SELECT s.id, s.course_id, ..., a.id, a.s3_key, ... FROM ...

Pointer fields stay nil when their column is NULL, and pointer structs stay nil when all of their columns are NULL. This makes LEFT JOINs come out naturally.
*/
package db
