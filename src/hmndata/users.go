package hmndata

import (
	"context"
	"errors"
	"strings"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/perf"
)

/*
Fetches a user by username, ignoring case.

Returns db.NotFound if no result is found.
*/
func FetchUserByUsername(ctx context.Context, dbConn db.ConnOrTx, username string) (*models.User, error) {
	perf := perf.ExtractPerf(ctx)
	perf.StartBlock("SQL", "Fetch user by username")
	defer perf.EndBlock()

	user, err := db.QueryOne[models.User](ctx, dbConn,
		`
		---- Fetch user by username
		SELECT $columns
		FROM site_user
		WHERE LOWER(username) = $1
		`,
		strings.ToLower(username),
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, db.NotFound
		}
		return nil, oops.New(err, "failed to fetch user")
	}

	return user, nil
}
