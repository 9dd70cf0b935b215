package auth

import (
	"context"
	"errors"

	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
)

var (
	ErrUserDoesNotExist = errors.New("user does not exist")
	ErrBadCredentials   = errors.New("incorrect username or password")
)

func UpdatePassword(ctx context.Context, conn db.ConnOrTx, username string, hp HashedPassword) error {
	tag, err := conn.Exec(ctx, "UPDATE site_user SET password = $1 WHERE username = $2", hp.String(), username)
	if err != nil {
		return oops.New(err, "failed to update password")
	} else if tag.RowsAffected() < 1 {
		return ErrUserDoesNotExist
	}

	return nil
}

func SetPassword(ctx context.Context, conn db.ConnOrTx, username string, password string) error {
	return UpdatePassword(ctx, conn, username, HashPassword(password))
}

// Looks up the user and checks their password. Wrong usernames and wrong
// passwords both come back as ErrBadCredentials.
func Authenticate(ctx context.Context, conn db.ConnOrTx, username, password string) (*models.User, error) {
	user, err := db.QueryOne[models.User](ctx, conn,
		`
		---- Fetch user for login
		SELECT $columns
		FROM site_user
		WHERE LOWER(username) = LOWER($1)
		`,
		username,
	)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			return nil, ErrBadCredentials
		}
		return nil, oops.New(err, "failed to look up user for login")
	}

	hashed, err := ParsePasswordString(user.Password)
	if err != nil {
		return nil, oops.New(err, "failed to parse password string for user %s", user.Username)
	}

	ok, err := CheckPassword(password, hashed)
	if err != nil {
		return nil, oops.New(err, "failed to check password for user %s", user.Username)
	}
	if !ok {
		return nil, ErrBadCredentials
	}

	_, err = conn.Exec(ctx, "UPDATE site_user SET last_login = NOW() WHERE id = $1", user.ID)
	if err != nil {
		return nil, oops.New(err, "failed to update last login")
	}

	return user, nil
}
