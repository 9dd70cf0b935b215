package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/jobs"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"github.com/rs/zerolog"
)

const (
	SessionCookieName = "SyllabusSession"
	CSRFFieldName     = "csrf_token"

	sessionDuration = 14 * 24 * time.Hour
)

func makeSessionId() string {
	return randomToken(40)
}

func makeCSRFToken() string {
	return randomToken(30)
}

// A random base64 string of exactly n characters.
func randomToken(n int) string {
	raw := make([]byte, base64.RawURLEncoding.DecodedLen(n)+1)
	if _, err := rand.Read(raw); err != nil {
		panic(oops.New(err, "failed to generate token"))
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:n]
}

var ErrNoSession = errors.New("no session found")

func GetSession(ctx context.Context, conn db.ConnOrTx, id string) (*models.Session, error) {
	sess, err := db.QueryOne[models.Session](ctx, conn,
		`
		---- Fetch session
		SELECT $columns
		FROM session
		WHERE id = $1 AND expires_at > NOW()
		`,
		id,
	)
	if errors.Is(err, db.NotFound) {
		return nil, ErrNoSession
	} else if err != nil {
		return nil, oops.New(err, "failed to get session")
	}
	return sess, nil
}

func CreateSession(ctx context.Context, conn db.ConnOrTx, username string) (*models.Session, error) {
	session := models.Session{
		ID:        makeSessionId(),
		Username:  username,
		ExpiresAt: time.Now().Add(sessionDuration),
		CSRFToken: makeCSRFToken(),
	}

	_, err := conn.Exec(ctx,
		"INSERT INTO session (id, username, expires_at, csrf_token) VALUES ($1, $2, $3, $4)",
		session.ID, session.Username, session.ExpiresAt, session.CSRFToken,
	)
	if err != nil {
		return nil, oops.New(err, "failed to persist session")
	}

	return &session, nil
}

// Deletes a session by id. If no session with that id exists, no
// error is returned.
func DeleteSession(ctx context.Context, conn db.ConnOrTx, id string) error {
	_, err := conn.Exec(ctx, "DELETE FROM session WHERE id = $1", id)
	if err != nil {
		return oops.New(err, "failed to delete session")
	}

	return nil
}

func NewSessionCookie(session *models.Session) *http.Cookie {
	return &http.Cookie{
		Name:  SessionCookieName,
		Value: session.ID,
		Path:  "/",

		Domain:  config.Config.Auth.CookieDomain,
		Expires: time.Now().Add(sessionDuration),

		Secure:   config.Config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

var DeleteSessionCookie = &http.Cookie{
	Name:   SessionCookieName,
	Path:   "/",
	Domain: config.Config.Auth.CookieDomain,
	MaxAge: -1,
}

func DeleteExpiredSessions(ctx context.Context, conn db.ConnOrTx) (int64, error) {
	tag, err := conn.Exec(ctx, "DELETE FROM session WHERE expires_at <= CURRENT_TIMESTAMP")
	if err != nil {
		return 0, oops.New(err, "failed to delete expired sessions")
	}

	return tag.RowsAffected(), nil
}

func PeriodicallyDeleteExpiredSessions(conn db.ConnOrTx) *jobs.Job {
	return jobs.Every("delete expired sessions", time.Minute, func(ctx context.Context, logger *zerolog.Logger) error {
		n, err := DeleteExpiredSessions(ctx, conn)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info().Int64("num deleted sessions", n).Msg("Deleted expired sessions")
		}
		return nil
	})
}
