package website

import (
	"errors"
	"net/http"

	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/db"
	"git.handmade.network/hmn/syllabus/src/hmndata"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
)

func loadCommonData(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		c.Perf.StartBlock("MIDDLEWARE", "Load common website data")
		{
			sessionCookie, err := c.Req.Cookie(auth.SessionCookieName)
			if err == nil {
				user, session, err := getCurrentUserAndSession(c, sessionCookie.Value)
				if err != nil {
					return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to get current user"))
				}

				c.CurrentUser = user
				c.CurrentSession = session
			}
			// http.ErrNoCookie is the only error Cookie ever returns, so no further handling to do here.
		}
		c.Perf.EndBlock()

		if c.CurrentUser != nil {
			l := c.Logger.With().Str("username", c.CurrentUser.Username).Logger()
			c.Logger = &l
		}
		c.ctx = logging.AttachLoggerToContext(c.Logger, c.ctx)

		return h(c)
	}
}

// Given a session id, fetches user data from the database. Will return nil if
// the user cannot be found, and will only return an error if it's serious.
func getCurrentUserAndSession(c *RequestContext, sessionId string) (*models.User, *models.Session, error) {
	session, err := auth.GetSession(c, c.Conn, sessionId)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return nil, nil, nil
		} else {
			return nil, nil, oops.New(err, "failed to get current session")
		}
	}

	user, err := hmndata.FetchUserByUsername(c, c.Conn, session.Username)
	if err != nil {
		if errors.Is(err, db.NotFound) {
			logging.Debug().Str("username", session.Username).Msg("returning no current user for this request because the user for the session couldn't be found")
			return nil, nil, nil // user was deleted or something
		} else {
			return nil, nil, oops.New(err, "failed to get user for session")
		}
	}

	return user, session, nil
}
