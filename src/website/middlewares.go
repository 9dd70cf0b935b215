package website

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/lang"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/perf"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Everything a handler needs besides the request.
type Dependencies struct {
	Conn    *pgxpool.Pool
	Courses CourseDirectory
	Syllabi *syllabus.Manager
}

func setDependencies(deps Dependencies) Middleware {
	return func(h Handler) Handler {
		return func(c *RequestContext) ResponseData {
			c.Conn = deps.Conn
			c.Courses = deps.Courses
			c.Syllabi = deps.Syllabi
			return h(c)
		}
	}
}

func panicCatcherMiddleware(h Handler) Handler {
	return func(c *RequestContext) (res ResponseData) {
		defer func() {
			if recovered := recover(); recovered != nil {
				var err error
				if recoveredErr, ok := recovered.(error); ok {
					err = oops.New(recoveredErr, "Recovered from panic")
				} else {
					err = oops.New(nil, "Recovered from panic with value: %v", recovered)
				}
				res = c.ErrorResponse(http.StatusInternalServerError, err)
			}
		}()

		return h(c)
	}
}

func trackRequestPerf(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		c.Perf = perf.MakeNewRequestPerf(c.Route, c.Req.Method, c.Req.URL.Path)
		defer func() {
			c.Perf.EndRequest()
			c.Logger.Info().Strs("blocks", c.Perf.Lines()).Msgf("Served [%s] %s in %.4fms", c.Perf.Method, c.Perf.Path, c.Perf.DurationMs())
		}()

		return h(c)
	}
}

func needsAuth(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.CurrentUser == nil {
			return c.Redirect(hmnurl.BuildLoginWithRedirect(c.FullUrl()), http.StatusSeeOther)
		}

		return h(c)
	}
}

// Room for the text fields and multipart framing around an upload.
const uploadBodySlack = 64 * 1024

// Stops reading the body once it passes the largest allowed upload, so
// oversized files never reach memory or disk.
func limitUploadSize(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		if c.Syllabi == nil || c.Syllabi.MaxFileSize <= 0 {
			return h(c)
		}

		c.Req.Body = http.MaxBytesReader(nil, c.Req.Body, int64(c.Syllabi.MaxFileSize)+uploadBodySlack)
		err := c.Req.ParseMultipartForm(maxFormMemory)

		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Logger.Warn().Int64("limit", tooLarge.Limit).Msg("rejected oversized request body")
			return c.ErrorResponse(http.StatusRequestEntityTooLarge,
				NewSafeError(err, "%s", lang.T(lang.ErrFileTooLarge, fileSizeText(c.Syllabi.MaxFileSize))))
		}

		return h(c)
	}
}

func csrfMiddleware(h Handler) Handler {
	// CSRF mitigation actions per the OWASP cheat sheet:
	// https://cheatsheetseries.owasp.org/cheatsheets/Cross-Site_Request_Forgery_Prevention_Cheat_Sheet.html
	return func(c *RequestContext) ResponseData {
		c.Req.ParseMultipartForm(maxFormMemory)
		csrfToken := c.Req.Form.Get(auth.CSRFFieldName)
		if c.CurrentSession == nil || csrfToken == "" || csrfToken != c.CurrentSession.CSRFToken {
			username := ""
			if c.CurrentUser != nil {
				username = c.CurrentUser.Username
			}
			c.Logger.Warn().Str("username", username).Msg("user failed CSRF validation - potential attack?")

			res := c.Redirect(hmnurl.BuildHomepage(), http.StatusSeeOther)
			logoutUser(c, &res)

			return res
		}

		return h(c)
	}
}

// Makes sure that the request takes at least `duration` to finish, plus up to
// 10% more at random, so that response times say nothing about credentials.
func securityTimerMiddleware(duration time.Duration, h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		additionalDuration := time.Duration(rand.Int63n(max(1, int64(duration)/10)))
		timer := time.NewTimer(duration + additionalDuration)
		defer timer.Stop()
		res := h(c)
		select {
		case <-c.Done():
		case <-timer.C:
		}
		return res
	}
}

func logContextErrors(c *RequestContext, errs ...error) {
	for _, err := range errs {
		c.Logger.Error().Timestamp().Stack().Str("Requested", c.FullUrl()).Err(err).Msg("error occurred during request")
	}
}

func logContextErrorsMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)
		logContextErrors(c, res.Errors...)
		return res
	}
}
