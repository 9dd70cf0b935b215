package website

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/templates"
)

type LoginPageData struct {
	templates.BaseData
	LoginActionUrl string
	RedirectUrl    string
	Username       string
}

func LoginPage(c *RequestContext) ResponseData {
	if c.CurrentUser != nil {
		return c.RejectRequest("You are already logged in.")
	}

	var res ResponseData
	res.MustWriteTemplate("login.html", LoginPageData{
		BaseData:       getBaseData(c, "Log in"),
		LoginActionUrl: hmnurl.BuildLogin(),
		RedirectUrl:    c.Req.URL.Query().Get("redirect"),
	}, c.Perf)
	return res
}

func Login(c *RequestContext) ResponseData {
	if c.CurrentUser != nil {
		return c.RejectRequest("You are already logged in.")
	}

	if err := c.Req.ParseForm(); err != nil {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "request must contain form data"))
	}
	form := c.Req.PostForm

	username := strings.TrimSpace(form.Get("username"))
	password := form.Get("password")
	if username == "" || password == "" {
		return c.RejectRequest("You must provide both a username and password")
	}

	redirect := form.Get("redirect")
	if redirect == "" || !isLocalRedirect(redirect) {
		redirect = hmnurl.BuildHomepage()
	}

	c.Perf.StartBlock("AUTH", "Check credentials")
	user, err := auth.Authenticate(c, c.Conn, username, password)
	c.Perf.EndBlock()
	if err != nil {
		if errors.Is(err, auth.ErrBadCredentials) {
			var res ResponseData
			baseData := getBaseData(c, "Log in")
			baseData.AddImmediateNotice(NoticeFailure, "Incorrect username or password")
			res.StatusCode = http.StatusUnauthorized
			res.MustWriteTemplate("login.html", LoginPageData{
				BaseData:       baseData,
				LoginActionUrl: hmnurl.BuildLogin(),
				RedirectUrl:    redirect,
				Username:       username,
			}, c.Perf)
			return res
		}
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	res := c.Redirect(redirect, http.StatusSeeOther)
	err = loginUser(c, user, &res)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	c.Logger.Info().Str("username", user.Username).Msg("User logged in")
	return res
}

func Logout(c *RequestContext) ResponseData {
	redir := c.Req.Form.Get("redirect")
	if redir == "" || !isLocalRedirect(redir) {
		redir = hmnurl.BuildHomepage()
	}

	res := c.Redirect(redir, http.StatusSeeOther)
	logoutUser(c, &res)

	return res
}

func loginUser(c *RequestContext, user *models.User, res *ResponseData) error {
	c.Perf.StartBlock("SQL", "Creating session")
	defer c.Perf.EndBlock()

	session, err := auth.CreateSession(c, c.Conn, user.Username)
	if err != nil {
		return oops.New(err, "failed to create session")
	}

	res.SetCookie(auth.NewSessionCookie(session))
	return nil
}

func logoutUser(c *RequestContext, res *ResponseData) {
	sessionCookie, err := c.Req.Cookie(auth.SessionCookieName)
	if err == nil && c.Conn != nil {
		// clear the session from the db immediately, no expiration
		err := auth.DeleteSession(c, c.Conn, sessionCookie.Value)
		if err != nil {
			c.Logger.Error().Err(err).Msg("failed to delete session on logout")
		}
	}

	res.SetCookie(auth.DeleteSessionCookie)
}

// Only redirect within the site after logging in or out.
func isLocalRedirect(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil || dest == "" {
		return false
	}
	if u.IsAbs() {
		base, err := url.Parse(hmnurl.BuildHomepage())
		return err == nil && u.Scheme == base.Scheme && u.Host == base.Host
	}
	// Browsers read "/\host" and "//host" as another site.
	if u.Host != "" || !strings.HasPrefix(dest, "/") {
		return false
	}
	return len(dest) == 1 || !strings.ContainsAny(dest[1:2], "/\\")
}
