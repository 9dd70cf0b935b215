package website

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"git.handmade.network/hmn/syllabus/src/config"
	"git.handmade.network/hmn/syllabus/src/templates"
)

const NoticesCookieName = "syllabus_notices"

// Encoded notices past this size are dropped.
const maxNoticesSize = 1024

const (
	NoticeSuccess = "notice-success"
	NoticeWarn    = "notice-warn"
	NoticeFailure = "notice-failure"
)

const (
	noticeSeparator = "\t"
	classSeparator  = "|"
)

func makeNoticesCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     NoticesCookieName,
		Value:    value,
		Path:     "/",
		Domain:   config.Config.Auth.CookieDomain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   config.Config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func getNoticesFromCookie(c *RequestContext) []templates.Notice {
	cookie, err := c.Req.Cookie(NoticesCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil
	} else if err != nil {
		c.Logger.Warn().Err(err).Msg("failed to get notices cookie")
		return nil
	}
	return decodeNotices(cookie.Value)
}

/*
Future notices go into a short-lived cookie for the next page. Once a page
that isn't a redirect has been served, the notices have been shown and the
cookie is cleared.
*/
func storeNoticesInCookieMiddleware(h Handler) Handler {
	return func(c *RequestContext) ResponseData {
		res := h(c)

		isRedirect := res.StatusCode >= 300 && res.StatusCode < 400
		if encoded := encodeNotices(c, res.FutureNotices); encoded != "" {
			res.SetCookie(makeNoticesCookie(encoded, time.Now().Add(5*time.Minute), 0))
		} else if !isRedirect {
			res.SetCookie(makeNoticesCookie("", time.Time{}, -1))
		}
		return res
	}
}

// Notices become class|content entries joined by tabs, query-escaped to fit
// in a cookie value.
func encodeNotices(c *RequestContext, notices []templates.Notice) string {
	entries := make([]string, 0, len(notices))
	size := 0
	for _, notice := range notices {
		entry := notice.Class + classSeparator + string(notice.Content)
		size += len(entry) + len(noticeSeparator)
		if size > maxNoticesSize {
			c.Logger.Warn().Interface("Notices", notices).Msg("Notices too big for cookie")
			break
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return ""
	}
	return url.QueryEscape(strings.Join(entries, noticeSeparator))
}

func decodeNotices(cookieVal string) []templates.Notice {
	raw, err := url.QueryUnescape(cookieVal)
	if err != nil {
		return nil
	}

	var notices []templates.Notice
	for _, entry := range strings.Split(raw, noticeSeparator) {
		class, content, ok := strings.Cut(entry, classSeparator)
		if !ok {
			continue
		}
		// Cookie contents come from the client.
		notices = append(notices, templates.Notice{
			Class:   class,
			Content: template.HTML(template.HTMLEscapeString(content)),
		})
	}
	return notices
}
