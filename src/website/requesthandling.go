package website

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/perf"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"git.handmade.network/hmn/syllabus/src/templates"
	"git.handmade.network/hmn/syllabus/src/utils"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type RequestContext struct {
	Route      string
	Logger     *zerolog.Logger
	Req        *http.Request
	PathParams map[string]string

	Conn    *pgxpool.Pool
	Courses CourseDirectory
	Syllabi *syllabus.Manager

	CurrentUser    *models.User
	CurrentSession *models.Session

	Perf *perf.RequestPerf

	ctx context.Context
}

// Handlers pass the RequestContext wherever a context.Context is wanted. It
// carries the request's cancellation, logger and perf tracking.
var _ context.Context = &RequestContext{}

func (c *RequestContext) Deadline() (time.Time, bool) {
	return c.ctx.Deadline()
}

func (c *RequestContext) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *RequestContext) Err() error {
	return c.ctx.Err()
}

func (c *RequestContext) Value(key any) any {
	if key == perf.PerfContextKey {
		return c.Perf
	}
	return c.ctx.Value(key)
}

// The URL the user asked for, as seen from outside any reverse proxy.
func (c *RequestContext) FullUrl() string {
	scheme := "http"
	if proto := c.Req.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Req.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + c.Req.Host + c.Req.URL.RequestURI()
}

// Redirects to dest, which is resolved against the current request if it is
// relative.
func (c *RequestContext) Redirect(dest string, code int) ResponseData {
	target, err := c.Req.URL.Parse(dest)
	if err != nil {
		c.Logger.Warn().Err(err).Str("dest", dest).Msg("Failed to parse redirect URI")
		return c.Redirect(hmnurl.BuildHomepage(), http.StatusSeeOther)
	}
	location := target.String()

	var res ResponseData
	res.StatusCode = code
	res.Header().Set("Location", location)

	// Bodies only make sense for GET.
	if c.Req.Method == http.MethodGet {
		res.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(&res, "<a href=\"%s\">%s</a>.\n", html.EscapeString(location), http.StatusText(code))
	}

	return res
}

type ErrorData struct {
	templates.BaseData
	Message string
}

// Renders the error page. Only SafeError messages reach the user; every error
// is logged by logContextErrorsMiddleware.
func (c *RequestContext) ErrorResponse(status int, errs ...error) ResponseData {
	defer func() {
		// The error page itself failed. Log what we were trying to show.
		if r := recover(); r != nil {
			logContextErrors(c, errs...)
			panic(r)
		}
	}()

	res := ResponseData{
		StatusCode: status,
		Errors:     errs,
	}
	res.MustWriteTemplate("error.html", ErrorData{
		BaseData: getBaseData(c, http.StatusText(status)),
		Message:  safeMessage(status, errs...),
	}, c.Perf)
	return res
}

type RejectData struct {
	templates.BaseData
	RejectReason string
}

// A 400 page for requests that make no sense in the current state, like
// logging in twice.
func (c *RequestContext) RejectRequest(reason string) ResponseData {
	res := ResponseData{StatusCode: http.StatusBadRequest}
	err := res.WriteTemplate("reject.html", RejectData{
		BaseData:     getBaseData(c, "Rejected"),
		RejectReason: reason,
	}, c.Perf)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to render reject template"))
	}
	return res
}

// What a handler returns. The body is buffered so that middlewares can still
// change the status and headers after the handler has run.
type ResponseData struct {
	StatusCode    int
	Body          *bytes.Buffer
	Errors        []error
	FutureNotices []templates.Notice

	header http.Header
}

var _ http.ResponseWriter = &ResponseData{}

func (rd *ResponseData) Header() http.Header {
	if rd.header == nil {
		rd.header = make(http.Header)
	}
	return rd.header
}

func (rd *ResponseData) Write(p []byte) (int, error) {
	if rd.Body == nil {
		rd.Body = new(bytes.Buffer)
	}
	return rd.Body.Write(p)
}

func (rd *ResponseData) WriteHeader(status int) {
	rd.StatusCode = status
}

func (rd *ResponseData) SetCookie(cookie *http.Cookie) {
	rd.Header().Add("Set-Cookie", cookie.String())
}

// Notices are shown on the next page the user sees, usually after a
// redirect. Content is plain text.
func (rd *ResponseData) AddFutureNotice(class string, content string) {
	rd.FutureNotices = append(rd.FutureNotices, templates.Notice{Class: class, Content: template.HTML(content)})
}

func (rd *ResponseData) WriteTemplate(name string, data any, rp *perf.RequestPerf) error {
	if rp != nil {
		b := rp.StartBlock("TEMPLATE", name)
		defer b.End()
	}
	return templates.GetTemplate(name).Execute(rd, data)
}

func (rd *ResponseData) MustWriteTemplate(name string, data any, rp *perf.RequestPerf) {
	if err := rd.WriteTemplate(name, data, rp); err != nil {
		panic(err)
	}
}

func doRequest(rw http.ResponseWriter, c *RequestContext, h Handler) {
	defer func() {
		// Last resort. Error pages for panics come from panicCatcherMiddleware.
		if recovered := recover(); recovered != nil {
			logging.LogPanicValue(c.Logger, recovered, "request panicked and was not handled")
			rw.WriteHeader(http.StatusInternalServerError)
			rw.Write([]byte("There was a problem handling your request.\nPlease let the site administrators know."))
		}
	}()

	res := h(c)
	writeResponse(rw, c.Req, &res)
}

// Content-Type and Content-Length are filled in here instead of by the
// ResponseWriter so that HEAD responses carry them too.
func writeResponse(rw http.ResponseWriter, req *http.Request, res *ResponseData) {
	header := rw.Header()
	for name, vals := range res.Header() {
		header[name] = append(header[name], vals...)
	}

	var body []byte
	if res.Body != nil {
		body = res.Body.Bytes()
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", http.DetectContentType(body))
		}
		if header.Get("Content-Length") == "" {
			header.Set("Content-Length", strconv.Itoa(len(body)))
		}
	}

	rw.WriteHeader(utils.OrDefault(res.StatusCode, http.StatusOK))

	if req.Method == http.MethodHead || len(body) == 0 {
		return
	}
	if _, err := rw.Write(body); err != nil {
		if errors.Is(err, syscall.EPIPE) {
			// The client hung up.
			logging.Debug().Msg("Broken pipe")
		} else {
			logging.Error().Err(err).Msg("Failed to write response body")
		}
	}
}
