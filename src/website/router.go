package website

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"git.handmade.network/hmn/syllabus/src/logging"
)

/*
Routes are tried in the order they were registered. Each one is a method and a
regex over the request path, with any trailing slash removed. Named groups in
the regex become path params. Register a catch-all last.
*/
type Router struct {
	Routes []Route
}

type Route struct {
	Method  string // empty matches every method
	Regex   *regexp.Regexp
	Handler Handler
}

func (r *Route) String() string {
	return fmt.Sprintf("%s %s", r.Method, r.Regex)
}

func (r *Route) match(method, path string) (map[string]string, bool) {
	if r.Method != "" && r.Method != method {
		return nil, false
	}

	match := r.Regex.FindStringSubmatch(path)
	if match == nil {
		return nil, false
	}

	params := map[string]string{}
	for i, name := range r.Regex.SubexpNames() {
		if name != "" {
			params[name] = match[i]
		}
	}
	return params, true
}

type Handler func(c *RequestContext) ResponseData
type Middleware func(h Handler) Handler

// The first middleware in the list is the outermost.
func wrapHandler(h Handler, ms []Middleware) Handler {
	for i := len(ms) - 1; i >= 0; i-- {
		h = ms[i](h)
	}
	return h
}

type RouteBuilder struct {
	Router      *Router
	Middlewares []Middleware
}

func (rb *RouteBuilder) Handle(methods []string, regex *regexp.Regexp, h Handler) {
	if !strings.HasPrefix(regex.String(), "^") {
		panic("All routing regexes must begin with '^'")
	}

	h = wrapHandler(h, rb.Middlewares)
	for _, method := range methods {
		rb.Router.Routes = append(rb.Router.Routes, Route{
			Method:  method,
			Regex:   regex,
			Handler: h,
		})
	}
}

func (rb *RouteBuilder) AnyMethod(regex *regexp.Regexp, h Handler) {
	rb.Handle([]string{""}, regex, h)
}

func (rb *RouteBuilder) GET(regex *regexp.Regexp, h Handler) {
	rb.Handle([]string{http.MethodGet}, regex, h)
}

func (rb *RouteBuilder) POST(regex *regexp.Regexp, h Handler) {
	rb.Handle([]string{http.MethodPost}, regex, h)
}

// A builder whose routes also run ms, inside the existing middlewares.
func (rb *RouteBuilder) WithMiddleware(ms ...Middleware) RouteBuilder {
	middlewares := make([]Middleware, 0, len(rb.Middlewares)+len(ms))
	middlewares = append(middlewares, rb.Middlewares...)
	middlewares = append(middlewares, ms...)

	return RouteBuilder{
		Router:      rb.Router,
		Middlewares: middlewares,
	}
}

func (r *Router) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	method := req.Method
	if method == http.MethodHead {
		method = http.MethodGet
	}

	path := strings.TrimSuffix(req.URL.Path, "/")
	if path == "" {
		path = "/"
	}

	for i := range r.Routes {
		route := &r.Routes[i]
		params, ok := route.match(method, path)
		if !ok {
			continue
		}

		c := &RequestContext{
			Route:      route.String(),
			Logger:     logging.GlobalLogger(),
			Req:        req,
			PathParams: params,

			ctx: req.Context(),
		}
		doRequest(rw, c, route.Handler)
		return
	}

	panic(fmt.Sprintf("Path '%s' did not match any routes! Make sure to register a wildcard route to act as a 404.", req.URL))
}
