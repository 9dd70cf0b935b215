package website

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/templates"
)

func NewWebsiteRoutes(deps Dependencies) http.Handler {
	router := &Router{}
	routes := RouteBuilder{
		Router: router,
		Middlewares: []Middleware{
			setDependencies(deps),
			trackRequestPerf,
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			storeNoticesInCookieMiddleware,
			loadCommonData,
		},
	}
	addRoutes(routes)

	return router
}

func addRoutes(routes RouteBuilder) {
	routes.GET(hmnurl.RegexPublic, PublicFile)

	routes.GET(hmnurl.RegexHomepage, CourseIndex)

	routes.GET(hmnurl.RegexLogin, LoginPage)
	routes.POST(hmnurl.RegexLogin, securityTimerMiddleware(time.Millisecond*100, Login))
	routes.POST(hmnurl.RegexLogout, csrfMiddleware(Logout))

	routes.GET(hmnurl.RegexSyllabus, Syllabus)
	routes.GET(hmnurl.RegexSyllabusFile, SyllabusFile)

	authMiddleware := routes.WithMiddleware(needsAuth, limitUploadSize, csrfMiddleware)
	authMiddleware.POST(hmnurl.RegexSyllabus, SyllabusSubmit)

	routes.AnyMethod(regexp.MustCompile("^"), FourOhFour)
}

type CourseIndexData struct {
	templates.BaseData
	Courses []templates.Course
}

func CourseIndex(c *RequestContext) ResponseData {
	c.Perf.StartBlock("SQL", "Fetch courses")
	courses, err := c.Courses.Courses(c)
	c.Perf.EndBlock()
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch courses"))
	}

	tmplCourses := make([]templates.Course, 0, len(courses))
	for _, course := range courses {
		tmplCourses = append(tmplCourses, templates.CourseToTemplate(course))
	}

	var res ResponseData
	res.MustWriteTemplate("course_index.html", CourseIndexData{
		BaseData: getBaseData(c, "Courses"),
		Courses:  tmplCourses,
	}, c.Perf)
	return res
}

var publicFileServer = http.StripPrefix(hmnurl.StaticPath, http.FileServer(http.FS(templates.PublicFS())))

func PublicFile(c *RequestContext) ResponseData {
	if strings.Contains(c.Req.URL.Path, "..") {
		return FourOhFour(c)
	}

	var res ResponseData
	publicFileServer.ServeHTTP(&res, c.Req)
	return res
}
