package website

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"git.handmade.network/hmn/syllabus/src/auth"
	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseUrl = "http://syllabus.test"

var testPDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type testCourses struct {
	courses map[int]*models.Course
	roles   map[[2]int]models.CourseRole
}

func (d *testCourses) Courses(ctx context.Context) ([]*models.Course, error) {
	var res []*models.Course
	for _, c := range d.courses {
		res = append(res, c)
	}
	return res, nil
}

func (d *testCourses) Course(ctx context.Context, courseID int) (*models.Course, error) {
	course, ok := d.courses[courseID]
	if !ok {
		return nil, ErrNoSuchCourse
	}
	return course, nil
}

func (d *testCourses) Role(ctx context.Context, courseID, userID int) (models.CourseRole, bool, error) {
	role, ok := d.roles[[2]int{courseID, userID}]
	return role, ok, nil
}

type testFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (f *testFiles) Put(ctx context.Context, upload syllabus.Upload) (*syllabus.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New()
	key := fmt.Sprintf("syllabi/%s/%s", id, upload.Filename)
	f.files[key] = upload.Content
	return &syllabus.File{
		AssetID:  id,
		Key:      key,
		Filename: upload.Filename,
		MimeType: upload.MimeType,
		Size:     len(upload.Content),
	}, nil
}

func (f *testFiles) Open(ctx context.Context, file *syllabus.File) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, ok := f.files[file.Key]
	if !ok {
		return nil, fmt.Errorf("no file %s", file.Key)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *testFiles) Delete(ctx context.Context, file *syllabus.File) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.files, file.Key)
	return nil
}

const (
	testCourseID = 1

	instructorID = 10
	studentID    = 11
	outsiderID   = 12
)

type testEnv struct {
	router  *Router
	syllabi *syllabus.Manager
	files   *testFiles

	// Who the next request is made as. Nil means logged out.
	user    *models.User
	session *models.Session
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hmnurl.SetGlobalBaseUrl(testBaseUrl)

	files := &testFiles{files: make(map[string][]byte)}
	env := &testEnv{
		router: &Router{},
		syllabi: &syllabus.Manager{
			Store:       syllabus.NewMemoryStore(),
			Files:       files,
			MaxFileSize: 1024,
		},
		files: files,
	}

	courses := &testCourses{
		courses: map[int]*models.Course{
			testCourseID: {ID: testCourseID, ShortName: "CS 31", FullName: "Introduction to Computer Science"},
		},
		roles: map[[2]int]models.CourseRole{
			{testCourseID, instructorID}: models.CourseRoleInstructor,
			{testCourseID, studentID}:    models.CourseRoleStudent,
		},
	}

	addRoutes(RouteBuilder{
		Router: env.router,
		Middlewares: []Middleware{
			setDependencies(Dependencies{Courses: courses, Syllabi: env.syllabi}),
			trackRequestPerf,
			logContextErrorsMiddleware,
			panicCatcherMiddleware,
			storeNoticesInCookieMiddleware,
			func(h Handler) Handler {
				return func(c *RequestContext) ResponseData {
					c.CurrentUser = env.user
					c.CurrentSession = env.session
					c.ctx = logging.AttachLoggerToContext(c.Logger, c.ctx)
					return h(c)
				}
			},
		},
	})

	return env
}

func (env *testEnv) loginAs(userID int) {
	env.user = &models.User{ID: userID, Username: fmt.Sprintf("user%d", userID)}
	env.session = &models.Session{ID: "session", Username: env.user.Username, CSRFToken: "token"}
}

func (env *testEnv) logout() {
	env.user = nil
	env.session = nil
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(path string) *httptest.ResponseRecorder {
	return env.do(httptest.NewRequest(http.MethodGet, testBaseUrl+path, nil))
}

func (env *testEnv) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, testBaseUrl+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return env.do(req)
}

func (env *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, value := range fields {
		require.Nil(t, w.WriteField(name, value))
	}
	if content != nil {
		part, err := w.CreateFormFile("syllabus_file", filename)
		require.Nil(t, err)
		_, err = part.Write(content)
		require.Nil(t, err)
	}
	require.Nil(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, testBaseUrl+path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return env.do(req)
}

func (env *testEnv) addSyllabus(t *testing.T, in syllabus.SaveInput) *syllabus.Record {
	t.Helper()
	in.CourseID = testCourseID
	result, err := env.syllabi.Save(context.Background(), in)
	require.Nil(t, err)
	return result.Record
}

func (env *testEnv) records(t *testing.T) syllabus.Records {
	t.Helper()
	records, err := env.syllabi.Syllabi(context.Background(), testCourseID)
	require.Nil(t, err)
	return records
}

func syllabusPath(query string) string {
	return "/syllabus?id=1" + query
}

func noticesCookie(rec *httptest.ResponseRecorder) string {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == NoticesCookieName && cookie.MaxAge >= 0 {
			unescaped, _ := url.QueryUnescape(cookie.Value)
			return unescaped
		}
	}
	return ""
}

func TestSyllabusView(t *testing.T) {
	t.Run("none uploaded", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.get(syllabusPath(""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Syllabus is not available yet.")
		assert.NotContains(t, rec.Body.String(), "Turn editing on")
	})

	t.Run("public record requires login", func(t *testing.T) {
		env := newTestEnv(t)
		env.addSyllabus(t, syllabus.SaveInput{
			Kind:        syllabus.KindPublic,
			DisplayName: "Course outline",
			AccessLevel: syllabus.AccessLoggedIn,
			Url:         "http://example.edu/outline",
		})

		rec := env.get(syllabusPath(""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "This syllabus is available only to logged in users.")
		assert.NotContains(t, rec.Body.String(), "Course outline")

		env.loginAs(outsiderID)
		rec = env.get(syllabusPath(""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Course outline")
		assert.Contains(t, rec.Body.String(), "http://example.edu/outline")
	})

	t.Run("private record requires enrolment", func(t *testing.T) {
		env := newTestEnv(t)
		env.addSyllabus(t, syllabus.SaveInput{
			Kind:        syllabus.KindPrivate,
			DisplayName: "Full syllabus",
			Url:         "http://example.edu/full",
		})

		env.loginAs(outsiderID)
		rec := env.get(syllabusPath(""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "This syllabus is available only to enrolled students in the course.")

		env.loginAs(studentID)
		rec = env.get(syllabusPath(""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Full syllabus")
	})

	t.Run("enrolled students get the private record", func(t *testing.T) {
		env := newTestEnv(t)
		env.addSyllabus(t, syllabus.SaveInput{
			Kind:        syllabus.KindPublic,
			DisplayName: "Short outline",
			AccessLevel: syllabus.AccessPublic,
			Url:         "http://example.edu/outline",
		})
		env.addSyllabus(t, syllabus.SaveInput{
			Kind:        syllabus.KindPrivate,
			DisplayName: "Full syllabus",
			Url:         "http://example.edu/full",
		})

		rec := env.get(syllabusPath(""))
		assert.Contains(t, rec.Body.String(), "Short outline")

		env.loginAs(studentID)
		rec = env.get(syllabusPath(""))
		assert.Contains(t, rec.Body.String(), "Full syllabus")
		assert.NotContains(t, rec.Body.String(), "Short outline")
	})

	t.Run("unknown course", func(t *testing.T) {
		env := newTestEnv(t)
		assert.Equal(t, http.StatusNotFound, env.get("/syllabus?id=99").Code)
		assert.Equal(t, http.StatusNotFound, env.get("/syllabus?id=abc").Code)
	})

	t.Run("unknown action", func(t *testing.T) {
		env := newTestEnv(t)
		assert.Equal(t, http.StatusBadRequest, env.get(syllabusPath("&action=frobnicate")).Code)
	})
}

func TestSyllabusManagerPage(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get(syllabusPath("&action=edit"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), testBaseUrl+"/login?"))

	env.loginAs(studentID)
	rec = env.get(syllabusPath("&action=edit"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	env.loginAs(instructorID)
	rec = env.get(syllabusPath("&action=edit"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.get(syllabusPath("&action=edit&type=public"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="display_name"`)

	rec = env.get(syllabusPath("&action=edit&type=bogus"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.loginAs(studentID)
	env.user.IsStaff = true
	rec = env.get(syllabusPath("&action=edit"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func saveFields(kind string) map[string]string {
	return map[string]string{
		auth.CSRFFieldName: "token",
		"action":           "save",
		"type":             kind,
		"display_name":     "Course syllabus",
		"access":           "public",
	}
}

func TestSyllabusSave(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.pdf", testPDF)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, testBaseUrl+"/syllabus?action=view&id=1", rec.Header().Get("Location"))
		assert.Contains(t, noticesCookie(rec), "Successfully added syllabus")

		records := env.records(t)
		require.NotNil(t, records.Public)
		assert.Equal(t, "Course syllabus", records.Public.DisplayName)
		assert.Equal(t, syllabus.AccessPublic, records.Public.AccessLevel)
		require.NotNil(t, records.Public.Source.File)
		assert.Equal(t, "outline.pdf", records.Public.Source.File.Filename)

		env.logout()
		rec = env.get("/syllabus/file?id=1&type=public")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, syllabus.PDFMimeType, rec.Header().Get("Content-Type"))
		assert.Equal(t, testPDF, rec.Body.Bytes())
	})

	t.Run("url", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		fields := saveFields("private")
		fields["syllabus_url"] = "example.edu/syllabus"
		rec := env.postMultipart(t, syllabusPath(""), fields, "", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)

		records := env.records(t)
		require.NotNil(t, records.Private)
		assert.Equal(t, "http://example.edu/syllabus", records.Private.Source.Url)
		assert.Equal(t, syllabus.AccessPrivate, records.Private.AccessLevel)
	})

	t.Run("update keeps the file", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.pdf", testPDF)
		require.Equal(t, http.StatusSeeOther, rec.Code)
		existing := env.records(t).Public

		fields := saveFields("public")
		fields["entryid"] = fmt.Sprint(existing.ID)
		fields["display_name"] = "Renamed"
		fields["access"] = "loggedin"
		rec = env.postMultipart(t, syllabusPath(""), fields, "", nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, noticesCookie(rec), "Successfully updated syllabus")

		updated := env.records(t).Public
		require.NotNil(t, updated)
		assert.Equal(t, "Renamed", updated.DisplayName)
		assert.Equal(t, syllabus.AccessLoggedIn, updated.AccessLevel)
		assert.Equal(t, existing.Source.File.Key, updated.Source.File.Key)
	})

	t.Run("duplicate public", func(t *testing.T) {
		env := newTestEnv(t)
		env.addSyllabus(t, syllabus.SaveInput{
			Kind:        syllabus.KindPublic,
			AccessLevel: syllabus.AccessPublic,
			Url:         "http://example.edu/outline",
		})
		env.loginAs(instructorID)

		fields := saveFields("public")
		fields["syllabus_url"] = "http://example.edu/other"
		rec := env.postMultipart(t, syllabusPath(""), fields, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Can only have one unrestricted syllabus for the course")
		assert.Equal(t, "http://example.edu/outline", env.records(t).Public.Source.Url)
	})

	t.Run("missing display name", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		fields := saveFields("public")
		fields["display_name"] = "   "
		fields["syllabus_url"] = "http://example.edu/outline"
		rec := env.postMultipart(t, syllabusPath(""), fields, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Please enter a display name")
		assert.True(t, env.records(t).Empty())
	})

	t.Run("not a pdf", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.txt", []byte("just some text"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, env.records(t).Empty())
		assert.Empty(t, env.files.files)
	})

	t.Run("too large", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		big := append(append([]byte{}, testPDF...), bytes.Repeat([]byte("x"), 2048)...)
		rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.pdf", big)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, env.records(t).Empty())
	})

	t.Run("body over the limit", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		huge := append(append([]byte{}, testPDF...), bytes.Repeat([]byte("x"), 1024+uploadBodySlack)...)
		rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.pdf", huge)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, rec.Body.String(), "The file is too large")
		assert.True(t, env.records(t).Empty())
		assert.Empty(t, env.files.files)
	})

	t.Run("students cannot save", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(studentID)

		rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.pdf", testPDF)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.True(t, env.records(t).Empty())
	})

	t.Run("logged out", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.pdf", testPDF)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), testBaseUrl+"/login?"))
		assert.True(t, env.records(t).Empty())
	})

	t.Run("bad csrf token", func(t *testing.T) {
		env := newTestEnv(t)
		env.loginAs(instructorID)

		fields := saveFields("public")
		fields[auth.CSRFFieldName] = "wrong"
		rec := env.postMultipart(t, syllabusPath(""), fields, "outline.pdf", testPDF)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, testBaseUrl+"/", rec.Header().Get("Location"))
		assert.True(t, env.records(t).Empty())
	})
}

func TestSyllabusDelete(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(instructorID)

	rec := env.postMultipart(t, syllabusPath(""), saveFields("public"), "outline.pdf", testPDF)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, env.files.files, 1)

	rec = env.postForm(syllabusPath(""), url.Values{
		auth.CSRFFieldName: {"token"},
		"action":           {"delete"},
		"type":             {"public"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, noticesCookie(rec), "Successfully deleted syllabus")
	assert.True(t, env.records(t).Empty())
	assert.Empty(t, env.files.files)

	rec = env.postForm(syllabusPath(""), url.Values{
		auth.CSRFFieldName: {"token"},
		"action":           {"delete"},
		"type":             {"public"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyllabusConvert(t *testing.T) {
	env := newTestEnv(t)
	env.addSyllabus(t, syllabus.SaveInput{
		Kind:        syllabus.KindPublic,
		DisplayName: "Outline",
		AccessLevel: syllabus.AccessPublic,
		IsPreview:   true,
		Url:         "http://example.edu/outline",
	})
	env.loginAs(instructorID)

	convert := func(kind string) *httptest.ResponseRecorder {
		return env.postForm(syllabusPath(""), url.Values{
			auth.CSRFFieldName: {"token"},
			"action":           {"convert"},
			"type":             {kind},
		})
	}

	rec := convert("public")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, noticesCookie(rec), "Successfully restricted syllabus")

	records := env.records(t)
	assert.Nil(t, records.Public)
	require.NotNil(t, records.Private)
	assert.Equal(t, syllabus.AccessPrivate, records.Private.AccessLevel)
	assert.False(t, records.Private.IsPreview)
	assert.Equal(t, "http://example.edu/outline", records.Private.Source.Url)

	env.addSyllabus(t, syllabus.SaveInput{
		Kind:        syllabus.KindPublic,
		AccessLevel: syllabus.AccessPublic,
		Url:         "http://example.edu/second",
	})
	rec = convert("private")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, env.records(t).Both())

	rec = env.postForm(syllabusPath(""), url.Values{
		auth.CSRFFieldName: {"token"},
		"action":           {"transmogrify"},
		"type":             {"public"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyllabusFileAccess(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(instructorID)
	rec := env.postMultipart(t, syllabusPath(""), saveFields("private"), "full.pdf", testPDF)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	env.logout()
	assert.Equal(t, http.StatusForbidden, env.get("/syllabus/file?id=1&type=private").Code)

	env.loginAs(outsiderID)
	assert.Equal(t, http.StatusForbidden, env.get("/syllabus/file?id=1&type=private").Code)

	env.loginAs(studentID)
	rec = env.get("/syllabus/file?id=1&type=private")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testPDF, rec.Body.Bytes())

	assert.Equal(t, http.StatusNotFound, env.get("/syllabus/file?id=1&type=public").Code)
	assert.Equal(t, http.StatusBadRequest, env.get("/syllabus/file?id=1&type=bogus").Code)
}
