package website

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/lang"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"git.handmade.network/hmn/syllabus/src/templates"
	"github.com/rs/zerolog"
)

type SyllabusPageData struct {
	templates.BaseData
	Course          templates.Course
	Record          *templates.SyllabusRecord
	ReasonText      string
	IsManager       bool
	EditUrl         string
	ShowManagerHint bool
}

type SyllabusManagerData struct {
	templates.BaseData
	Course   templates.Course
	Sections []templates.SyllabusSection
	PostUrl  string
	ViewUrl  string
}

// Both GET pages of /syllabus, picked by the action query param.
func Syllabus(c *RequestContext) ResponseData {
	course, res, ok := courseFromQuery(c)
	if !ok {
		return res
	}

	caps, err := courseCapabilities(c, course)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to get course capabilities"))
	}

	switch action := c.Req.URL.Query().Get("action"); action {
	case "", hmnurl.SyllabusActionView:
		return syllabusView(c, course, caps)
	case hmnurl.SyllabusActionEdit:
		if !caps.Manager {
			if c.CurrentUser == nil {
				return c.Redirect(hmnurl.BuildLoginWithRedirect(c.FullUrl()), http.StatusSeeOther)
			}
			return c.ErrorResponse(http.StatusForbidden, NewSafeError(syllabus.ErrPermissionDenied, "%s", lang.T(lang.ErrCannotManage)))
		}

		var editing *syllabus.Kind
		if kindStr := c.Req.URL.Query().Get("type"); kindStr != "" {
			kind, ok := syllabus.ParseKind(kindStr)
			if !ok {
				return c.ErrorResponse(http.StatusBadRequest, NewSafeError(nil, "Unknown syllabus type %q", kindStr))
			}
			editing = &kind
		}

		records, err := c.Syllabi.Syllabi(c, course.ID)
		if err != nil {
			return c.ErrorResponse(http.StatusInternalServerError, err)
		}

		var form *templates.SyllabusForm
		if editing != nil {
			form = formForRecord(*editing, records.Get(*editing))
		}
		return syllabusManagerPage(c, course, records, form, http.StatusOK)
	default:
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(nil, "Unknown action %q", action))
	}
}

func syllabusView(c *RequestContext, course *models.Course, caps syllabus.Capabilities) ResponseData {
	choice, _, err := c.Syllabi.Display(c, course.ID, caps)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}

	logSyllabusView(c.Logger, course, choice)

	title := lang.T(lang.DefaultTitle)
	var reasonText string
	switch choice.Reason {
	case syllabus.ReasonShown:
		title = choice.Record.DisplayName
	case syllabus.ReasonRequiresLogin:
		reasonText = lang.T(lang.CannotViewPublic)
	case syllabus.ReasonRequiresEnrollment:
		reasonText = lang.T(lang.CannotViewPrivate)
	case syllabus.ReasonNoneUploaded:
		reasonText = lang.T(lang.NoneUploaded)
	}

	var res ResponseData
	res.MustWriteTemplate("syllabus.html", SyllabusPageData{
		BaseData:        getBaseData(c, title),
		Course:          templates.CourseToTemplate(course),
		Record:          templates.SyllabusToTemplate(choice.Record),
		ReasonText:      reasonText,
		IsManager:       caps.Manager,
		EditUrl:         hmnurl.BuildSyllabusEdit(course.ID, ""),
		ShowManagerHint: caps.Manager && choice.Reason == syllabus.ReasonNoneUploaded,
	}, c.Perf)
	return res
}

func logSyllabusView(logger *zerolog.Logger, course *models.Course, choice syllabus.Choice) {
	ev := logger.Info().Int("course", course.ID).Str("reason", choice.Reason.String())
	if choice.Record != nil {
		ev = ev.Str("kind", string(choice.Record.Kind)).Int("syllabus", choice.Record.ID)
	}
	ev.Msg("Viewed syllabus")
}

func syllabusManagerPage(c *RequestContext, course *models.Course, records syllabus.Records, form *templates.SyllabusForm, status int) ResponseData {
	sections := []templates.SyllabusSection{
		{
			Kind:         string(syllabus.KindPublic),
			Heading:      lang.T(lang.PublicSyllabus),
			Help:         lang.T(lang.PublicHelp),
			AddLabel:     lang.T(lang.PublicAdd),
			AddUrl:       hmnurl.BuildSyllabusEdit(course.ID, string(syllabus.KindPublic)),
			Record:       templates.SyllabusToTemplate(records.Public),
			ConvertLabel: lang.T(lang.MakePrivate),
			CanConvert:   !records.Both(),
		},
		{
			Kind:         string(syllabus.KindPrivate),
			Heading:      lang.T(lang.PrivateSyllabus),
			Help:         lang.T(lang.PrivateHelp),
			AddLabel:     lang.T(lang.PrivateAdd),
			AddUrl:       hmnurl.BuildSyllabusEdit(course.ID, string(syllabus.KindPrivate)),
			Record:       templates.SyllabusToTemplate(records.Private),
			ConvertLabel: lang.T(lang.MakePublic),
			CanConvert:   !records.Both(),
		},
	}
	if form != nil {
		for i := range sections {
			if sections[i].Kind == form.Kind {
				sections[i].Form = form
			}
		}
	}

	var res ResponseData
	res.StatusCode = status
	res.MustWriteTemplate("syllabus_manager.html", SyllabusManagerData{
		BaseData: getBaseData(c, lang.T(lang.SyllabusManager)),
		Course:   templates.CourseToTemplate(course),
		Sections: sections,
		PostUrl:  hmnurl.BuildSyllabus(course.ID),
		ViewUrl:  hmnurl.BuildSyllabusView(course.ID),
	}, c.Perf)
	return res
}

// The edit form for a kind, filled in from the existing record if there is one.
func formForRecord(kind syllabus.Kind, rec *syllabus.Record) *templates.SyllabusForm {
	form := &templates.SyllabusForm{
		Kind:        string(kind),
		IsPublic:    kind == syllabus.KindPublic,
		DisplayName: syllabus.DefaultDisplayName,
		Access:      string(syllabus.AccessLoggedIn),
	}
	if rec == nil {
		return form
	}

	form.IsEditing = true
	form.EntryID = rec.ID
	form.DisplayName = rec.DisplayName
	form.Access = string(rec.AccessLevel)
	form.IsPreview = rec.IsPreview
	form.Url = rec.Source.Url
	if rec.Source.File != nil {
		form.CurrentFilename = rec.Source.File.Filename
	}
	return form
}

// Handles save, delete and convert.
func SyllabusSubmit(c *RequestContext) ResponseData {
	course, res, ok := courseFromQuery(c)
	if !ok {
		return res
	}

	caps, err := courseCapabilities(c, course)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to get course capabilities"))
	}
	if !caps.Manager {
		return c.ErrorResponse(http.StatusForbidden, NewSafeError(syllabus.ErrPermissionDenied, "%s", lang.T(lang.ErrCannotManage)))
	}

	action, problems := parseActionForm(c)
	if len(problems) > 0 {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(nil, "%s", problems[0]))
	}
	kind := syllabus.Kind(action.Kind)

	switch action.Action {
	case hmnurl.SyllabusActionSave:
		return syllabusSave(c, course)
	case hmnurl.SyllabusActionDelete:
		err := c.Syllabi.Delete(c, course.ID, kind)
		if err != nil {
			return syllabusErrorResponse(c, err)
		}
		res := c.Redirect(hmnurl.BuildSyllabusView(course.ID), http.StatusSeeOther)
		res.AddFutureNotice(NoticeSuccess, lang.T(lang.SuccessfulDelete))
		return res
	case hmnurl.SyllabusActionConvert:
		converted, err := c.Syllabi.Convert(c, course.ID, kind)
		if err != nil {
			return syllabusErrorResponse(c, err)
		}
		notice := lang.T(lang.SuccessfulUnrestrict)
		if converted.Kind == syllabus.KindPrivate {
			notice = lang.T(lang.SuccessfulRestrict)
		}
		res := c.Redirect(hmnurl.BuildSyllabusView(course.ID), http.StatusSeeOther)
		res.AddFutureNotice(NoticeSuccess, notice)
		return res
	}

	// parseActionForm only lets known actions through.
	panic(fmt.Sprintf("unhandled syllabus action %q", action.Action))
}

func syllabusSave(c *RequestContext, course *models.Course) ResponseData {
	form, problems := parseSaveForm(c)
	input := form.toSaveInput(course.ID)

	rerender := func(status int, msgs ...string) ResponseData {
		records, err := c.Syllabi.Syllabi(c, course.ID)
		if err != nil {
			return c.ErrorResponse(http.StatusInternalServerError, err)
		}
		tmplForm := formForRecord(input.Kind, records.Get(input.Kind))
		tmplForm.DisplayName = form.DisplayName
		tmplForm.Url = form.Url
		if input.Kind == syllabus.KindPublic {
			tmplForm.Access = form.Access
			tmplForm.IsPreview = form.IsPreview
		}
		tmplForm.Errors = msgs
		return syllabusManagerPage(c, course, records, tmplForm, status)
	}

	if len(problems) > 0 {
		return rerender(http.StatusBadRequest, problems...)
	}

	upload, err := readUpload(c, c.Syllabi.MaxFileSize)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, err)
	}
	input.Upload = upload

	result, err := c.Syllabi.Save(c, input)
	if err != nil {
		if msg, isFormError := saveErrorMessage(err, c.Syllabi.MaxFileSize); isFormError {
			return rerender(http.StatusBadRequest, msg)
		}
		return syllabusErrorResponse(c, err)
	}

	notice := lang.T(lang.SuccessfulUpdate)
	if result.Created {
		notice = lang.T(lang.SuccessfulAdd)
	}
	res := c.Redirect(hmnurl.BuildSyllabusView(course.ID), http.StatusSeeOther)
	res.AddFutureNotice(NoticeSuccess, notice)
	return res
}

// Messages for save errors that the user can fix by changing the form.
func saveErrorMessage(err error, maxSize int) (string, bool) {
	var sourceErr *syllabus.InvalidSourceError
	switch {
	case errors.As(err, &sourceErr):
		switch sourceErr.Problem {
		case syllabus.SourceBadUrl:
			return lang.T(lang.ErrInvalidUrl), true
		case syllabus.SourceNotPDF:
			return lang.T(lang.UploadFile), true
		case syllabus.SourceTooLarge:
			return lang.T(lang.ErrFileTooLarge, fileSizeText(maxSize)), true
		default:
			return lang.T(lang.ErrFileUrlNotUploaded), true
		}
	case errors.Is(err, syllabus.ErrInvalidAccess):
		return lang.T(lang.AccessInvalid), true
	case errors.Is(err, syllabus.ErrDuplicatePublic):
		return lang.T(lang.ErrDuplicatePublic), true
	}
	return "", false
}

func fileSizeText(numBytes int) string {
	return templates.SyllabusTemplateFuncs["filesize"].(func(int) string)(numBytes)
}

// Error pages for syllabus errors that are not about the form.
func syllabusErrorResponse(c *RequestContext, err error) ResponseData {
	switch {
	case errors.Is(err, syllabus.ErrNoSuchSyllabus):
		return c.ErrorResponse(http.StatusNotFound, NewSafeError(err, "%s", lang.T(lang.ErrSyllabusNotExist)))
	case errors.Is(err, syllabus.ErrAmbiguousConversion):
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(err, "%s", lang.T(lang.ErrSyllabusConvert)))
	case errors.Is(err, syllabus.ErrPermissionDenied):
		return c.ErrorResponse(http.StatusForbidden, NewSafeError(err, "%s", lang.T(lang.ErrSyllabusNotAllowed)))
	}
	return c.ErrorResponse(http.StatusInternalServerError, err)
}

// Streams a stored syllabus file to a viewer who may see it.
func SyllabusFile(c *RequestContext) ResponseData {
	course, res, ok := courseFromQuery(c)
	if !ok {
		return res
	}

	kind, ok := syllabus.ParseKind(c.Req.URL.Query().Get("type"))
	if !ok {
		return c.ErrorResponse(http.StatusBadRequest, NewSafeError(nil, "Unknown syllabus type"))
	}

	caps, err := courseCapabilities(c, course)
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to get course capabilities"))
	}

	rec, file, err := c.Syllabi.OpenFile(c, course.ID, kind, caps)
	if err != nil {
		return syllabusErrorResponse(c, err)
	}
	defer file.Close()

	c.Perf.StartBlock("S3", "Read syllabus file")
	_, err = io.Copy(&res, file)
	c.Perf.EndBlock()
	if err != nil {
		return c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to read syllabus file"))
	}

	res.Header().Set("Content-Type", rec.Source.File.MimeType)
	res.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.Source.File.Filename))
	res.Header().Set("Cache-Control", "private, no-cache")
	return res
}

// Loads the course named by the id query param. When ok is false, res is the
// error response to return.
func courseFromQuery(c *RequestContext) (*models.Course, ResponseData, bool) {
	idStr := c.Req.URL.Query().Get("id")
	courseID, err := strconv.Atoi(idStr)
	if err != nil || courseID <= 0 {
		return nil, c.ErrorResponse(http.StatusNotFound, NewSafeError(err, "%s", lang.T(lang.ErrNoSuchCourse))), false
	}

	c.Perf.StartBlock("SQL", "Fetch course")
	course, err := c.Courses.Course(c, courseID)
	c.Perf.EndBlock()
	if err != nil {
		if errors.Is(err, ErrNoSuchCourse) {
			return nil, c.ErrorResponse(http.StatusNotFound, NewSafeError(err, "%s", lang.T(lang.ErrNoSuchCourse))), false
		}
		return nil, c.ErrorResponse(http.StatusInternalServerError, oops.New(err, "failed to fetch course %d", courseID)), false
	}

	return course, ResponseData{}, true
}
