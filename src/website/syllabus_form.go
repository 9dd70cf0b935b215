package website

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"git.handmade.network/hmn/syllabus/src/lang"
	"git.handmade.network/hmn/syllabus/src/oops"
	"git.handmade.network/hmn/syllabus/src/syllabus"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Multipart bodies above this spill to temp files.
const maxFormMemory = 32 * 1024 * 1024

var (
	formValidate   *validator.Validate
	formTranslator ut.Translator

	notBlankTag = "notblank"
)

func init() {
	formValidate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	formTranslator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(formValidate, formTranslator)

	// Report errors by form field name.
	formValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("form")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = formValidate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = formValidate.RegisterTranslation(notBlankTag, formTranslator,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			if fe.Field() == "display_name" {
				return lang.T(lang.DisplayNameNone)
			}
			return fe.Field() + " cannot be blank"
		},
	)
}

// The fields shared by every syllabus POST.
type syllabusActionForm struct {
	Action string `form:"action" validate:"required,oneof=save delete convert"`
	Kind   string `form:"type" validate:"required,oneof=public private"`
}

type syllabusSaveForm struct {
	Kind        string `form:"type" validate:"required,oneof=public private"`
	EntryID     string `form:"entryid" validate:"omitempty,number"`
	DisplayName string `form:"display_name" validate:"notblank,max=255"`
	Access      string `form:"access" validate:"omitempty,max=16"`
	IsPreview   bool   `form:"is_preview"`
	Url         string `form:"syllabus_url" validate:"omitempty,max=1333"`
}

// Turns validator errors into messages for the form.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, verr := range verrs {
		msgs = append(msgs, verr.Translate(formTranslator))
	}
	return msgs
}

func parseActionForm(c *RequestContext) (syllabusActionForm, []string) {
	form := syllabusActionForm{
		Action: c.Req.Form.Get("action"),
		Kind:   c.Req.Form.Get("type"),
	}
	if err := formValidate.Struct(form); err != nil {
		return form, validationMessages(err)
	}
	return form, nil
}

func parseSaveForm(c *RequestContext) (syllabusSaveForm, []string) {
	form := syllabusSaveForm{
		Kind:        c.Req.Form.Get("type"),
		EntryID:     strings.TrimSpace(c.Req.Form.Get("entryid")),
		DisplayName: c.Req.Form.Get("display_name"),
		Access:      c.Req.Form.Get("access"),
		IsPreview:   c.Req.Form.Get("is_preview") != "",
		Url:         c.Req.Form.Get("syllabus_url"),
	}
	if err := formValidate.Struct(form); err != nil {
		return form, validationMessages(err)
	}
	return form, nil
}

func (f syllabusSaveForm) toSaveInput(courseID int) syllabus.SaveInput {
	in := syllabus.SaveInput{
		CourseID:    courseID,
		Kind:        syllabus.Kind(f.Kind),
		DisplayName: f.DisplayName,
		AccessLevel: syllabus.AccessLevel(f.Access),
		IsPreview:   f.IsPreview,
		Url:         f.Url,
	}
	if f.EntryID != "" {
		if id, err := strconv.Atoi(f.EntryID); err == nil {
			in.EntryID = &id
		}
	}
	return in
}

/*
Reads the uploaded syllabus file, if any. At most maxSize+1 bytes are read so
that oversized files can still be reported as too large without buffering
them whole. A zero maxSize reads everything.
*/
func readUpload(c *RequestContext, maxSize int) (*syllabus.Upload, error) {
	file, header, err := c.Req.FormFile("syllabus_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, oops.New(err, "failed to read uploaded syllabus file")
	}
	defer file.Close()

	content, err := readAtMost(file, maxSize)
	if err != nil {
		return nil, oops.New(err, "failed to read uploaded syllabus file")
	}
	if len(content) == 0 {
		return nil, nil
	}

	upload := &syllabus.Upload{
		Filename: header.Filename,
		Content:  content,
	}
	if c.CurrentUser != nil {
		id := c.CurrentUser.ID
		upload.UploaderID = &id
	}
	return upload, nil
}

func readAtMost(f multipart.File, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(f)
	}
	return io.ReadAll(io.LimitReader(f, int64(maxSize)+1))
}
