package templates

import (
	"strings"

	"git.handmade.network/hmn/syllabus/src/hmnurl"
	"git.handmade.network/hmn/syllabus/src/lang"
	"git.handmade.network/hmn/syllabus/src/models"
	"git.handmade.network/hmn/syllabus/src/syllabus"
)

func UserToTemplate(u *models.User) *User {
	if u == nil {
		return nil
	}

	return &User{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.BestName(),
		IsStaff:  u.IsStaff,
	}
}

func SessionToTemplate(s *models.Session) *Session {
	if s == nil {
		return nil
	}

	return &Session{
		CSRFToken: s.CSRFToken,
	}
}

func CourseToTemplate(c *models.Course) Course {
	return Course{
		ID:        c.ID,
		ShortName: c.ShortName,
		FullName:  c.FullName,

		SyllabusUrl: hmnurl.BuildSyllabus(c.ID),
	}
}

func SyllabusToTemplate(rec *syllabus.Record) *SyllabusRecord {
	if rec == nil {
		return nil
	}

	res := &SyllabusRecord{
		ID:          rec.ID,
		Kind:        string(rec.Kind),
		AccessLevel: string(rec.AccessLevel),
		DisplayName: rec.DisplayName,
		IsPreview:   rec.IsPreview,
		IsPrivate:   rec.Kind == syllabus.KindPrivate,

		AccessLabel: AccessLabel(rec.AccessLevel),
		IconTitle:   IconTitle(rec.AccessLevel),
		Modified:    rec.TimeModified,
		ModifiedStr: lang.FormatDateTime(rec.TimeModified.UTC()),

		EditUrl: hmnurl.BuildSyllabusEdit(rec.CourseID, string(rec.Kind)),
	}

	if f := rec.Source.File; f != nil {
		res.IsFile = true
		res.IsPDF = f.MimeType == syllabus.PDFMimeType
		res.Filename = f.Filename
		res.Size = f.Size
		res.Url = hmnurl.BuildSyllabusFile(rec.CourseID, string(rec.Kind))
		res.DownloadText = lang.T(lang.ClickToDownload, f.Filename)
	} else {
		res.Url = rec.Source.Url
		res.IsPDF = strings.HasSuffix(strings.ToLower(rec.Source.Url), ".pdf")
		res.DownloadText = rec.Source.Url
	}

	return res
}

func AccessLabel(level syllabus.AccessLevel) string {
	switch level {
	case syllabus.AccessPublic:
		return lang.T(lang.AccessPublic)
	case syllabus.AccessLoggedIn:
		return lang.T(lang.AccessLoggedIn)
	case syllabus.AccessPrivate:
		return lang.T(lang.PrivateHelp)
	}
	return ""
}

func IconTitle(level syllabus.AccessLevel) string {
	switch level {
	case syllabus.AccessPublic:
		return lang.T(lang.IconPublicWorld)
	case syllabus.AccessLoggedIn:
		return lang.T(lang.IconPublicLoggedIn)
	case syllabus.AccessPrivate:
		return lang.T(lang.IconPrivate)
	}
	return ""
}
