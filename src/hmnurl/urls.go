package hmnurl

import (
	"regexp"
	"strconv"
)

var RegexHomepage = regexp.MustCompile("^/$")

func BuildHomepage() string {
	return Url("/", nil)
}

var RegexLogin = regexp.MustCompile("^/login$")

func BuildLogin() string {
	return Url("/login", nil)
}

func BuildLoginWithRedirect(redirectTo string) string {
	return Url("/login", []Q{{Name: "redirect", Value: redirectTo}})
}

var RegexLogout = regexp.MustCompile("^/logout$")

func BuildLogout() string {
	return Url("/logout", nil)
}

const (
	SyllabusActionView    = "view"
	SyllabusActionEdit    = "edit"
	SyllabusActionSave    = "save"
	SyllabusActionDelete  = "delete"
	SyllabusActionConvert = "convert"
)

/*
The syllabus page takes everything in the query string:

	id      course id (required)
	action  view or edit
	type    public or private, to pick a record
*/
var RegexSyllabus = regexp.MustCompile("^/syllabus$")

func BuildSyllabus(courseID int) string {
	return Url("/syllabus", []Q{{Name: "id", Value: strconv.Itoa(courseID)}})
}

// Where mutations redirect to.
func BuildSyllabusView(courseID int) string {
	return Url("/syllabus", []Q{
		{Name: "id", Value: strconv.Itoa(courseID)},
		{Name: "action", Value: SyllabusActionView},
	})
}

// The manager page. kind opens the edit form of that record; leave it empty
// for the overview.
func BuildSyllabusEdit(courseID int, kind string) string {
	q := []Q{
		{Name: "id", Value: strconv.Itoa(courseID)},
		{Name: "action", Value: SyllabusActionEdit},
	}
	if kind != "" {
		q = append(q, Q{Name: "type", Value: kind})
	}
	return Url("/syllabus", q)
}

var RegexSyllabusFile = regexp.MustCompile("^/syllabus/file$")

func BuildSyllabusFile(courseID int, kind string) string {
	return Url("/syllabus/file", []Q{
		{Name: "id", Value: strconv.Itoa(courseID)},
		{Name: "type", Value: kind},
	})
}

var RegexPublic = regexp.MustCompile("^/public/.+$")

func BuildPublic(filepath string) string {
	return StaticUrl(filepath, nil)
}
