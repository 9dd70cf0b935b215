/*
Package lang holds the user-facing strings of the syllabus pages. Messages are
looked up by key through a universal-translator, so placeholders are written
{0}, {1} and so on.
*/
package lang

import (
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
)

var Translator ut.Translator

const (
	SyllabusManager = "syllabus_manager"
	PublicSyllabus  = "public_syllabus"
	PrivateSyllabus = "private_syllabus"
	PublicHelp      = "public_syllabus_help"
	PrivateHelp     = "private_syllabus_help"
	SyllabusChoice  = "syllabus_choice"
	Url             = "url"
	File            = "file"
	UploadFile      = "upload_file"
	Access          = "access"
	AccessPublic    = "access_public_info"
	AccessLoggedIn  = "access_loggedin_info"
	AccessInvalid   = "access_invalid"
	PreviewInfo     = "preview_info"
	DisplayName     = "display_name"
	DisplayNameNone = "display_name_none_entered"
	DefaultTitle    = "display_name_default"
	PublicAdd       = "public_syllabus_add"
	PrivateAdd      = "private_syllabus_add"
	NoSyllabus      = "no_syllabus"
	MakePrivate     = "make_private"
	MakePublic      = "make_public"
	ConfirmDeletion = "confirm_deletion"
	Edit            = "edit"
	Delete          = "delete"
	Save            = "save"
	Cancel          = "cancel"

	CannotViewPrivate  = "cannot_view_private_syllabus"
	CannotViewPublic   = "cannot_view_public_syllabus"
	NoneUploaded       = "no_syllabus_uploaded"
	NoneUploadedHelp   = "no_syllabus_uploaded_help"
	ClickToDownload    = "clicktodownload"
	PreviewDisclaimer  = "preview_disclaimer"
	PrivateDisclaimer  = "private_disclaimer"
	Preview            = "preview"
	Private            = "private"
	Modified           = "modified"
	TurnEditingOn      = "turn_editing_on"
	TurnEditingOff     = "turn_editing_off"
	IconPublicWorld    = "icon_public_world_syllabus"
	IconPublicLoggedIn = "icon_public_loggedin_syllabus"
	IconPrivate        = "icon_private_syllabus"

	SuccessfulAdd        = "successful_add"
	SuccessfulDelete     = "successful_delete"
	SuccessfulUpdate     = "successful_update"
	SuccessfulRestrict   = "successful_restrict"
	SuccessfulUnrestrict = "successful_unrestrict"

	ErrFileNotUploaded    = "err_file_not_uploaded"
	ErrFileTooLarge       = "err_file_too_large"
	ErrFileUrlNotUploaded = "err_file_url_not_uploaded"
	ErrSyllabusNotAllowed = "err_syllabus_not_allowed"
	ErrSyllabusNotExist   = "err_syllabus_notexist"
	ErrNoEmbed            = "err_noembed"
	ErrSyllabusConvert    = "err_syllabus_convert"
	ErrInvalidUrl         = "err_invalid_url"
	ErrCannotManage       = "err_cannot_manage"
	ErrDuplicatePublic    = "invalid_public_syllabus"
	ErrNoSuchCourse       = "err_no_such_course"
)

var messages = map[string]string{
	SyllabusManager: "Syllabus manager",
	PublicSyllabus:  "Syllabus",
	PrivateSyllabus: "Restricted syllabus",
	PublicHelp:      "A syllabus can be available to the site community (login required) or the general public (no login required).",
	PrivateHelp:     "A restricted syllabus is viewable only by enrolled students in the course.",
	SyllabusChoice:  "If you select both a file and URL, the file will be displayed instead.",
	Url:             "URL",
	File:            "File",
	UploadFile:      "Please upload a PDF",
	Access:          "Access",
	AccessPublic:    "General public (no login required)",
	AccessLoggedIn:  "Site community (login required)",
	AccessInvalid:   "Invalid access type selected",
	PreviewInfo:     "This is not a complete version of the syllabus.",
	DisplayName:     "Display name",
	DisplayNameNone: "Please enter a display name",
	DefaultTitle:    "Syllabus",
	PublicAdd:       "Add syllabus",
	PrivateAdd:      "Add restricted syllabus",
	NoSyllabus:      "No syllabus uploaded yet",
	MakePrivate:     "Restrict",
	MakePublic:      "Unrestrict",
	ConfirmDeletion: "Are you sure you want to delete this syllabus?",
	Edit:            "Edit",
	Delete:          "Delete",
	Save:            "Save changes",
	Cancel:          "Cancel",

	CannotViewPrivate:  "This syllabus is available only to enrolled students in the course.",
	CannotViewPublic:   "This syllabus is available only to logged in users.",
	NoneUploaded:       "Syllabus is not available yet.",
	NoneUploadedHelp:   `Please "Turn editing on" to upload a syllabus.`,
	ClickToDownload:    "Download: {0}",
	PreviewDisclaimer:  "May not reflect the complete contents of the final syllabus for this course.",
	PrivateDisclaimer:  "This syllabus is available only to enrolled students in the course.",
	Preview:            "preview",
	Private:            "restricted",
	Modified:           "Last modified: ",
	TurnEditingOn:      "Turn editing on",
	TurnEditingOff:     "Turn editing off",
	IconPublicWorld:    "Syllabus (no login required)",
	IconPublicLoggedIn: "Syllabus (login required)",
	IconPrivate:        "Restricted syllabus (only enrolled students)",

	SuccessfulAdd:        "Successfully added syllabus",
	SuccessfulDelete:     "Successfully deleted syllabus",
	SuccessfulUpdate:     "Successfully updated syllabus",
	SuccessfulRestrict:   "Successfully restricted syllabus",
	SuccessfulUnrestrict: "Successfully unrestricted syllabus",

	ErrFileNotUploaded:    "Please upload a PDF.",
	ErrFileTooLarge:       "The file is too large. Syllabi can be at most {0}.",
	ErrFileUrlNotUploaded: "Please upload a file or add a valid URL for your syllabus.",
	ErrSyllabusNotAllowed: "Sorry, you must be logged in or associated with the course to view this syllabus",
	ErrSyllabusNotExist:   "Sorry, but given syllabus does not exist",
	ErrNoEmbed:            "Unable to show embedded file. Please download file to view.",
	ErrSyllabusConvert:    "Cannot convert syllabus when both a restricted and unrestricted syllabi are uploaded",
	ErrInvalidUrl:         "Please enter a valid URL.",
	ErrCannotManage:       "Sorry, but you do not have the capability to manage syllabi for course",
	ErrDuplicatePublic:    "Can only have one unrestricted syllabus for the course",
	ErrNoSuchCourse:       "Sorry, but that course does not exist",
}

func init() {
	english := en.New()
	uni := ut.New(english, english)
	Translator, _ = uni.GetTranslator("en")

	for key, text := range messages {
		if err := Translator.Add(key, text, false); err != nil {
			panic(err)
		}
	}
}

// T returns the message for key with params filled in. Unknown keys come
// back as the key itself so that a missing string is visible on the page.
func T(key string, params ...string) string {
	s, err := Translator.T(key, params...)
	if err != nil {
		return key
	}
	return s
}

func FormatDateTime(t time.Time) string {
	return Translator.FmtDateLong(t) + ", " + Translator.FmtTimeShort(t)
}
