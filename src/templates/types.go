package templates

import (
	"html/template"
	"time"
)

type BaseData struct {
	Title   string
	Notices []Notice

	CurrentUrl   string
	LoginPageUrl string

	User    *User
	Session *Session

	Header Header
}

func (bd *BaseData) AddImmediateNotice(class, content string) {
	bd.Notices = append(bd.Notices, Notice{
		Class:   class,
		Content: template.HTML(template.HTMLEscapeString(content)),
	})
}

type Header struct {
	HomepageUrl string
	LoginUrl    string
	LogoutUrl   string
}

type Notice struct {
	Content template.HTML
	Class   string
}

type Session struct {
	CSRFToken string
}

type User struct {
	ID       int
	Username string
	Name     string
	IsStaff  bool
}

type Course struct {
	ID        int
	ShortName string
	FullName  string

	SyllabusUrl string
}

type SyllabusRecord struct {
	ID          int
	Kind        string
	AccessLevel string
	DisplayName string
	IsPreview   bool
	IsPrivate   bool

	IsFile   bool
	IsPDF    bool
	Filename string
	Size     int

	// For files this is the download route, for links the link itself.
	Url          string
	DownloadText string

	AccessLabel string
	IconTitle   string
	Modified    time.Time
	ModifiedStr string

	EditUrl string
}

// One half of the syllabus manager page.
type SyllabusSection struct {
	Kind     string
	Heading  string
	Help     string
	AddLabel string
	AddUrl   string

	Record *SyllabusRecord

	ConvertLabel string
	CanConvert   bool

	// Set when this section's edit form is open.
	Form *SyllabusForm
}

type SyllabusForm struct {
	Kind      string
	IsPublic  bool
	EntryID   int
	IsEditing bool

	DisplayName string
	Access      string
	IsPreview   bool
	Url         string

	CurrentFilename string

	Errors []string
}
