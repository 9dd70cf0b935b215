/*
Package syllabus holds the rules for a course's syllabus page: which of a
course's two syllabus records a viewer gets to see, how a record moves between
the public and private slots, and how uploads are validated and saved.

A course has at most one record of each Kind. The public record is visible to
everyone or to logged-in users, depending on its AccessLevel. The private
record is visible only to people enrolled in the course.
*/
package syllabus

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindPublic  Kind = "public"
	KindPrivate Kind = "private"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindPublic, KindPrivate:
		return Kind(s), true
	}
	return "", false
}

// The kind a record of this kind becomes when converted.
func (k Kind) Opposite() Kind {
	if k == KindPublic {
		return KindPrivate
	}
	return KindPublic
}

type AccessLevel string

const (
	AccessPublic   AccessLevel = "public"   // no login required
	AccessLoggedIn AccessLevel = "loggedin" // login required
	AccessPrivate  AccessLevel = "private"  // enrolment required
)

// Whether a record of the given kind may carry this access level.
func (a AccessLevel) AllowedFor(k Kind) bool {
	if k == KindPrivate {
		return a == AccessPrivate
	}
	return a == AccessPublic || a == AccessLoggedIn
}

type Record struct {
	ID          int
	CourseID    int
	Kind        Kind
	AccessLevel AccessLevel
	Source      Source
	DisplayName string
	IsPreview   bool

	TimeCreated  time.Time
	TimeModified time.Time
}

// Exactly one of File and Url is set.
type Source struct {
	File *File
	Url  string
}

func (s Source) IsFile() bool {
	return s.File != nil
}

func (s Source) Valid() bool {
	return (s.File != nil) != (s.Url != "")
}

// A syllabus PDF held by the FileStore.
type File struct {
	AssetID  uuid.UUID
	Key      string
	Filename string
	MimeType string
	Size     int
}

// The records of one course, by kind. Either may be nil.
type Records struct {
	Public  *Record
	Private *Record
}

func (r Records) Get(k Kind) *Record {
	switch k {
	case KindPublic:
		return r.Public
	case KindPrivate:
		return r.Private
	}
	return nil
}

func (r *Records) Set(k Kind, rec *Record) {
	switch k {
	case KindPublic:
		r.Public = rec
	case KindPrivate:
		r.Private = rec
	}
}

func (r Records) Both() bool {
	return r.Public != nil && r.Private != nil
}

func (r Records) Empty() bool {
	return r.Public == nil && r.Private == nil
}

var (
	ErrNoSuchSyllabus      = errors.New("syllabus does not exist")
	ErrAmbiguousConversion = errors.New("cannot convert syllabus when both a restricted and unrestricted syllabus exist")
	ErrInvalidSource       = errors.New("syllabus needs exactly one valid file or URL")
	ErrInvalidAccess       = errors.New("invalid access level for syllabus")
	ErrDuplicatePublic     = errors.New("course already has an unrestricted syllabus")
	ErrPermissionDenied    = errors.New("not allowed to manage syllabi for course")
)

type SourceProblem int

const (
	SourceMissing SourceProblem = iota + 1
	SourceBadUrl
	SourceNotPDF
	SourceTooLarge
)

// Says what exactly was wrong with a submitted source. Matches ErrInvalidSource
// with errors.Is.
type InvalidSourceError struct {
	Problem SourceProblem
	Detail  string
}

func (e *InvalidSourceError) Error() string {
	if e.Detail == "" {
		return ErrInvalidSource.Error()
	}
	return ErrInvalidSource.Error() + ": " + e.Detail
}

func (e *InvalidSourceError) Is(target error) bool {
	return target == ErrInvalidSource
}
