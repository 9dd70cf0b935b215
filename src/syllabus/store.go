package syllabus

import (
	"context"
	"errors"
	"io"
)

// A private record already exists where a new one was inserted. The Manager
// turns such inserts into updates, so seeing this means two saves raced.
var errKindTaken = errors.New("course already has a syllabus of this kind")

// Where syllabus records are kept. Implementations return ErrNoSuchSyllabus
// when the addressed record is missing.
type Store interface {
	Syllabi(ctx context.Context, courseID int) (Records, error)

	// Sets ID, TimeCreated and TimeModified on the record. Fails with
	// ErrDuplicatePublic if the course already has a public record.
	Insert(ctx context.Context, rec *Record) error
	// Sets TimeModified on the record.
	Update(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, courseID int, kind Kind) error

	// Moves the course's record of kind `from` into the converted record's
	// kind, access level and preview flag, as long as the course has no
	// record of the other kind.
	Convert(ctx context.Context, courseID int, from Kind, converted *Record) error
}

// Where uploaded syllabus files are kept.
type FileStore interface {
	Put(ctx context.Context, upload Upload) (*File, error)
	Open(ctx context.Context, file *File) (io.ReadCloser, error)
	Delete(ctx context.Context, file *File) error
}
