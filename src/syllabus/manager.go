package syllabus

import (
	"context"
	"errors"
	"io"
	"strings"

	"git.handmade.network/hmn/syllabus/src/logging"
	"git.handmade.network/hmn/syllabus/src/oops"
)

const DefaultDisplayName = "Syllabus"

// Manager applies the syllabus rules on top of a record store and a file store.
type Manager struct {
	Store Store
	Files FileStore

	// Largest accepted upload in bytes. Zero means no limit.
	MaxFileSize int
}

func (m *Manager) Syllabi(ctx context.Context, courseID int) (Records, error) {
	records, err := m.Store.Syllabi(ctx, courseID)
	if err != nil {
		return Records{}, oops.New(err, "failed to fetch syllabi for course %d", courseID)
	}
	return records, nil
}

func (m *Manager) Display(ctx context.Context, courseID int, viewer Viewer) (Choice, Records, error) {
	records, err := m.Syllabi(ctx, courseID)
	if err != nil {
		return Choice{}, Records{}, err
	}
	return SelectForDisplay(records, viewer), records, nil
}

type SaveInput struct {
	CourseID int
	Kind     Kind

	// Set when editing an existing record.
	EntryID *int

	DisplayName string
	AccessLevel AccessLevel // ignored for private records
	IsPreview   bool        // ignored for private records

	// A non-empty upload wins over Url.
	Upload *Upload
	Url    string
}

type SaveResult struct {
	Record  *Record
	Created bool
}

/*
Adds or updates the course's record of the given kind.

A course can only have one public record, so adding a second one fails with
ErrDuplicatePublic. Adding a private record when one already exists replaces
it instead. When editing a record that holds a file, leaving both the upload
and the URL empty keeps the file.
*/
func (m *Manager) Save(ctx context.Context, in SaveInput) (SaveResult, error) {
	logger := logging.ExtractLogger(ctx)

	access := AccessPrivate
	isPreview := false
	if in.Kind == KindPublic {
		access = in.AccessLevel
		isPreview = in.IsPreview
	}
	if !access.AllowedFor(in.Kind) {
		return SaveResult{}, ErrInvalidAccess
	}

	records, err := m.Syllabi(ctx, in.CourseID)
	if err != nil {
		return SaveResult{}, err
	}

	existing := records.Get(in.Kind)
	if in.EntryID != nil {
		if existing == nil || existing.ID != *in.EntryID {
			return SaveResult{}, ErrNoSuchSyllabus
		}
	} else if existing != nil && in.Kind == KindPublic {
		return SaveResult{}, ErrDuplicatePublic
	}

	// Validate everything before touching the file store.
	var source Source
	var newUpload *Upload
	switch {
	case !in.Upload.Empty():
		if err := CheckUpload(in.Upload, m.MaxFileSize); err != nil {
			return SaveResult{}, err
		}
		newUpload = in.Upload
	case strings.TrimSpace(in.Url) != "":
		normalized, err := NormalizeUrl(in.Url)
		if err != nil {
			return SaveResult{}, err
		}
		source.Url = normalized
	case existing != nil && existing.Source.IsFile():
		source.File = existing.Source.File
	default:
		return SaveResult{}, &InvalidSourceError{Problem: SourceMissing}
	}

	if newUpload != nil {
		file, err := m.Files.Put(ctx, *newUpload)
		if err != nil {
			return SaveResult{}, oops.New(err, "failed to store syllabus file")
		}
		source.File = file
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = DefaultDisplayName
	}

	rec := &Record{
		CourseID:    in.CourseID,
		Kind:        in.Kind,
		AccessLevel: access,
		Source:      source,
		DisplayName: displayName,
		IsPreview:   isPreview,
	}

	if existing == nil {
		err := m.Store.Insert(ctx, rec)
		if err == nil {
			logger.Info().Int("course", rec.CourseID).Str("kind", string(rec.Kind)).Msg("Added syllabus")
			return SaveResult{Record: rec, Created: true}, nil
		}

		if !errors.Is(err, errKindTaken) {
			m.discardFile(ctx, source.File, newUpload != nil)
			if errors.Is(err, ErrDuplicatePublic) {
				return SaveResult{}, ErrDuplicatePublic
			}
			return SaveResult{}, oops.New(err, "failed to add syllabus")
		}

		// Someone else added a private record first. Replace theirs.
		records, err := m.Syllabi(ctx, in.CourseID)
		if err != nil {
			m.discardFile(ctx, source.File, newUpload != nil)
			return SaveResult{}, err
		}
		existing = records.Get(in.Kind)
		if existing == nil {
			m.discardFile(ctx, source.File, newUpload != nil)
			return SaveResult{}, oops.New(nil, "%s syllabus for course %d vanished while saving", in.Kind, in.CourseID)
		}
	}

	rec.ID = existing.ID
	rec.TimeCreated = existing.TimeCreated
	if err := m.Store.Update(ctx, rec); err != nil {
		m.discardFile(ctx, source.File, newUpload != nil)
		if errors.Is(err, ErrNoSuchSyllabus) {
			return SaveResult{}, ErrNoSuchSyllabus
		}
		return SaveResult{}, oops.New(err, "failed to update syllabus")
	}

	// The old file is garbage once the record no longer points at it.
	if old := existing.Source.File; old != nil && (rec.Source.File == nil || rec.Source.File.Key != old.Key) {
		m.discardFile(ctx, old, true)
	}

	logger.Info().Int("course", rec.CourseID).Str("kind", string(rec.Kind)).Msg("Updated syllabus")
	return SaveResult{Record: rec, Created: false}, nil
}

// Removes the course's record of the given kind along with its stored file.
func (m *Manager) Delete(ctx context.Context, courseID int, kind Kind) error {
	records, err := m.Syllabi(ctx, courseID)
	if err != nil {
		return err
	}

	existing := records.Get(kind)
	if existing == nil {
		return ErrNoSuchSyllabus
	}

	if err := m.Store.Delete(ctx, courseID, kind); err != nil {
		if errors.Is(err, ErrNoSuchSyllabus) {
			return ErrNoSuchSyllabus
		}
		return oops.New(err, "failed to delete syllabus")
	}
	m.discardFile(ctx, existing.Source.File, true)

	logging.ExtractLogger(ctx).Info().Int("course", courseID).Str("kind", string(kind)).Msg("Deleted syllabus")
	return nil
}

// Converts the course's record of the given kind and returns the result.
func (m *Manager) Convert(ctx context.Context, courseID int, kind Kind) (*Record, error) {
	records, err := m.Syllabi(ctx, courseID)
	if err != nil {
		return nil, err
	}

	converted, err := Convert(records, kind)
	if err != nil {
		return nil, err
	}

	if err := m.Store.Convert(ctx, courseID, kind, converted); err != nil {
		if errors.Is(err, ErrNoSuchSyllabus) || errors.Is(err, ErrAmbiguousConversion) {
			return nil, err
		}
		return nil, oops.New(err, "failed to convert syllabus")
	}

	logging.ExtractLogger(ctx).Info().
		Int("course", courseID).
		Str("from", string(kind)).
		Str("to", string(converted.Kind)).
		Msg("Converted syllabus")
	return converted, nil
}

// Opens the stored file of the course's record of the given kind, if the
// viewer is allowed to see it.
func (m *Manager) OpenFile(ctx context.Context, courseID int, kind Kind, viewer Viewer) (*Record, io.ReadCloser, error) {
	records, err := m.Syllabi(ctx, courseID)
	if err != nil {
		return nil, nil, err
	}

	rec := records.Get(kind)
	if rec == nil || !rec.Source.IsFile() {
		return nil, nil, ErrNoSuchSyllabus
	}
	if !viewer.CanView(rec.AccessLevel) {
		return nil, nil, ErrPermissionDenied
	}

	f, err := m.Files.Open(ctx, rec.Source.File)
	if err != nil {
		return nil, nil, oops.New(err, "failed to open syllabus file")
	}
	return rec, f, nil
}

// Deleting a stored file is best effort. A failure leaves an orphan in the
// bucket but the record change has already happened.
func (m *Manager) discardFile(ctx context.Context, file *File, owned bool) {
	if file == nil || !owned {
		return
	}
	if err := m.Files.Delete(ctx, file); err != nil {
		logging.ExtractLogger(ctx).Error().Err(err).Str("key", file.Key).Msg("Failed to delete syllabus file")
	}
}
