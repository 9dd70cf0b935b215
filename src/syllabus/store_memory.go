package syllabus

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps records in a map. It is used in tests and when running
// the website without a database.
type MemoryStore struct {
	mu      sync.Mutex
	courses map[int]Records
	lastID  int
	now     func() time.Time
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		courses: make(map[int]Records),
		now:     time.Now,
	}
}

func (s *MemoryStore) Syllabi(ctx context.Context, courseID int) (Records, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.courses[courseID]
	return Records{
		Public:  copyRecord(records.Public),
		Private: copyRecord(records.Private),
	}, nil
}

func (s *MemoryStore) Insert(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.courses[rec.CourseID]
	if records.Get(rec.Kind) != nil {
		if rec.Kind == KindPublic {
			return ErrDuplicatePublic
		}
		return errKindTaken
	}

	s.lastID += 1
	now := s.now()
	rec.ID = s.lastID
	rec.TimeCreated = now
	rec.TimeModified = now

	records.Set(rec.Kind, copyRecord(rec))
	s.courses[rec.CourseID] = records
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.courses[rec.CourseID]
	existing := records.Get(rec.Kind)
	if existing == nil || existing.ID != rec.ID {
		return ErrNoSuchSyllabus
	}

	rec.TimeCreated = existing.TimeCreated
	rec.TimeModified = s.now()
	records.Set(rec.Kind, copyRecord(rec))
	s.courses[rec.CourseID] = records
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, courseID int, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.courses[courseID]
	if records.Get(kind) == nil {
		return ErrNoSuchSyllabus
	}
	records.Set(kind, nil)
	s.courses[courseID] = records
	return nil
}

func (s *MemoryStore) Convert(ctx context.Context, courseID int, from Kind, converted *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.courses[courseID]
	existing := records.Get(from)
	if existing == nil {
		return ErrNoSuchSyllabus
	}
	if records.Get(from.Opposite()) != nil {
		return ErrAmbiguousConversion
	}

	updated := *existing
	updated.Kind = converted.Kind
	updated.AccessLevel = converted.AccessLevel
	updated.IsPreview = converted.IsPreview
	updated.TimeModified = s.now()

	records.Set(from, nil)
	records.Set(updated.Kind, &updated)
	s.courses[courseID] = records

	converted.TimeModified = updated.TimeModified
	return nil
}

func copyRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	c := *rec
	if rec.Source.File != nil {
		f := *rec.Source.File
		c.Source.File = &f
	}
	return &c
}
