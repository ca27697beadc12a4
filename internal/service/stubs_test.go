package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutoring-api/internal/models"
	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
	"github.com/noah-isme/tutoring-api/pkg/timezone"
)

const (
	testStudentID = "11111111-1111-4111-8111-111111111111"
	testTutorID   = "22222222-2222-4222-8222-222222222222"
	testQualID    = "33333333-3333-4333-8333-333333333333"
	otherQualID   = "44444444-4444-4444-8444-444444444444"
	otherTutorID  = "55555555-5555-4555-8555-555555555555"
)

// 2023-06-01 is a Thursday; the following Monday is 2023-06-05.
func testConverter() *timezone.Converter {
	return timezone.NewConverter(timezone.FixedClock{At: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)}, nil, nil)
}

func utcAt(day, hour, minute int) time.Time {
	return time.Date(2023, 6, day, hour, minute, 0, 0, time.UTC)
}

func availabilityRow(t *testing.T, id, tutorID string, day time.Weekday, slots ...models.TimeSlot) models.Availability {
	t.Helper()
	row := models.Availability{ID: id, TutorID: tutorID, Day: day}
	require.NoError(t, row.SetSlots(slots))
	return row
}

func utcSlot(t *testing.T, start, end time.Duration, localDay time.Weekday) models.TimeSlot {
	t.Helper()
	slot, err := models.NewTimeSlot(start, end, localDay)
	require.NoError(t, err)
	return slot
}

func qualification(id, name string) models.Qualification {
	return models.Qualification{ID: id, Name: name}
}

func newTutor(id, zone string, quals ...models.Qualification) *models.Tutor {
	return &models.Tutor{
		Person:                  models.Person{ID: id, Name: "Tutor " + id[:4], Email: id[:4] + "@tutor.test", TimeZoneID: zone, Kind: models.PersonKindTutor},
		AvailableQualifications: quals,
	}
}

func newStudent(id, zone string, quals ...models.Qualification) *models.Student {
	return &models.Student{
		Person:                   models.Person{ID: id, Name: "Student " + id[:4], Email: id[:4] + "@student.test", TimeZoneID: zone, Kind: models.PersonKindStudent},
		InterestedQualifications: quals,
	}
}

type stubPeople struct {
	mu           sync.Mutex
	tutors       map[string]*models.Tutor
	students     map[string]*models.Student
	emails       map[string]bool
	created      []*models.Person
	accounts     []*models.Account
	tutorQuals   map[string][]string
	studentQuals map[string][]string
	createErr    error
	err          error
}

func newStubPeople() *stubPeople {
	return &stubPeople{
		tutors:       make(map[string]*models.Tutor),
		students:     make(map[string]*models.Student),
		emails:       make(map[string]bool),
		tutorQuals:   make(map[string][]string),
		studentQuals: make(map[string][]string),
	}
}

func (s *stubPeople) FindMember(ctx context.Context, id string) (models.Member, error) {
	if t, err := s.FindTutor(ctx, id); err == nil {
		return t, nil
	}
	return s.FindStudent(ctx, id)
}

func (s *stubPeople) FindTutor(ctx context.Context, id string) (*models.Tutor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if t, ok := s.tutors[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubPeople) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if st, ok := s.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubPeople) EmailExists(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emails[email], nil
}

func (s *stubPeople) CreateWithAccount(ctx context.Context, person *models.Person, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	id := person.ID
	account.PersonID = &id
	s.created = append(s.created, person)
	s.accounts = append(s.accounts, account)
	s.emails[person.Email] = true
	return nil
}

func (s *stubPeople) ReplaceTutorQualifications(ctx context.Context, tutorID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tutors[tutorID]
	if !ok {
		return sql.ErrNoRows
	}
	s.tutorQuals[tutorID] = ids
	t.AvailableQualifications = nil
	for _, id := range ids {
		t.AvailableQualifications = append(t.AvailableQualifications, qualification(id, "Qualification "+id[:4]))
	}
	return nil
}

func (s *stubPeople) ReplaceStudentQualifications(ctx context.Context, studentID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	s.studentQuals[studentID] = ids
	st.InterestedQualifications = nil
	for _, id := range ids {
		st.InterestedQualifications = append(st.InterestedQualifications, qualification(id, "Qualification "+id[:4]))
	}
	return nil
}

func (s *stubPeople) ListTutorsByQualification(ctx context.Context, qualificationID string) ([]models.Tutor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Tutor
	for _, t := range s.tutors {
		if t.Teaches(qualificationID) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubQualifications struct {
	items map[string]*models.Qualification
}

func newStubQualifications(quals ...models.Qualification) *stubQualifications {
	s := &stubQualifications{items: make(map[string]*models.Qualification)}
	for i := range quals {
		q := quals[i]
		s.items[q.ID] = &q
	}
	return s
}

func (s *stubQualifications) FindByID(ctx context.Context, id string) (*models.Qualification, error) {
	if q, ok := s.items[id]; ok {
		return q, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubQualifications) CountExisting(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		if _, ok := s.items[id]; ok {
			count++
		}
	}
	return count, nil
}

type stubBookings struct {
	mu         sync.Mutex
	bookings   []models.Booking
	details    []models.BookingDetail
	total      int
	lastFilter models.BookingFilter
	createErr  error
	lastWindow [2]time.Time
}

func (s *stubBookings) ListByTutorBetween(ctx context.Context, tutorID string, from, to time.Time) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastWindow = [2]time.Time{from, to}
	var out []models.Booking
	for _, b := range s.bookings {
		if b.TutorID == tutorID && b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *stubBookings) ListByTutorsBetween(ctx context.Context, tutorIDs []string, from, to time.Time) (map[string][]models.Booking, error) {
	out := make(map[string][]models.Booking)
	for _, id := range tutorIDs {
		list, _ := s.ListByTutorBetween(ctx, id, from, to)
		if len(list) > 0 {
			out[id] = list
		}
	}
	return out, nil
}

func (s *stubBookings) CreateExclusive(ctx context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	booking.ID = fmt.Sprintf("booking-%d", len(s.bookings)+1)
	s.bookings = append(s.bookings, *booking)
	return nil
}

func (s *stubBookings) ListDetails(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, int, error) {
	s.lastFilter = filter
	return s.details, s.total, nil
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []BookingNotification
	err           error
}

func (n *recordingNotifier) BookingConfirmed(notification BookingNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return n.err
}
