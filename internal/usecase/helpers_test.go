package usecase

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"tutorinminutes-backend/internal/delivery/http/middleware"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errNoSQL = errors.New("fake pool executes no SQL")

// fakePool lets gorm open, begin, commit and roll back without a server.
// Repositories are faked, so no statement ever reaches it.
type fakePool struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (p *fakePool) PrepareContext(context.Context, string) (*sql.Stmt, error) { return nil, errNoSQL }
func (p *fakePool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (p *fakePool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (p *fakePool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

func (p *fakePool) BeginTx(context.Context, *sql.TxOptions) (gorm.ConnPool, error) {
	return &fakeTx{fakePool: p}, nil
}

type fakeTx struct {
	*fakePool
	done bool
}

func (t *fakeTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.commits++
	return nil
}

func (t *fakeTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.done {
		t.done = true
		t.rollbacks++
	}
	return nil
}

func (p *fakePool) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commits, p.rollbacks
}

func newTestDB(t *testing.T) (*gorm.DB, *fakePool) {
	t.Helper()
	pool := &fakePool{}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return db, pool
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func withUser(ctx context.Context, userID uuid.UUID, roleID int) context.Context {
	ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
	return context.WithValue(ctx, middleware.RoleIDKey, roleID)
}

func f64(v float64) *float64 { return &v }

// seedTutors mirrors the demo catalog: two tutors in central Delhi, one online only.
func seedTutors() []entity.Tutor {
	return []entity.Tutor{
		{
			ID: "1", Name: "Dr. Priya Sharma", Title: "Mathematics & Physics Expert",
			Subjects: entity.StringList{"Mathematics", "Physics"}, Levels: entity.StringList{"CBSE", "ICSE", "IIT-JEE"},
			Modes: entity.StringList{"online", "offline"}, PricePerHour: decimal.NewFromInt(800),
			Rating: 4.9, TotalReviews: 127, ExperienceYears: 8,
			Latitude: f64(28.6139), Longitude: f64(77.2090), IsVerified: true, IsOnline: true,
		},
		{
			ID: "2", Name: "Rahul Kumar", Title: "Python & Data Science Mentor",
			Subjects: entity.StringList{"Python", "Data Science"}, Levels: entity.StringList{"Beginner", "Intermediate", "Advanced"},
			Modes: entity.StringList{"online"}, PricePerHour: decimal.NewFromInt(600),
			Rating: 4.8, TotalReviews: 89, ExperienceYears: 5,
			Latitude: f64(28.6139), Longitude: f64(77.2090), IsVerified: true,
		},
		{
			ID: "3", Name: "Dr. Anjali Patel", Title: "NEET Biology Specialist",
			Subjects: entity.StringList{"Biology", "Chemistry"}, Levels: entity.StringList{"CBSE", "NEET"},
			Modes: entity.StringList{"online", "offline"}, PricePerHour: decimal.NewFromInt(700),
			Rating: 4.9, TotalReviews: 156, ExperienceYears: 10,
			Latitude: f64(28.6139), Longitude: f64(77.2090), IsVerified: true, IsOnline: true,
		},
	}
}

type fakeTutorRepo struct {
	mu       sync.Mutex
	rows     []entity.Tutor
	findAll  int
	createFn func(*entity.Tutor) error
	deleteFn func(string) error
}

func (f *fakeTutorRepo) FindAll(context.Context, *gorm.DB) ([]entity.Tutor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findAll++
	return slices.Clone(f.rows), nil
}

func (f *fakeTutorRepo) FindByID(_ context.Context, _ *gorm.DB, id string) (*entity.Tutor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			row := f.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (f *fakeTutorRepo) Create(_ context.Context, _ *gorm.DB, tutor *entity.Tutor) error {
	if f.createFn != nil {
		if err := f.createFn(tutor); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *tutor)
	return nil
}

func (f *fakeTutorRepo) Update(_ context.Context, _ *gorm.DB, tutor *entity.Tutor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == tutor.ID {
			f.rows[i] = *tutor
		}
	}
	return nil
}

func (f *fakeTutorRepo) Delete(_ context.Context, _ *gorm.DB, id string) (int64, error) {
	if f.deleteFn != nil {
		if err := f.deleteFn(id); err != nil {
			return 0, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.rows)
	f.rows = slices.DeleteFunc(f.rows, func(t entity.Tutor) bool { return t.ID == id })
	return int64(n - len(f.rows)), nil
}

func (f *fakeTutorRepo) Upsert(_ context.Context, _ *gorm.DB, tutors []entity.Tutor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, tutors...)
	return nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings []entity.Booking
	createFn func(*entity.Booking) error
}

func (f *fakeBookingRepo) Create(_ context.Context, _ *gorm.DB, booking *entity.Booking) error {
	if f.createFn != nil {
		if err := f.createFn(booking); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings = append(f.bookings, *booking)
	return nil
}

func (f *fakeBookingRepo) find(match func(*entity.Booking) bool) *entity.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if match(&f.bookings[i]) {
			b := f.bookings[i]
			return &b
		}
	}
	return nil
}

func (f *fakeBookingRepo) FindByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*entity.Booking, error) {
	return f.find(func(b *entity.Booking) bool { return b.ID == id }), nil
}

func (f *fakeBookingRepo) FindByStudentID(_ context.Context, _ *gorm.DB, studentID uuid.UUID) ([]entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Booking
	for _, b := range f.bookings {
		if b.StudentID == studentID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) FindByPaymentIntentID(_ context.Context, _ *gorm.DB, intentID string) (*entity.Booking, error) {
	return f.find(func(b *entity.Booking) bool {
		return b.PaymentIntentID != nil && *b.PaymentIntentID == intentID
	}), nil
}

func (f *fakeBookingRepo) FindActiveByTutorAndDate(_ context.Context, _ *gorm.DB, tutorID string, date time.Time) ([]entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Booking
	for _, b := range f.bookings {
		if b.TutorID == tutorID && !b.IsCancelled() && b.SessionDate.Format(time.DateOnly) == date.Format(time.DateOnly) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) FindActive(context.Context, *gorm.DB, entity.SlotFilter, int, int) ([]entity.Booking, error) {
	return nil, nil
}

func (f *fakeBookingRepo) update(id uuid.UUID, fn func(*entity.Booking) bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == id && fn(&f.bookings[i]) {
			return 1
		}
	}
	return 0
}

func (f *fakeBookingRepo) CancelBooking(_ context.Context, _ *gorm.DB, id uuid.UUID) (int64, error) {
	return f.update(id, func(b *entity.Booking) bool {
		if b.IsCancelled() {
			return false
		}
		b.Status = entity.BookingStatusCancelled
		return true
	}), nil
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uuid.UUID, status entity.BookingStatus) error {
	f.update(id, func(b *entity.Booking) bool { b.Status = status; return true })
	return nil
}

func (f *fakeBookingRepo) SetPaymentIntent(_ context.Context, _ *gorm.DB, id uuid.UUID, intentID string) error {
	f.update(id, func(b *entity.Booking) bool { b.PaymentIntentID = &intentID; return true })
	return nil
}

type fakeAuditService struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeAuditService) record(action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeAuditService) LogCreate(_ context.Context, _ *gorm.DB, _ *uuid.UUID, action, _, _ string, _ interface{}) error {
	return f.record(action)
}

func (f *fakeAuditService) LogUpdate(_ context.Context, _ *gorm.DB, _ *uuid.UUID, action, _, _ string, _, _ interface{}) error {
	return f.record(action)
}

func (f *fakeAuditService) LogDelete(_ context.Context, _ *gorm.DB, _ *uuid.UUID, action, _, _ string, _ interface{}) error {
	return f.record(action)
}

func (f *fakeAuditService) LogEvent(_ context.Context, _ *gorm.DB, _ *uuid.UUID, action string, _ entity.JSON) error {
	return f.record(action)
}

func (f *fakeAuditService) has(action string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Contains(f.actions, action)
}

var _ service.AuditService = (*fakeAuditService)(nil)
