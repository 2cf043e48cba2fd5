package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/converter"
	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/service"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var bookingDate = time.Date(2026, 5, 12, 0, 0, 0, 0, time.UTC)

type staticCatalog []catalog.Tutor

func (c staticCatalog) LoadCatalog(context.Context) ([]catalog.Tutor, error) {
	return c, nil
}

type bookingFixture struct {
	uc       *bookingUsecase
	bookings *fakeBookingRepo
	slots    *service.SlotService
	audit    *fakeAuditService
	pool     *fakePool
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	db, pool := newTestDB(t)
	_, rdb := newTestRedis(t)
	log := quietLogger()

	tutors, rejected := converter.TutorsToCatalog(seedTutors())
	if len(rejected) > 0 {
		t.Fatalf("seed tutors rejected: %v", rejected)
	}

	f := &bookingFixture{
		bookings: &fakeBookingRepo{},
		audit:    &fakeAuditService{},
		pool:     pool,
	}
	f.slots = service.NewSlotService(db, rdb, f.bookings, log)
	f.uc = NewBookingUsecase(db, log, f.bookings, staticCatalog(tutors), f.slots, f.audit, "inr", 10, time.UTC).(*bookingUsecase)
	f.uc.now = func() time.Time { return tutorNow }
	return f
}

func (f *bookingFixture) held(t *testing.T, tutorID string, slots ...string) map[string]bool {
	t.Helper()
	held, err := f.slots.Held(context.Background(), tutorID, bookingDate, slots)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return held
}

func onlineRequest() *dto.CreateBookingRequest {
	return &dto.CreateBookingRequest{
		TutorID:         "1",
		Subject:         "Mathematics",
		Mode:            "online",
		Date:            "2026-05-12",
		Time:            "10:00",
		DurationMinutes: 120,
	}
}

func TestBookingUsecase_CreateBooking(t *testing.T) {
	f := newBookingFixture(t)
	studentID := uuid.New()
	ctx := withUser(context.Background(), studentID, entity.RoleIDStudent)

	got, err := f.uc.CreateBooking(ctx, onlineRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(got.BookingCode, "BK-20260512-") || len(got.BookingCode) != len("BK-20260512-")+6 {
		t.Errorf("BookingCode = %q", got.BookingCode)
	}
	if got.Amount != "1600.00" || got.Currency != "inr" {
		t.Errorf("amount = %s %s, want 1600.00 inr", got.Amount, got.Currency)
	}
	if got.Status != string(entity.BookingStatusPending) {
		t.Errorf("Status = %q, want pending", got.Status)
	}
	if got.StudentID != studentID {
		t.Errorf("StudentID = %q, want %s", got.StudentID, studentID)
	}

	held := f.held(t, "1", "10:00", "11:00", "12:00")
	if !held["10:00"] || !held["11:00"] || held["12:00"] {
		t.Errorf("held = %v, want 10:00 and 11:00 only", held)
	}
	if !f.audit.has(entity.AuditActionBookingCreate) {
		t.Error("expected booking.create audit entry")
	}
	if commits, _ := f.pool.counts(); commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
}

func TestBookingUsecase_CreateBookingDefaults(t *testing.T) {
	f := newBookingFixture(t)
	ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

	req := onlineRequest()
	req.TutorID, req.Subject, req.DurationMinutes = "2", "Python", 0

	got, err := f.uc.CreateBooking(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DurationMinutes != 60 || got.Amount != "600.00" {
		t.Errorf("duration %d amount %s, want 60 and 600.00", got.DurationMinutes, got.Amount)
	}
}

func TestBookingUsecase_CreateOfflineBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

	req := onlineRequest()
	req.Mode = "offline"
	req.Location = &dto.LocationRequest{Lat: 28.62, Lng: 77.21, Address: "Connaught Place"}

	got, err := f.uc.CreateBooking(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Location == nil || got.Location.Address != "Connaught Place" {
		t.Errorf("Location = %+v", got.Location)
	}
}

func TestBookingUsecase_CreateBookingValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*dto.CreateBookingRequest)
		wantErr error
	}{
		{name: "unknown tutor", mutate: func(r *dto.CreateBookingRequest) { r.TutorID = "404" }, wantErr: ErrTutorNotFound},
		{name: "mode not offered", mutate: func(r *dto.CreateBookingRequest) {
			r.TutorID, r.Subject, r.Mode = "2", "Python", "offline"
		}, wantErr: ErrModeNotOffered},
		{name: "subject not taught", mutate: func(r *dto.CreateBookingRequest) { r.Subject = "Biology" }, wantErr: ErrSubjectNotTaught},
		{name: "offline without location", mutate: func(r *dto.CreateBookingRequest) { r.Mode = "offline" }, wantErr: ErrLocationRequired},
		{name: "offline outside service area", mutate: func(r *dto.CreateBookingRequest) {
			r.Mode = "offline"
			r.Location = &dto.LocationRequest{Lat: 19.0760, Lng: 72.8777}
		}, wantErr: ErrOutsideServiceArea},
		{name: "bad date", mutate: func(r *dto.CreateBookingRequest) { r.Date = "12-05-2026" }, wantErr: ErrInvalidDateFormat},
		{name: "off-grid start", mutate: func(r *dto.CreateBookingRequest) { r.Time = "10:30" }, wantErr: ErrInvalidSlot},
		{name: "before opening", mutate: func(r *dto.CreateBookingRequest) { r.Time = "07:00" }, wantErr: ErrInvalidSlot},
		{name: "partial hour", mutate: func(r *dto.CreateBookingRequest) { r.DurationMinutes = 90 }, wantErr: ErrInvalidDuration},
		{name: "runs past closing", mutate: func(r *dto.CreateBookingRequest) { r.Time = "20:00" }, wantErr: ErrInvalidDuration},
		{name: "already started", mutate: func(r *dto.CreateBookingRequest) { r.Date = "2026-05-10" }, wantErr: ErrSessionInPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t)
			ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

			req := onlineRequest()
			tt.mutate(req)
			if _, err := f.uc.CreateBooking(ctx, req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(f.bookings.bookings) != 0 {
				t.Errorf("booking was inserted")
			}
		})
	}
}

func TestBookingUsecase_CreateBookingRequiresUser(t *testing.T) {
	f := newBookingFixture(t)
	if _, err := f.uc.CreateBooking(context.Background(), onlineRequest()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestBookingUsecase_CreateBookingConflicts(t *testing.T) {
	t.Run("overlap with stored booking", func(t *testing.T) {
		f := newBookingFixture(t)
		f.bookings.bookings = []entity.Booking{{
			ID: uuid.New(), TutorID: "1", SessionDate: bookingDate, StartTime: "11:00", DurationMinutes: 60,
			BookingCode: "BK-OLD", Status: entity.BookingStatusConfirmed,
		}}
		ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

		if _, err := f.uc.CreateBooking(ctx, onlineRequest()); !errors.Is(err, service.ErrSlotTaken) {
			t.Fatalf("expected ErrSlotTaken, got %v", err)
		}
		if held := f.held(t, "1", "10:00"); held["10:00"] {
			t.Error("10:00 should not be held after a rejected booking")
		}
	})

	t.Run("slot held by another booking", func(t *testing.T) {
		f := newBookingFixture(t)
		if err := f.slots.Hold(context.Background(), "1", bookingDate, []string{"11:00"}, "BK-OTHER"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

		if _, err := f.uc.CreateBooking(ctx, onlineRequest()); !errors.Is(err, service.ErrSlotTaken) {
			t.Fatalf("expected ErrSlotTaken, got %v", err)
		}
		if held := f.held(t, "1", "10:00"); held["10:00"] {
			t.Error("hold must be all or nothing")
		}
	})

	t.Run("second student loses the race", func(t *testing.T) {
		f := newBookingFixture(t)
		first := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)
		second := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

		if _, err := f.uc.CreateBooking(first, onlineRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		req := onlineRequest()
		req.Time, req.DurationMinutes = "11:00", 60
		if _, err := f.uc.CreateBooking(second, req); !errors.Is(err, service.ErrSlotTaken) {
			t.Fatalf("expected ErrSlotTaken, got %v", err)
		}
	})

	t.Run("other tutor same time", func(t *testing.T) {
		f := newBookingFixture(t)
		ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

		if _, err := f.uc.CreateBooking(ctx, onlineRequest()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		req := onlineRequest()
		req.TutorID, req.Subject = "3", "Biology"
		if _, err := f.uc.CreateBooking(ctx, req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestBookingUsecase_CreateBookingReleasesOnInsertFailure(t *testing.T) {
	tests := []struct {
		name     string
		insertFn func(*entity.Booking) error
		wantErr  error
	}{
		{
			name:     "database error",
			insertFn: func(*entity.Booking) error { return errors.New("connection reset") },
		},
		{
			name: "active slot index",
			insertFn: func(*entity.Booking) error {
				return &pgconn.PgError{Code: "23505", ConstraintName: "bookings_active_slot_key"}
			},
			wantErr: service.ErrSlotTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t)
			f.bookings.createFn = tt.insertFn
			ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

			_, err := f.uc.CreateBooking(ctx, onlineRequest())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			held := f.held(t, "1", "10:00", "11:00")
			if held["10:00"] || held["11:00"] {
				t.Errorf("slots still held after failed insert: %v", held)
			}
			if _, rollbacks := f.pool.counts(); rollbacks != 1 {
				t.Errorf("rollbacks = %d, want 1", rollbacks)
			}
		})
	}
}

func TestBookingUsecase_GetMyBookings(t *testing.T) {
	f := newBookingFixture(t)
	alice, bob := uuid.New(), uuid.New()

	aliceCtx := withUser(context.Background(), alice, entity.RoleIDStudent)
	if _, err := f.uc.CreateBooking(aliceCtx, onlineRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := onlineRequest()
	req.TutorID, req.Subject = "3", "Chemistry"
	if _, err := f.uc.CreateBooking(withUser(context.Background(), bob, entity.RoleIDStudent), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := f.uc.GetMyBookings(aliceCtx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Total != 1 || got.Bookings[0].TutorID != "1" {
		t.Errorf("unexpected bookings: %+v", got)
	}

	if _, err := f.uc.GetMyBookings(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestBookingUsecase_CancelBooking(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name    string
		ctx     func(bookingID uuid.UUID) context.Context
		id      func(bookingID uuid.UUID) uuid.UUID
		wantErr error
	}{
		{
			name: "owner",
			ctx:  func(uuid.UUID) context.Context { return withUser(context.Background(), owner, entity.RoleIDStudent) },
		},
		{
			name: "admin",
			ctx:  func(uuid.UUID) context.Context { return withUser(context.Background(), uuid.New(), entity.RoleIDAdmin) },
		},
		{
			name:    "another student",
			ctx:     func(uuid.UUID) context.Context { return withUser(context.Background(), uuid.New(), entity.RoleIDStudent) },
			wantErr: ErrBookingNotOwned,
		},
		{
			name:    "unknown booking",
			ctx:     func(uuid.UUID) context.Context { return withUser(context.Background(), owner, entity.RoleIDStudent) },
			id:      func(uuid.UUID) uuid.UUID { return uuid.New() },
			wantErr: ErrBookingNotFound,
		},
		{
			name:    "anonymous",
			ctx:     func(uuid.UUID) context.Context { return context.Background() },
			wantErr: ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t)
			created, err := f.uc.CreateBooking(withUser(context.Background(), owner, entity.RoleIDStudent), onlineRequest())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			bookingID := created.ID
			target := bookingID
			if tt.id != nil {
				target = tt.id(bookingID)
			}

			err = f.uc.CancelBooking(tt.ctx(bookingID), target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			held := f.held(t, "1", "10:00", "11:00")
			if tt.wantErr != nil {
				if !held["10:00"] {
					t.Error("slots released by a failed cancel")
				}
				return
			}
			if held["10:00"] || held["11:00"] {
				t.Errorf("slots still held after cancel: %v", held)
			}
			if !f.audit.has(entity.AuditActionBookingCancel) {
				t.Error("expected booking.cancel audit entry")
			}
			if err := f.uc.CancelBooking(tt.ctx(bookingID), bookingID); !errors.Is(err, ErrBookingAlreadyCancelled) {
				t.Errorf("second cancel: expected ErrBookingAlreadyCancelled, got %v", err)
			}
		})
	}
}

func TestBookingUsecase_CancelledSlotCanBeRebooked(t *testing.T) {
	f := newBookingFixture(t)
	ctx := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)

	created, err := f.uc.CreateBooking(ctx, onlineRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.uc.CancelBooking(ctx, created.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.uc.CreateBooking(ctx, onlineRequest()); err != nil {
		t.Fatalf("rebooking a cancelled slot: %v", err)
	}
}

func TestSessionAmount(t *testing.T) {
	tests := []struct {
		price   float64
		minutes int
		want    string
	}{
		{price: 800, minutes: 60, want: "800.00"},
		{price: 800, minutes: 120, want: "1600.00"},
		{price: 766.4, minutes: 180, want: "2299.20"},
		{price: 333.33, minutes: 60, want: "333.33"},
	}

	for _, tt := range tests {
		if got := sessionAmount(tt.price, tt.minutes).StringFixed(2); got != tt.want {
			t.Errorf("sessionAmount(%v, %d) = %s, want %s", tt.price, tt.minutes, got, tt.want)
		}
	}
}
