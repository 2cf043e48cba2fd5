package usecase

import (
	"context"
	"errors"
	"testing"

	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeGateway struct {
	created       []int64
	metadata      map[string]string
	confirmStatus string
	err           error
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*service.PaymentIntent, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, amount)
	g.metadata = metadata
	return &service.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret", Status: "requires_payment_method", Amount: amount, Currency: currency}, nil
}

func (g *fakeGateway) ConfirmIntent(_ context.Context, intentID, _ string) (*service.PaymentIntent, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &service.PaymentIntent{ID: intentID, Status: g.confirmStatus}, nil
}

type paymentFixture struct {
	uc       PaymentUsecase
	bookings *fakeBookingRepo
	gateway  *fakeGateway
	audit    *fakeAuditService
	student  uuid.UUID
	booking  entity.Booking
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	db, _ := newTestDB(t)

	f := &paymentFixture{
		bookings: &fakeBookingRepo{},
		gateway:  &fakeGateway{confirmStatus: service.PaymentIntentSucceeded},
		audit:    &fakeAuditService{},
		student:  uuid.New(),
	}
	f.booking = entity.Booking{
		ID:              uuid.New(),
		BookingCode:     "BK-20260512-A1B2C3",
		StudentID:       f.student,
		TutorID:         "1",
		SessionDate:     bookingDate,
		StartTime:       "10:00",
		DurationMinutes: 120,
		Amount:          decimal.RequireFromString("1532.80"),
		Currency:        "inr",
		Status:          entity.BookingStatusPending,
	}
	f.bookings.bookings = []entity.Booking{f.booking}
	f.uc = NewPaymentUsecase(db, quietLogger(), f.bookings, f.gateway, f.audit)
	return f
}

func (f *paymentFixture) ctx() context.Context {
	return withUser(context.Background(), f.student, entity.RoleIDStudent)
}

func TestPaymentUsecase_CreatePaymentIntent(t *testing.T) {
	f := newPaymentFixture(t)

	got, err := f.uc.CreatePaymentIntent(f.ctx(), &dto.CreatePaymentIntentRequest{BookingID: f.booking.ID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Amount != 153280 || got.Currency != "inr" {
		t.Errorf("amount = %d %s, want 153280 inr", got.Amount, got.Currency)
	}
	if got.ClientSecret == "" {
		t.Error("expected a client secret")
	}
	if f.gateway.metadata["booking_code"] != f.booking.BookingCode {
		t.Errorf("metadata = %v", f.gateway.metadata)
	}

	stored, _ := f.bookings.FindByID(context.Background(), nil, f.booking.ID)
	if stored.PaymentIntentID == nil || *stored.PaymentIntentID != "pi_123" {
		t.Errorf("PaymentIntentID = %v, want pi_123", stored.PaymentIntentID)
	}
	if !f.audit.has(entity.AuditActionPaymentIntent) {
		t.Error("expected payment.intent audit entry")
	}
}

func TestPaymentUsecase_CreatePaymentIntentCurrencyOverride(t *testing.T) {
	f := newPaymentFixture(t)

	got, err := f.uc.CreatePaymentIntent(f.ctx(), &dto.CreatePaymentIntentRequest{BookingID: f.booking.ID.String(), Currency: "USD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Currency != "usd" {
		t.Errorf("Currency = %q, want usd", got.Currency)
	}
}

func TestPaymentUsecase_CreatePaymentIntentErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *paymentFixture) (context.Context, string)
		wantErr error
	}{
		{
			name:    "anonymous",
			setup:   func(f *paymentFixture) (context.Context, string) { return context.Background(), f.booking.ID.String() },
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "malformed id",
			setup:   func(f *paymentFixture) (context.Context, string) { return f.ctx(), "not-a-uuid" },
			wantErr: ErrBookingNotFound,
		},
		{
			name:    "unknown booking",
			setup:   func(f *paymentFixture) (context.Context, string) { return f.ctx(), uuid.NewString() },
			wantErr: ErrBookingNotFound,
		},
		{
			name: "someone else's booking",
			setup: func(f *paymentFixture) (context.Context, string) {
				return withUser(context.Background(), uuid.New(), entity.RoleIDStudent), f.booking.ID.String()
			},
			wantErr: ErrBookingNotOwned,
		},
		{
			name: "already confirmed",
			setup: func(f *paymentFixture) (context.Context, string) {
				f.bookings.bookings[0].Status = entity.BookingStatusConfirmed
				return f.ctx(), f.booking.ID.String()
			},
			wantErr: ErrBookingAlreadyPaid,
		},
		{
			name: "cancelled",
			setup: func(f *paymentFixture) (context.Context, string) {
				f.bookings.bookings[0].Status = entity.BookingStatusCancelled
				return f.ctx(), f.booking.ID.String()
			},
			wantErr: ErrBookingAlreadyCancelled,
		},
		{
			name: "provider failure",
			setup: func(f *paymentFixture) (context.Context, string) {
				f.gateway.err = errors.New("card_declined")
				return f.ctx(), f.booking.ID.String()
			},
			wantErr: ErrPaymentFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t)
			ctx, id := tt.setup(f)
			if _, err := f.uc.CreatePaymentIntent(ctx, &dto.CreatePaymentIntentRequest{BookingID: id}); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPaymentUsecase_ConfirmPayment(t *testing.T) {
	tests := []struct {
		name              string
		status            string
		wantBookingStatus entity.BookingStatus
	}{
		{name: "succeeded", status: service.PaymentIntentSucceeded, wantBookingStatus: entity.BookingStatusConfirmed},
		{name: "needs action", status: "requires_action", wantBookingStatus: entity.BookingStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t)
			f.gateway.confirmStatus = tt.status
			if _, err := f.uc.CreatePaymentIntent(f.ctx(), &dto.CreatePaymentIntentRequest{BookingID: f.booking.ID.String()}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := f.uc.ConfirmPayment(f.ctx(), &dto.ConfirmPaymentRequest{PaymentIntentID: "pi_123", PaymentMethodID: "pm_card_visa"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.PaymentStatus != tt.status {
				t.Errorf("PaymentStatus = %q, want %q", got.PaymentStatus, tt.status)
			}
			if got.BookingStatus != string(tt.wantBookingStatus) {
				t.Errorf("BookingStatus = %q, want %q", got.BookingStatus, tt.wantBookingStatus)
			}

			stored, _ := f.bookings.FindByID(context.Background(), nil, f.booking.ID)
			if stored.Status != tt.wantBookingStatus {
				t.Errorf("stored status = %q, want %q", stored.Status, tt.wantBookingStatus)
			}
			if f.audit.has(entity.AuditActionPaymentConfirm) != (tt.wantBookingStatus == entity.BookingStatusConfirmed) {
				t.Errorf("payment.confirm audit mismatch for %s", tt.status)
			}
		})
	}
}

func TestPaymentUsecase_ConfirmPaymentErrors(t *testing.T) {
	f := newPaymentFixture(t)
	if _, err := f.uc.ConfirmPayment(f.ctx(), &dto.ConfirmPaymentRequest{PaymentIntentID: "pi_unknown"}); !errors.Is(err, ErrPaymentIntentNotFound) {
		t.Errorf("expected ErrPaymentIntentNotFound, got %v", err)
	}

	if _, err := f.uc.CreatePaymentIntent(f.ctx(), &dto.CreatePaymentIntentRequest{BookingID: f.booking.ID.String()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stranger := withUser(context.Background(), uuid.New(), entity.RoleIDStudent)
	if _, err := f.uc.ConfirmPayment(stranger, &dto.ConfirmPaymentRequest{PaymentIntentID: "pi_123"}); !errors.Is(err, ErrBookingNotOwned) {
		t.Errorf("expected ErrBookingNotOwned, got %v", err)
	}

	if _, err := f.uc.ConfirmPayment(f.ctx(), &dto.ConfirmPaymentRequest{PaymentIntentID: "pi_123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.uc.ConfirmPayment(f.ctx(), &dto.ConfirmPaymentRequest{PaymentIntentID: "pi_123"}); !errors.Is(err, ErrBookingAlreadyPaid) {
		t.Errorf("expected ErrBookingAlreadyPaid, got %v", err)
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{amount: "800.00", want: 80000},
		{amount: "1532.80", want: 153280},
		{amount: "0.01", want: 1},
		{amount: "333.335", want: 33334},
	}

	for _, tt := range tests {
		if got := minorUnits(decimal.RequireFromString(tt.amount)); got != tt.want {
			t.Errorf("minorUnits(%s) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}
