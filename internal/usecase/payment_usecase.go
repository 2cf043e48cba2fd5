package usecase

import (
	"context"
	"errors"
	"strings"

	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/delivery/http/middleware"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/domain/repository"
	"tutorinminutes-backend/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBookingAlreadyPaid    = errors.New("booking is already paid")
	ErrPaymentIntentNotFound = errors.New("payment intent not found")
	ErrPaymentFailed         = errors.New("payment could not be processed")
)

type PaymentUsecase interface {
	CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest) (*dto.PaymentIntentResponse, error)
	ConfirmPayment(ctx context.Context, req *dto.ConfirmPaymentRequest) (*dto.PaymentConfirmResponse, error)
}

type paymentUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	bookingRepo  repository.BookingRepository
	gateway      service.PaymentGateway
	auditService service.AuditService
}

func NewPaymentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	bookingRepo repository.BookingRepository,
	gateway service.PaymentGateway,
	auditService service.AuditService,
) PaymentUsecase {
	return &paymentUsecase{
		db:           db,
		log:          log,
		bookingRepo:  bookingRepo,
		gateway:      gateway,
		auditService: auditService,
	}
}

// CreatePaymentIntent opens a provider payment intent for the booking amount
// in minor units and stores its id on the booking.
func (u *paymentUsecase) CreatePaymentIntent(ctx context.Context, req *dto.CreatePaymentIntentRequest) (*dto.PaymentIntentResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, ErrBookingNotFound
	}
	booking, err := u.ownedBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = booking.Currency
	}
	amount := minorUnits(booking.Amount)

	pi, err := u.gateway.CreateIntent(ctx, amount, currency, map[string]string{
		"booking_id":   booking.ID.String(),
		"booking_code": booking.BookingCode,
	})
	if err != nil {
		u.log.Warnf("Failed to create payment intent for booking %s: %+v", booking.ID, err)
		return nil, ErrPaymentFailed
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.bookingRepo.SetPaymentIntent(ctx, tx, booking.ID, pi.ID); err != nil {
		u.log.Warnf("Failed to store payment intent on booking %s: %+v", booking.ID, err)
		return nil, err
	}

	if err := u.auditService.LogEvent(ctx, tx, &userID, entity.AuditActionPaymentIntent, entity.JSON{
		"booking_id":        booking.ID.String(),
		"payment_intent_id": pi.ID,
		"amount":            amount,
		"currency":          currency,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return &dto.PaymentIntentResponse{
		BookingID:       booking.ID.String(),
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Amount:          pi.Amount,
		Currency:        pi.Currency,
		Status:          pi.Status,
	}, nil
}

// ConfirmPayment confirms the intent with the provider. A succeeded intent
// moves a pending booking to confirmed.
func (u *paymentUsecase) ConfirmPayment(ctx context.Context, req *dto.ConfirmPaymentRequest) (*dto.PaymentConfirmResponse, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	booking, err := u.bookingRepo.FindByPaymentIntentID(ctx, u.db, req.PaymentIntentID)
	if err != nil {
		u.log.Warnf("Failed to find booking for payment intent %s: %+v", req.PaymentIntentID, err)
		return nil, err
	}
	if booking == nil {
		return nil, ErrPaymentIntentNotFound
	}
	if booking.StudentID != userID {
		return nil, ErrBookingNotOwned
	}
	if booking.IsCancelled() {
		return nil, ErrBookingAlreadyCancelled
	}
	if booking.IsConfirmed() {
		return nil, ErrBookingAlreadyPaid
	}

	pi, err := u.gateway.ConfirmIntent(ctx, req.PaymentIntentID, req.PaymentMethodID)
	if err != nil {
		u.log.Warnf("Failed to confirm payment intent %s: %+v", req.PaymentIntentID, err)
		return nil, ErrPaymentFailed
	}

	resp := &dto.PaymentConfirmResponse{
		BookingID:       booking.ID.String(),
		PaymentIntentID: pi.ID,
		PaymentStatus:   pi.Status,
		BookingStatus:   string(booking.Status),
	}
	if pi.Status != service.PaymentIntentSucceeded {
		return resp, nil
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.bookingRepo.UpdateStatus(ctx, tx, booking.ID, entity.BookingStatusConfirmed); err != nil {
		u.log.Warnf("Failed to confirm booking %s: %+v", booking.ID, err)
		return nil, err
	}

	if err := u.auditService.LogUpdate(ctx, tx, &userID, entity.AuditActionPaymentConfirm, entity.AuditEntityBooking, booking.ID.String(),
		entity.JSON{"status": booking.Status}, entity.JSON{"status": entity.BookingStatusConfirmed, "payment_intent_id": pi.ID}); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	resp.BookingStatus = string(entity.BookingStatusConfirmed)
	u.log.Infof("Booking confirmed: id=%s, payment_intent=%s", booking.ID, pi.ID)
	return resp, nil
}

func (u *paymentUsecase) ownedBooking(ctx context.Context, bookingID, userID uuid.UUID) (*entity.Booking, error) {
	booking, err := u.bookingRepo.FindByID(ctx, u.db, bookingID)
	if err != nil {
		u.log.Warnf("Failed to find booking %s: %+v", bookingID, err)
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if booking.StudentID != userID {
		return nil, ErrBookingNotOwned
	}
	if booking.IsCancelled() {
		return nil, ErrBookingAlreadyCancelled
	}
	if booking.IsConfirmed() {
		return nil, ErrBookingAlreadyPaid
	}
	return booking, nil
}

// minorUnits converts a two-decimal amount to the provider's smallest unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
