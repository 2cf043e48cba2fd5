package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/converter"
	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/delivery/http/middleware"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/domain/repository"
	"tutorinminutes-backend/internal/service"
	"tutorinminutes-backend/internal/timeslot"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrTutorNotFound      = errors.New("tutor not found")
	ErrTutorAlreadyExists = errors.New("tutor already exists")
	ErrTutorHasBookings   = errors.New("tutor still has bookings")
	ErrInvalidTutor       = errors.New("tutor record is invalid")
	ErrSearchTermRequired = errors.New("search term is required")
	ErrInvalidDateFormat  = errors.New("invalid date format, use YYYY-MM-DD")
	ErrDateInPast         = errors.New("date is in the past")
	ErrLocationIncomplete = errors.New("lat and lng must be given together")
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// CatalogSource provides the validated tutor catalog.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) ([]catalog.Tutor, error)
}

type TutorUsecase interface {
	CatalogSource
	ListTutors(ctx context.Context, q *dto.TutorListQuery) (*dto.TutorListResponse, error)
	SearchTutors(ctx context.Context, q *dto.TutorListQuery) (*dto.TutorListResponse, error)
	GetNearbyTutors(ctx context.Context, q *dto.NearbyQuery) ([]dto.TutorResponse, error)
	GetTutor(ctx context.Context, id string) (*dto.TutorResponse, error)
	GetAvailability(ctx context.Context, id string, q *dto.AvailabilityQuery) (*dto.AvailabilityResponse, error)
	CheckService(ctx context.Context, req *dto.CheckServiceRequest) (*dto.CheckServiceResponse, error)
	CreateTutor(ctx context.Context, req *dto.TutorRequest) (*dto.TutorResponse, error)
	UpdateTutor(ctx context.Context, id string, req *dto.TutorRequest) (*dto.TutorResponse, error)
	DeleteTutor(ctx context.Context, id string) error
}

type tutorUsecase struct {
	db            *gorm.DB
	log           *logrus.Logger
	tutorRepo     repository.TutorRepository
	bookingRepo   repository.BookingRepository
	slotService   *service.SlotService
	catalogCache  *service.CatalogCache
	auditService  service.AuditService
	serviceRadius float64
	loc           *time.Location
	now           func() time.Time
}

func NewTutorUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	tutorRepo repository.TutorRepository,
	bookingRepo repository.BookingRepository,
	slotService *service.SlotService,
	catalogCache *service.CatalogCache,
	auditService service.AuditService,
	serviceRadius float64,
	loc *time.Location,
) TutorUsecase {
	return &tutorUsecase{
		db:            db,
		log:           log,
		tutorRepo:     tutorRepo,
		bookingRepo:   bookingRepo,
		slotService:   slotService,
		catalogCache:  catalogCache,
		auditService:  auditService,
		serviceRadius: serviceRadius,
		loc:           loc,
		now:           time.Now,
	}
}

// LoadCatalog returns the cached catalog, or rebuilds it from the database.
// Rows that fail validation are logged and left out.
func (u *tutorUsecase) LoadCatalog(ctx context.Context) ([]catalog.Tutor, error) {
	tutors, ok, err := u.catalogCache.Get(ctx)
	if err != nil {
		u.log.Warnf("Failed to read catalog cache: %+v", err)
	} else if ok {
		return tutors, nil
	}

	rows, err := u.tutorRepo.FindAll(ctx, u.db)
	if err != nil {
		u.log.Warnf("Failed to find tutors: %+v", err)
		return nil, err
	}

	tutors, rejected := converter.TutorsToCatalog(rows)
	for _, e := range rejected {
		u.log.Warnf("Skipping invalid tutor record: %v", e)
	}

	if err := u.catalogCache.Set(ctx, tutors); err != nil {
		u.log.Warnf("Failed to write catalog cache: %+v", err)
	}
	return tutors, nil
}

func (u *tutorUsecase) ListTutors(ctx context.Context, q *dto.TutorListQuery) (*dto.TutorListResponse, error) {
	if (q.Lat == nil) != (q.Lng == nil) {
		return nil, ErrLocationIncomplete
	}

	tutors, err := u.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	view := catalog.Run(tutors, listQuery(q))

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	// Compare before multiplying so huge page numbers cannot overflow.
	start := view.Len()
	if page-1 < view.Len()/limit+1 {
		start = min((page-1)*limit, view.Len())
	}
	end := min(start+limit, view.Len())

	return &dto.TutorListResponse{
		Tutors: converter.ViewToResponses(view, view.Tutors[start:end]),
		Total:  view.Len(),
		Page:   page,
		Limit:  limit,
	}, nil
}

func (u *tutorUsecase) SearchTutors(ctx context.Context, q *dto.TutorListQuery) (*dto.TutorListResponse, error) {
	if strings.TrimSpace(q.Q) == "" {
		return nil, ErrSearchTermRequired
	}
	return u.ListTutors(ctx, q)
}

// GetNearbyTutors returns offline-capable tutors within the radius, nearest first.
func (u *tutorUsecase) GetNearbyTutors(ctx context.Context, q *dto.NearbyQuery) ([]dto.TutorResponse, error) {
	tutors, err := u.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	radius := q.Radius
	if radius <= 0 {
		radius = u.serviceRadius
	}

	view, within := u.nearby(tutors, catalog.Location{Lat: *q.Lat, Lng: *q.Lng}, radius)
	return converter.ViewToResponses(view, within), nil
}

func (u *tutorUsecase) nearby(tutors []catalog.Tutor, at catalog.Location, radius float64) (catalog.View, []*catalog.Tutor) {
	query := catalog.Query{
		Filters: catalog.Filters{
			Mode:       catalog.ModeOffline,
			PriceRange: catalog.PriceRange{Min: 0, Max: math.MaxFloat64},
		},
		Sort:     catalog.SortNearest,
		Observer: &at,
	}
	view := catalog.Run(tutors, query)

	within := make([]*catalog.Tutor, 0, view.Len())
	for _, t := range view.Tutors {
		if d, ok := view.Distance(t.ID); ok && d <= radius {
			within = append(within, t)
		}
	}
	return view, within
}

func (u *tutorUsecase) GetTutor(ctx context.Context, id string) (*dto.TutorResponse, error) {
	t, err := u.findTutor(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := converter.CatalogTutorToResponse(t, nil)
	return &resp, nil
}

func (u *tutorUsecase) findTutor(ctx context.Context, id string) (*catalog.Tutor, error) {
	tutors, err := u.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tutors {
		if tutors[i].ID == id {
			return &tutors[i], nil
		}
	}
	return nil, ErrTutorNotFound
}

// GetAvailability marks each grid slot of the day as free or taken. A slot is
// taken when a live booking covers it, when it is held in Redis, or when it
// has already started.
func (u *tutorUsecase) GetAvailability(ctx context.Context, id string, q *dto.AvailabilityQuery) (*dto.AvailabilityResponse, error) {
	date, err := time.ParseInLocation(time.DateOnly, q.Date, u.loc)
	if err != nil {
		return nil, ErrInvalidDateFormat
	}
	now := u.now().In(u.loc)
	if date.Before(startOfDay(now)) {
		return nil, ErrDateInPast
	}

	if _, err := u.findTutor(ctx, id); err != nil {
		return nil, err
	}

	slots := timeslot.Day()
	taken := make(map[string]bool, len(slots))

	bookings, err := u.bookingRepo.FindActiveByTutorAndDate(ctx, u.db, id, date)
	if err != nil {
		u.log.Warnf("Failed to find bookings for tutor %s: %+v", id, err)
		return nil, err
	}
	for _, b := range bookings {
		span, err := timeslot.Span(b.StartTime, b.DurationMinutes)
		if err != nil {
			u.log.Warnf("Booking %s has an off-grid slot %s: %+v", b.ID, b.StartTime, err)
			continue
		}
		for _, s := range span {
			taken[s] = true
		}
	}

	held, err := u.slotService.Held(ctx, id, date, slots)
	if err != nil {
		u.log.Warnf("Failed to read slot holds for tutor %s: %+v", id, err)
		return nil, err
	}

	resp := &dto.AvailabilityResponse{TutorID: id, Date: q.Date, Slots: make([]dto.SlotResponse, len(slots))}
	for i, s := range slots {
		startsAt, _ := timeslot.StartsAt(date, s, u.loc)
		resp.Slots[i] = dto.SlotResponse{
			Time:      s,
			Available: !taken[s] && !held[s] && startsAt.After(now),
		}
	}
	return resp, nil
}

// CheckService reports whether a session in the given mode can be delivered at
// a point. Online sessions only need some online tutor to exist.
func (u *tutorUsecase) CheckService(ctx context.Context, req *dto.CheckServiceRequest) (*dto.CheckServiceResponse, error) {
	tutors, err := u.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	mode := catalog.ParseMode(req.Mode)
	if mode == catalog.ModeAll {
		mode = catalog.ModeOffline
	}
	resp := &dto.CheckServiceResponse{Mode: string(mode), RadiusKm: u.serviceRadius}

	if mode == catalog.ModeOnline {
		for i := range tutors {
			if tutors[i].OffersMode(catalog.ModeOnline) {
				resp.TutorsInArea++
			}
		}
		resp.Available = resp.TutorsInArea > 0
		resp.Message = "Online sessions are available from anywhere"
		if !resp.Available {
			resp.Message = "No tutor currently offers online sessions"
		}
		return resp, nil
	}

	view, within := u.nearby(tutors, catalog.Location{Lat: *req.Lat, Lng: *req.Lng}, u.serviceRadius)
	resp.TutorsInArea = len(within)
	resp.Available = len(within) > 0
	if resp.Available {
		d, _ := view.Distance(within[0].ID)
		resp.NearestKm = &d
		resp.Message = "Offline tutors are available in your area"
	} else {
		resp.Message = "No offline tutors serve this location yet"
	}
	return resp, nil
}

func (u *tutorUsecase) CreateTutor(ctx context.Context, req *dto.TutorRequest) (*dto.TutorResponse, error) {
	actorID := actorFromContext(ctx)

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	tutor := converter.TutorRequestToEntity(req, id)
	record, err := converter.TutorToCatalog(tutor)
	if err != nil {
		return nil, errors.Join(ErrInvalidTutor, err)
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := u.tutorRepo.Create(ctx, tx, tutor); err != nil {
		if isDuplicateKeyError(err, "tutors_pkey") {
			return nil, ErrTutorAlreadyExists
		}
		u.log.Warnf("Failed to create tutor: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, actorID, entity.AuditActionTutorCreate, entity.AuditEntityTutor, id, tutor); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.invalidateCatalog(ctx)
	resp := converter.CatalogTutorToResponse(&record, nil)
	return &resp, nil
}

func (u *tutorUsecase) UpdateTutor(ctx context.Context, id string, req *dto.TutorRequest) (*dto.TutorResponse, error) {
	actorID := actorFromContext(ctx)

	tutor := converter.TutorRequestToEntity(req, id)
	record, err := converter.TutorToCatalog(tutor)
	if err != nil {
		return nil, errors.Join(ErrInvalidTutor, err)
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	existing, err := u.tutorRepo.FindByID(ctx, tx, id)
	if err != nil {
		u.log.Warnf("Failed to find tutor %s: %+v", id, err)
		return nil, err
	}
	if existing == nil {
		return nil, ErrTutorNotFound
	}
	tutor.UserID = existing.UserID
	tutor.CreatedAt = existing.CreatedAt

	if err := u.tutorRepo.Update(ctx, tx, tutor); err != nil {
		u.log.Warnf("Failed to update tutor %s: %+v", id, err)
		return nil, err
	}

	if err := u.auditService.LogUpdate(ctx, tx, actorID, entity.AuditActionTutorUpdate, entity.AuditEntityTutor, id, existing, tutor); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.invalidateCatalog(ctx)
	resp := converter.CatalogTutorToResponse(&record, nil)
	return &resp, nil
}

func (u *tutorUsecase) DeleteTutor(ctx context.Context, id string) error {
	actorID := actorFromContext(ctx)

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	existing, err := u.tutorRepo.FindByID(ctx, tx, id)
	if err != nil {
		u.log.Warnf("Failed to find tutor %s: %+v", id, err)
		return err
	}
	if existing == nil {
		return ErrTutorNotFound
	}

	rows, err := u.tutorRepo.Delete(ctx, tx, id)
	if err != nil {
		if isForeignKeyError(err, "bookings_tutor_id_fkey") {
			return ErrTutorHasBookings
		}
		u.log.Warnf("Failed to delete tutor %s: %+v", id, err)
		return err
	}
	if rows == 0 {
		return ErrTutorNotFound
	}

	if err := u.auditService.LogDelete(ctx, tx, actorID, entity.AuditActionTutorDelete, entity.AuditEntityTutor, id, existing); err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return err
	}

	u.invalidateCatalog(ctx)
	return nil
}

func (u *tutorUsecase) invalidateCatalog(ctx context.Context) {
	if err := u.catalogCache.Invalidate(ctx); err != nil {
		u.log.Warnf("Failed to invalidate catalog cache: %+v", err)
	}
}

// listQuery maps API parameters onto a catalog query. Unset price bounds are
// open, so the API never hides a tutor for being above the UI slider maximum.
func listQuery(q *dto.TutorListQuery) catalog.Query {
	query := catalog.Query{
		SearchTerm: q.Q,
		Filters: catalog.Filters{
			Subject:    q.Subject,
			Level:      q.Level,
			Mode:       catalog.ParseMode(q.Mode),
			PriceRange: catalog.PriceRange{Min: 0, Max: math.MaxFloat64},
		},
	}
	query.Sort, _ = catalog.ParseSortKey(q.Sort)

	if q.MinPrice != nil {
		query.Filters.PriceRange.Min = *q.MinPrice
	}
	if q.MaxPrice != nil {
		query.Filters.PriceRange.Max = *q.MaxPrice
	}
	if q.MinRating != nil {
		query.Filters.MinRating = *q.MinRating
	}
	if q.Lat != nil && q.Lng != nil {
		query.Observer = &catalog.Location{Lat: *q.Lat, Lng: *q.Lng}
	}
	return query
}

// actorFromContext returns the authenticated user, or nil for system actions.
func actorFromContext(ctx context.Context) *uuid.UUID {
	if id, ok := middleware.GetUserIDFromContext(ctx); ok {
		return &id
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
