package converter

import (
	"errors"
	"fmt"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/domain/entity"

	"github.com/shopspring/decimal"
)

var (
	ErrTutorMissingID   = errors.New("tutor id is empty")
	ErrTutorMissingName = errors.New("tutor name is empty")
	ErrTutorBadMode     = errors.New("tutor has an unknown mode")
	ErrTutorNoModes     = errors.New("tutor offers no mode")
	ErrTutorBadPrice    = errors.New("tutor price is negative")
	ErrTutorBadRating   = errors.New("tutor rating is outside 0-5")
	ErrTutorBadLocation = errors.New("tutor location is out of range")
)

// TutorToCatalog validates a stored tutor row and converts it to a catalog record.
func TutorToCatalog(t *entity.Tutor) (catalog.Tutor, error) {
	if t.ID == "" {
		return catalog.Tutor{}, ErrTutorMissingID
	}
	if t.Name == "" {
		return catalog.Tutor{}, ErrTutorMissingName
	}
	if len(t.Modes) == 0 {
		return catalog.Tutor{}, ErrTutorNoModes
	}

	modes := make([]catalog.Mode, 0, len(t.Modes))
	for _, m := range t.Modes {
		mode := catalog.ParseMode(m)
		if mode == catalog.ModeAll {
			return catalog.Tutor{}, fmt.Errorf("%w: %q", ErrTutorBadMode, m)
		}
		modes = append(modes, mode)
	}

	price := t.PricePerHour.InexactFloat64()
	if price < 0 {
		return catalog.Tutor{}, ErrTutorBadPrice
	}
	if t.Rating < 0 || t.Rating > 5 {
		return catalog.Tutor{}, ErrTutorBadRating
	}

	var loc *catalog.Location
	if t.HasLocation() {
		lat, lng := *t.Latitude, *t.Longitude
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return catalog.Tutor{}, ErrTutorBadLocation
		}
		loc = &catalog.Location{Lat: lat, Lng: lng}
	}

	return catalog.Tutor{
		ID:              t.ID,
		Name:            t.Name,
		Title:           t.Title,
		Bio:             t.Bio,
		Subjects:        nonNil(t.Subjects),
		Levels:          nonNil(t.Levels),
		Modes:           modes,
		PricePerHour:    price,
		Rating:          t.Rating,
		TotalReviews:    t.TotalReviews,
		ExperienceYears: t.ExperienceYears,
		Location:        loc,
		IsVerified:      t.IsVerified,
		IsOnline:        t.IsOnline,
		AvailableToday:  t.AvailableToday,
	}, nil
}

// TutorsToCatalog converts every valid row, keeping source order. Each invalid
// row yields one error naming its id.
func TutorsToCatalog(rows []entity.Tutor) ([]catalog.Tutor, []error) {
	tutors := make([]catalog.Tutor, 0, len(rows))
	var rejected []error
	for i := range rows {
		t, err := TutorToCatalog(&rows[i])
		if err != nil {
			rejected = append(rejected, fmt.Errorf("tutor %q: %w", rows[i].ID, err))
			continue
		}
		tutors = append(tutors, t)
	}
	return tutors, rejected
}

// CatalogTutorToResponse converts a catalog record. distanceKm is optional.
func CatalogTutorToResponse(t *catalog.Tutor, distanceKm *float64) dto.TutorResponse {
	modes := make([]string, len(t.Modes))
	for i, m := range t.Modes {
		modes[i] = string(m)
	}

	resp := dto.TutorResponse{
		ID:              t.ID,
		Name:            t.Name,
		Title:           t.Title,
		Bio:             t.Bio,
		Subjects:        nonNil(t.Subjects),
		Levels:          nonNil(t.Levels),
		Modes:           modes,
		PricePerHour:    t.PricePerHour,
		Rating:          t.Rating,
		TotalReviews:    t.TotalReviews,
		ExperienceYears: t.ExperienceYears,
		IsVerified:      t.IsVerified,
		IsOnline:        t.IsOnline,
		AvailableToday:  t.AvailableToday,
	}
	if t.Location != nil {
		resp.Location = &dto.LocationResponse{Lat: t.Location.Lat, Lng: t.Location.Lng}
	}
	if distanceKm != nil {
		d := *distanceKm
		resp.DistanceKm = &d
		resp.DistanceLabel = catalog.FormatDistance(d)
	}
	return resp
}

// ViewToResponses converts the tutors of a view, attaching distances the view knows.
func ViewToResponses(view catalog.View, tutors []*catalog.Tutor) []dto.TutorResponse {
	responses := make([]dto.TutorResponse, len(tutors))
	for i, t := range tutors {
		var dist *float64
		if d, ok := view.Distance(t.ID); ok {
			dist = &d
		}
		responses[i] = CatalogTutorToResponse(t, dist)
	}
	return responses
}

// TutorRequestToEntity builds a tutor row from an admin request.
func TutorRequestToEntity(req *dto.TutorRequest, id string) *entity.Tutor {
	return &entity.Tutor{
		ID:              id,
		Name:            req.Name,
		Title:           req.Title,
		Bio:             req.Bio,
		Subjects:        entity.StringList(nonNil(req.Subjects)),
		Levels:          entity.StringList(nonNil(req.Levels)),
		Modes:           entity.StringList(nonNil(req.Modes)),
		PricePerHour:    decimal.NewFromFloat(req.PricePerHour),
		Rating:          req.Rating,
		TotalReviews:    req.TotalReviews,
		ExperienceYears: req.ExperienceYears,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		IsVerified:      req.IsVerified,
		IsOnline:        req.IsOnline,
		AvailableToday:  req.AvailableToday,
	}
}

// CatalogTutorToEntity is the inverse of TutorToCatalog, used for seeding.
func CatalogTutorToEntity(t *catalog.Tutor) entity.Tutor {
	modes := make(entity.StringList, len(t.Modes))
	for i, m := range t.Modes {
		modes[i] = string(m)
	}
	row := entity.Tutor{
		ID:              t.ID,
		Name:            t.Name,
		Title:           t.Title,
		Bio:             t.Bio,
		Subjects:        entity.StringList(nonNil(t.Subjects)),
		Levels:          entity.StringList(nonNil(t.Levels)),
		Modes:           modes,
		PricePerHour:    decimal.NewFromFloat(t.PricePerHour),
		Rating:          t.Rating,
		TotalReviews:    t.TotalReviews,
		ExperienceYears: t.ExperienceYears,
		IsVerified:      t.IsVerified,
		IsOnline:        t.IsOnline,
		AvailableToday:  t.AvailableToday,
	}
	if t.Location != nil {
		lat, lng := t.Location.Lat, t.Location.Lng
		row.Latitude, row.Longitude = &lat, &lng
	}
	return row
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
