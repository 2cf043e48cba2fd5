// Package catalog filters, searches and sorts the tutor listing.
//
// Everything here is synchronous and allocation-light; the whole catalog is
// recomputed on every query change, there is no incremental update.
package catalog

import "slices"

// Mode is the way a tutor delivers sessions.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
	// ModeAll is only meaningful as a filter value.
	ModeAll Mode = "all"
)

// ParseMode maps a raw filter value to a Mode. Unknown or empty values mean ModeAll.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeOnline:
		return ModeOnline
	case ModeOffline:
		return ModeOffline
	default:
		return ModeAll
	}
}

// Location is a latitude/longitude pair in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Tutor is one catalog record. Records are treated as immutable while a query runs.
type Tutor struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Title           string    `json:"title"`
	Bio             string    `json:"bio"`
	Subjects        []string  `json:"subjects"`
	Levels          []string  `json:"levels"`
	Modes           []Mode    `json:"modes"`
	PricePerHour    float64   `json:"price_per_hour"`
	Rating          float64   `json:"rating"`
	TotalReviews    int       `json:"total_reviews"`
	ExperienceYears int       `json:"experience_years"`
	Location        *Location `json:"location,omitempty"`
	IsVerified      bool      `json:"is_verified"`
	IsOnline        bool      `json:"is_online"`
	AvailableToday  bool      `json:"available_today"`
}

// RecommendationScore is rating multiplied by review count. It is not normalised.
func (t *Tutor) RecommendationScore() float64 {
	return t.Rating * float64(t.TotalReviews)
}

func (t *Tutor) HasSubject(subject string) bool {
	return slices.Contains(t.Subjects, subject)
}

func (t *Tutor) HasLevel(level string) bool {
	return slices.Contains(t.Levels, level)
}

func (t *Tutor) OffersMode(mode Mode) bool {
	return slices.Contains(t.Modes, mode)
}
