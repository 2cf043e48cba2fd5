package catalog

import "strings"

// SortKey selects the ordering of a View.
type SortKey string

const (
	SortRecommended  SortKey = "recommended"
	SortHighestRated SortKey = "highest-rated"
	SortPriceLow     SortKey = "price-low"
	SortPriceHigh    SortKey = "price-high"
	SortNearest      SortKey = "nearest"
)

// ParseSortKey returns the sort key for s and whether s named a known key.
// Unknown keys fall back to SortRecommended.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortRecommended, SortHighestRated, SortPriceLow, SortPriceHigh, SortNearest:
		return k, true
	default:
		return SortRecommended, false
	}
}

// PriceRange bounds pricePerHour, both ends inclusive. Min > Max is not rejected,
// it simply matches nothing.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filters are the structured part of a query. Empty Subject or Level means "any".
type Filters struct {
	Subject    string     `json:"subject"`
	Level      string     `json:"level"`
	Mode       Mode       `json:"mode"`
	PriceRange PriceRange `json:"price_range"`
	MinRating  float64    `json:"min_rating"`
}

const (
	DefaultMinPrice = 0
	DefaultMaxPrice = 1000
)

func DefaultFilters() Filters {
	return Filters{
		Mode:       ModeAll,
		PriceRange: PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice},
	}
}

// FilterPatch is a partial Filters update. Nil fields keep their previous value.
type FilterPatch struct {
	Subject    *string
	Level      *string
	Mode       *Mode
	PriceRange *PriceRange
	MinRating  *float64
}

// Apply shallow-merges p into f and returns the result.
func (p FilterPatch) Apply(f Filters) Filters {
	if p.Subject != nil {
		f.Subject = *p.Subject
	}
	if p.Level != nil {
		f.Level = *p.Level
	}
	if p.Mode != nil {
		f.Mode = *p.Mode
	}
	if p.PriceRange != nil {
		f.PriceRange = *p.PriceRange
	}
	if p.MinRating != nil {
		f.MinRating = *p.MinRating
	}
	return f
}

// Query is the full state driving a View.
type Query struct {
	SearchTerm string
	Filters    Filters
	Sort       SortKey
	// Observer is only needed by SortNearest and for per-tutor distances.
	Observer *Location
}

func DefaultQuery() Query {
	return Query{
		Filters: DefaultFilters(),
		Sort:    SortRecommended,
	}
}

// Matches reports whether t passes the search term and every filter.
func (q *Query) Matches(t *Tutor) bool {
	if q.SearchTerm != "" && !matchesTerm(t, strings.ToLower(q.SearchTerm)) {
		return false
	}

	f := &q.Filters
	if f.Subject != "" && !t.HasSubject(f.Subject) {
		return false
	}
	if f.Level != "" && !t.HasLevel(f.Level) {
		return false
	}
	if f.Mode != ModeAll && f.Mode != "" && !t.OffersMode(f.Mode) {
		return false
	}
	if t.PricePerHour < f.PriceRange.Min || t.PricePerHour > f.PriceRange.Max {
		return false
	}
	return t.Rating >= f.MinRating
}

func matchesTerm(t *Tutor, lowered string) bool {
	if strings.Contains(strings.ToLower(t.Name), lowered) {
		return true
	}
	for _, s := range t.Subjects {
		if strings.Contains(strings.ToLower(s), lowered) {
			return true
		}
	}
	return false
}
