package catalog

import (
	"cmp"
	"slices"
	"sync"
)

// View is the filtered and sorted projection of a tutor list for one Query.
// Tutors point into the slice the view was computed from.
type View struct {
	Tutors []*Tutor

	distances map[string]float64
}

func (v View) Len() int { return len(v.Tutors) }

// Distance returns the distance in km from the query observer to the tutor,
// if both locations were known when the view was computed.
func (v View) Distance(tutorID string) (float64, bool) {
	d, ok := v.distances[tutorID]
	return d, ok
}

// Run applies q to tutors: filter, then search term, then a stable sort.
func Run(tutors []Tutor, q Query) View {
	return order(filter(tutors, &q), &q)
}

func filter(tutors []Tutor, q *Query) []*Tutor {
	out := make([]*Tutor, 0, len(tutors))
	for i := range tutors {
		if q.Matches(&tutors[i]) {
			out = append(out, &tutors[i])
		}
	}
	return out
}

// order sorts a copy of filtered, which must be in source order so ties keep
// insertion order regardless of the previous sort key.
func order(filtered []*Tutor, q *Query) View {
	v := View{Tutors: slices.Clone(filtered)}
	if q.Observer != nil {
		v.distances = make(map[string]float64, len(filtered))
		for _, t := range filtered {
			if t.Location != nil {
				v.distances[t.ID] = Distance(*q.Observer, *t.Location)
			}
		}
	}

	switch q.Sort {
	case SortHighestRated:
		slices.SortStableFunc(v.Tutors, func(a, b *Tutor) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	case SortPriceLow:
		slices.SortStableFunc(v.Tutors, func(a, b *Tutor) int {
			return cmp.Compare(a.PricePerHour, b.PricePerHour)
		})
	case SortPriceHigh:
		slices.SortStableFunc(v.Tutors, func(a, b *Tutor) int {
			return cmp.Compare(b.PricePerHour, a.PricePerHour)
		})
	case SortNearest:
		if q.Observer == nil {
			break
		}
		slices.SortStableFunc(v.Tutors, func(a, b *Tutor) int {
			da, okA := v.distances[a.ID]
			db, okB := v.distances[b.ID]
			switch {
			case okA && okB:
				return cmp.Compare(da, db)
			case okA:
				return -1
			case okB:
				return 1
			}
			return 0
		})
	default:
		slices.SortStableFunc(v.Tutors, func(a, b *Tutor) int {
			return cmp.Compare(b.RecommendationScore(), a.RecommendationScore())
		})
	}
	return v
}

// Engine holds a tutor list and a Query and keeps the derived View current.
// Every setter recomputes and returns the new View. Safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	tutors   []Tutor
	query    Query
	filtered []*Tutor
	view     View
}

func NewEngine(tutors []Tutor) *Engine {
	e := &Engine{query: DefaultQuery()}
	e.SetTutors(tutors)
	return e
}

// SetTutors replaces the whole list.
func (e *Engine) SetTutors(tutors []Tutor) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tutors = slices.Clone(tutors)
	return e.refilter()
}

// SetSearchTerm stores term as given; matching lower-cases both sides.
func (e *Engine) SetSearchTerm(term string) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.query.SearchTerm = term
	return e.refilter()
}

func (e *Engine) SetFilters(patch FilterPatch) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.query.Filters = patch.Apply(e.query.Filters)
	return e.refilter()
}

// SetSortKey re-sorts the current filtered set without filtering again.
func (e *Engine) SetSortKey(key SortKey) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.query.Sort = key
	e.view = order(e.filtered, &e.query)
	return e.view
}

// SetObserver sets or clears the observer location and re-sorts.
func (e *Engine) SetObserver(loc *Location) View {
	e.mu.Lock()
	defer e.mu.Unlock()

	if loc != nil {
		l := *loc
		loc = &l
	}
	e.query.Observer = loc
	e.view = order(e.filtered, &e.query)
	return e.view
}

// Reset restores the default query, keeping the observer.
func (e *Engine) Reset() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	observer := e.query.Observer
	e.query = DefaultQuery()
	e.query.Observer = observer
	return e.refilter()
}

func (e *Engine) Query() Query {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query
}

func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.view
}

func (e *Engine) refilter() View {
	e.filtered = filter(e.tutors, &e.query)
	e.view = order(e.filtered, &e.query)
	return e.view
}
