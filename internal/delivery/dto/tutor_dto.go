package dto

// Request DTOs

// TutorListQuery is decoded from the query string with gorilla/schema.
type TutorListQuery struct {
	Q         string   `schema:"q" json:"q" validate:"omitempty,max=100"`
	Subject   string   `schema:"subject" json:"subject" validate:"omitempty,max=100"`
	Level     string   `schema:"level" json:"level" validate:"omitempty,max=100"`
	Mode      string   `schema:"mode" json:"mode" validate:"omitempty,oneof=all online offline"`
	MinPrice  *float64 `schema:"min_price" json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice  *float64 `schema:"max_price" json:"max_price" validate:"omitempty,gte=0"`
	MinRating *float64 `schema:"min_rating" json:"min_rating" validate:"omitempty,gte=0,lte=5"`
	Sort      string   `schema:"sort" json:"sort" validate:"omitempty,oneof=recommended highest-rated price-low price-high nearest"`
	Lat       *float64 `schema:"lat" json:"lat" validate:"required_with=Lng,omitempty,latitude"`
	Lng       *float64 `schema:"lng" json:"lng" validate:"required_with=Lat,omitempty,longitude"`
	Page      int      `schema:"page" json:"page" validate:"omitempty,gte=1,lte=1000000"`
	Limit     int      `schema:"limit" json:"limit" validate:"omitempty,gte=1,lte=100"`
}

type NearbyQuery struct {
	Lat    *float64 `schema:"lat" json:"lat" validate:"required,latitude"`
	Lng    *float64 `schema:"lng" json:"lng" validate:"required,longitude"`
	Radius float64  `schema:"radius" json:"radius" validate:"omitempty,gt=0,lte=100"`
}

type AvailabilityQuery struct {
	Date string `schema:"date" json:"date" validate:"required,datetime=2006-01-02"`
}

// CheckServiceRequest needs a location unless Mode is online.
type CheckServiceRequest struct {
	Lat  *float64 `json:"lat" validate:"required_unless=Mode online,omitempty,latitude"`
	Lng  *float64 `json:"lng" validate:"required_unless=Mode online,omitempty,longitude"`
	Mode string   `json:"mode" validate:"omitempty,oneof=online offline"`
}

// TutorRequest is the admin payload for creating or replacing a tutor.
type TutorRequest struct {
	ID              string   `json:"id" validate:"omitempty,max=64"`
	Name            string   `json:"name" validate:"required,min=2,max=255"`
	Title           string   `json:"title" validate:"omitempty,max=255"`
	Bio             string   `json:"bio"`
	Subjects        []string `json:"subjects" validate:"required,min=1,dive,required"`
	Levels          []string `json:"levels" validate:"omitempty,dive,required"`
	Modes           []string `json:"modes" validate:"required,min=1,dive,oneof=online offline"`
	PricePerHour    float64  `json:"price_per_hour" validate:"gte=0"`
	Rating          float64  `json:"rating" validate:"gte=0,lte=5"`
	TotalReviews    int      `json:"total_reviews" validate:"gte=0"`
	ExperienceYears int      `json:"experience_years" validate:"gte=0"`
	Latitude        *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude       *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	IsVerified      bool     `json:"is_verified"`
	IsOnline        bool     `json:"is_online"`
	AvailableToday  bool     `json:"available_today"`
}

// Response DTOs

type LocationResponse struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

type TutorResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Title           string            `json:"title"`
	Bio             string            `json:"bio"`
	Subjects        []string          `json:"subjects"`
	Levels          []string          `json:"levels"`
	Modes           []string          `json:"modes"`
	PricePerHour    float64           `json:"price_per_hour"`
	Rating          float64           `json:"rating"`
	TotalReviews    int               `json:"total_reviews"`
	ExperienceYears int               `json:"experience_years"`
	Location        *LocationResponse `json:"location,omitempty"`
	IsVerified      bool              `json:"is_verified"`
	IsOnline        bool              `json:"is_online"`
	AvailableToday  bool              `json:"available_today"`
	DistanceKm      *float64          `json:"distance_km,omitempty"`
	DistanceLabel   string            `json:"distance_label,omitempty"`
}

type TutorListResponse struct {
	Tutors []TutorResponse `json:"tutors"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

type SlotResponse struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type AvailabilityResponse struct {
	TutorID string         `json:"tutor_id"`
	Date    string         `json:"date"`
	Slots   []SlotResponse `json:"slots"`
}

type CheckServiceResponse struct {
	Available    bool     `json:"available"`
	Mode         string   `json:"mode"`
	RadiusKm     float64  `json:"radius_km"`
	TutorsInArea int      `json:"tutors_in_area"`
	NearestKm    *float64 `json:"nearest_km,omitempty"`
	Message      string   `json:"message"`
}
