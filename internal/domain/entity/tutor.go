package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tutor is a catalog listing. Rows are validated into catalog records before use.
type Tutor struct {
	ID              string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID          *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	Title           string          `gorm:"type:varchar(255)" json:"title"`
	Bio             string          `gorm:"type:text" json:"bio"`
	Subjects        StringList      `gorm:"type:jsonb;not null;default:'[]'" json:"subjects"`
	Levels          StringList      `gorm:"type:jsonb;not null;default:'[]'" json:"levels"`
	Modes           StringList      `gorm:"type:jsonb;not null;default:'[]'" json:"modes"`
	PricePerHour    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_per_hour"`
	Rating          float64         `gorm:"type:numeric(2,1);not null;default:0" json:"rating"`
	TotalReviews    int             `gorm:"not null;default:0" json:"total_reviews"`
	ExperienceYears int             `gorm:"not null;default:0" json:"experience_years"`
	Latitude        *float64        `gorm:"type:double precision" json:"latitude,omitempty"`
	Longitude       *float64        `gorm:"type:double precision" json:"longitude,omitempty"`
	IsVerified      bool            `gorm:"not null;default:false" json:"is_verified"`
	IsOnline        bool            `gorm:"not null;default:false" json:"is_online"`
	AvailableToday  bool            `gorm:"not null;default:false" json:"available_today"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Tutor) TableName() string {
	return "tutors"
}

// HasLocation reports whether both coordinates are set.
func (t *Tutor) HasLocation() bool {
	return t.Latitude != nil && t.Longitude != nil
}
