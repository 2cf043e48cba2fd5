// Package seed loads the demo tutor catalog.
package seed

import (
	"context"
	"fmt"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/converter"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/domain/repository"
	"tutorinminutes-backend/internal/service"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var delhi = catalog.Location{Lat: 28.6139, Lng: 77.2090}

// Tutors returns a fresh copy of the demo catalog, in source order.
func Tutors() []catalog.Tutor {
	loc := func() *catalog.Location { l := delhi; return &l }
	return []catalog.Tutor{
		{
			ID:              "1",
			Name:            "Dr. Priya Sharma",
			Title:           "Mathematics & Physics Expert",
			Bio:             "Former IIT professor with expertise in advanced mathematics and physics. Helped 200+ students crack JEE with top ranks.",
			Subjects:        []string{"Mathematics", "Physics", "IIT-JEE"},
			Levels:          []string{"CBSE", "ICSE", "IIT-JEE"},
			Modes:           []catalog.Mode{catalog.ModeOnline, catalog.ModeOffline},
			PricePerHour:    800,
			Rating:          4.9,
			TotalReviews:    127,
			ExperienceYears: 8,
			Location:        loc(),
			IsVerified:      true,
			IsOnline:        true,
			AvailableToday:  true,
		},
		{
			ID:              "2",
			Name:            "Rahul Kumar",
			Title:           "Python & Data Science Mentor",
			Bio:             "Senior Software Engineer at Google. Specialized in teaching Python programming and data science concepts.",
			Subjects:        []string{"Python", "Data Science", "Machine Learning"},
			Levels:          []string{"Beginner", "Intermediate", "Advanced"},
			Modes:           []catalog.Mode{catalog.ModeOnline},
			PricePerHour:    600,
			Rating:          4.8,
			TotalReviews:    89,
			ExperienceYears: 5,
			Location:        loc(),
			IsVerified:      true,
			IsOnline:        true,
		},
		{
			ID:              "3",
			Name:            "Dr. Anjali Patel",
			Title:           "NEET Biology Specialist",
			Bio:             "Medical doctor and NEET mentor with 95% success rate. Expert in Biology and Chemistry for medical entrance exams.",
			Subjects:        []string{"Biology", "Chemistry", "NEET"},
			Levels:          []string{"CBSE", "NEET"},
			Modes:           []catalog.Mode{catalog.ModeOnline, catalog.ModeOffline},
			PricePerHour:    700,
			Rating:          4.9,
			TotalReviews:    156,
			ExperienceYears: 10,
			Location:        loc(),
			IsVerified:      true,
			AvailableToday:  true,
		},
	}
}

// CacheInvalidator drops a cached catalog after the seed is written.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

type Seeder struct {
	db           *gorm.DB
	log          *logrus.Logger
	tutorRepo    repository.TutorRepository
	auditService service.AuditService
	cache        CacheInvalidator
}

// NewSeeder returns a Seeder. cache may be nil.
func NewSeeder(db *gorm.DB, log *logrus.Logger, tutorRepo repository.TutorRepository, auditService service.AuditService, cache CacheInvalidator) *Seeder {
	return &Seeder{
		db:           db,
		log:          log,
		tutorRepo:    tutorRepo,
		auditService: auditService,
		cache:        cache,
	}
}

// Run upserts tutors and records a single catalog.seed audit entry in the
// same transaction. It returns the number of tutors written.
func (s *Seeder) Run(ctx context.Context, tutors []catalog.Tutor) (int, error) {
	rows := make([]entity.Tutor, len(tutors))
	ids := make([]string, len(tutors))
	for i := range tutors {
		rows[i] = converter.CatalogTutorToEntity(&tutors[i])
		ids[i] = tutors[i].ID
	}

	tx := s.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	if err := s.tutorRepo.Upsert(ctx, tx, rows); err != nil {
		s.log.Warnf("Failed to upsert seed tutors: %+v", err)
		return 0, fmt.Errorf("upsert tutors: %w", err)
	}

	if err := s.auditService.LogEvent(ctx, tx, nil, entity.AuditActionCatalogSeed, entity.JSON{
		"entity":    entity.AuditEntityCatalog,
		"tutor_ids": ids,
	}); err != nil {
		s.log.Warnf("Failed to audit catalog seed: %+v", err)
		return 0, fmt.Errorf("audit seed: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		s.log.Warnf("Failed to commit seed: %+v", err)
		return 0, fmt.Errorf("commit seed: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warnf("Failed to invalidate catalog cache: %+v", err)
		}
	}

	s.log.Infof("Seeded %d tutors", len(rows))
	return len(rows), nil
}
