package repository

import (
	"context"
	"errors"

	"tutorinminutes-backend/internal/domain/entity"
	domainRepo "tutorinminutes-backend/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tutorRepository struct{}

func NewTutorRepository() domainRepo.TutorRepository {
	return &tutorRepository{}
}

// FindAll returns every listing in insertion order, which the catalog uses to break ties.
func (r *tutorRepository) FindAll(ctx context.Context, db *gorm.DB) ([]entity.Tutor, error) {
	var tutors []entity.Tutor
	err := db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&tutors).Error
	if err != nil {
		return nil, err
	}
	return tutors, nil
}

func (r *tutorRepository) FindByID(ctx context.Context, db *gorm.DB, id string) (*entity.Tutor, error) {
	var tutor entity.Tutor
	err := db.WithContext(ctx).Where("id = ?", id).First(&tutor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tutor, nil
}

func (r *tutorRepository) Create(ctx context.Context, db *gorm.DB, tutor *entity.Tutor) error {
	return db.WithContext(ctx).Create(tutor).Error
}

func (r *tutorRepository) Update(ctx context.Context, db *gorm.DB, tutor *entity.Tutor) error {
	return db.WithContext(ctx).Save(tutor).Error
}

func (r *tutorRepository) Delete(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Tutor{})
	return result.RowsAffected, result.Error
}

// Upsert inserts tutors, overwriting rows that already exist with the same id.
func (r *tutorRepository) Upsert(ctx context.Context, db *gorm.DB, tutors []entity.Tutor) error {
	if len(tutors) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&tutors).Error
}
