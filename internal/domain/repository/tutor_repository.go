package repository

import (
	"context"

	"tutorinminutes-backend/internal/domain/entity"

	"gorm.io/gorm"
)

type TutorRepository interface {
	FindAll(ctx context.Context, db *gorm.DB) ([]entity.Tutor, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*entity.Tutor, error)
	Create(ctx context.Context, db *gorm.DB, tutor *entity.Tutor) error
	Update(ctx context.Context, db *gorm.DB, tutor *entity.Tutor) error
	Delete(ctx context.Context, db *gorm.DB, id string) (int64, error)
	Upsert(ctx context.Context, db *gorm.DB, tutors []entity.Tutor) error
}
