package service

import (
	"context"
	"errors"
	"testing"

	"tutorinminutes-backend/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeAuditRepo struct {
	created []entity.AuditLog
	err     error
}

func (f *fakeAuditRepo) Create(_ context.Context, _ *gorm.DB, log *entity.AuditLog) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *log)
	return nil
}

func (f *fakeAuditRepo) FindAll(context.Context, *gorm.DB, int, int) ([]entity.AuditLog, int64, error) {
	return f.created, int64(len(f.created)), nil
}

func (f *fakeAuditRepo) FindByID(context.Context, *gorm.DB, int64) (*entity.AuditLog, error) {
	return nil, nil
}

func TestAuditService_EntityChanges(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(quietLogger(), repo)
	ctx := context.Background()
	userID := uuid.New()

	if err := svc.LogCreate(ctx, nil, &userID, entity.AuditActionTutorCreate, entity.AuditEntityTutor, "7", map[string]string{"name": "A"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.LogUpdate(ctx, nil, &userID, entity.AuditActionTutorUpdate, entity.AuditEntityTutor, "7", "old", "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.LogDelete(ctx, nil, &userID, entity.AuditActionTutorDelete, entity.AuditEntityTutor, "7", "old"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.created) != 3 {
		t.Fatalf("created %d logs, want 3", len(repo.created))
	}

	tests := []struct {
		action   string
		oldValue interface{}
		newValue interface{}
	}{
		{entity.AuditActionTutorCreate, nil, map[string]string{"name": "A"}},
		{entity.AuditActionTutorUpdate, "old", "new"},
		{entity.AuditActionTutorDelete, "old", nil},
	}
	for i, tt := range tests {
		got := repo.created[i]
		if got.Action != tt.action || *got.UserID != userID {
			t.Errorf("log %d = %s/%v", i, got.Action, got.UserID)
		}
		if got.Metadata["entity"] != entity.AuditEntityTutor || got.Metadata["entity_id"] != "7" {
			t.Errorf("log %d metadata = %v", i, got.Metadata)
		}
		if (got.Metadata["old_value"] == nil) != (tt.oldValue == nil) || (got.Metadata["new_value"] == nil) != (tt.newValue == nil) {
			t.Errorf("log %d values = %v", i, got.Metadata)
		}
	}
}

func TestAuditService_EventWithoutUser(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(quietLogger(), repo)

	if err := svc.LogEvent(context.Background(), nil, nil, entity.AuditActionCatalogSeed, entity.JSON{"count": 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.created[0].UserID != nil || repo.created[0].Metadata["count"] != 3 {
		t.Errorf("log = %+v", repo.created[0])
	}
}

func TestAuditService_RepositoryError(t *testing.T) {
	repoErr := errors.New("insert failed")
	svc := NewAuditService(quietLogger(), &fakeAuditRepo{err: repoErr})

	err := svc.LogEvent(context.Background(), nil, nil, entity.AuditActionUserLogin, nil)
	if !errors.Is(err, repoErr) {
		t.Errorf("err = %v, want %v", err, repoErr)
	}
}
