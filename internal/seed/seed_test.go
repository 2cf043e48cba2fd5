package seed

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"testing"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/domain/entity"
	"tutorinminutes-backend/internal/domain/repository"
	"tutorinminutes-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errNoSQL = errors.New("fake pool executes no SQL")

type fakePool struct{ commits int }

func (p *fakePool) PrepareContext(context.Context, string) (*sql.Stmt, error) { return nil, errNoSQL }
func (p *fakePool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errNoSQL
}
func (p *fakePool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errNoSQL
}
func (p *fakePool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (p *fakePool) BeginTx(context.Context, *sql.TxOptions) (gorm.ConnPool, error) {
	return &fakeTx{fakePool: p}, nil
}

type fakeTx struct{ *fakePool }

func (t *fakeTx) Commit() error   { t.commits++; return nil }
func (t *fakeTx) Rollback() error { return nil }

type fakeTutorRepo struct {
	repository.TutorRepository
	rows []entity.Tutor
	err  error
}

func (f *fakeTutorRepo) Upsert(_ context.Context, _ *gorm.DB, tutors []entity.Tutor) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, tutors...)
	return nil
}

type fakeAudit struct {
	service.AuditService
	actions []string
}

func (f *fakeAudit) LogEvent(_ context.Context, _ *gorm.DB, _ *uuid.UUID, action string, _ entity.JSON) error {
	f.actions = append(f.actions, action)
	return nil
}

type fakeCache struct{ invalidated int }

func (f *fakeCache) Invalidate(context.Context) error { f.invalidated++; return nil }

func newSeeder(t *testing.T, repo *fakeTutorRepo) (*Seeder, *fakePool, *fakeAudit, *fakeCache) {
	t.Helper()
	pool := &fakePool{}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: pool}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	audit, cache := &fakeAudit{}, &fakeCache{}
	return NewSeeder(db, log, repo, audit, cache), pool, audit, cache
}

func TestTutors(t *testing.T) {
	tutors := Tutors()
	if len(tutors) != 3 {
		t.Fatalf("len = %d, want 3", len(tutors))
	}

	view := catalog.Run(tutors, catalog.DefaultQuery())
	var order []string
	for _, tutor := range view.Tutors {
		order = append(order, tutor.ID)
	}
	if got := len(order); got != 3 || order[0] != "3" || order[1] != "1" || order[2] != "2" {
		t.Errorf("recommended order = %v, want [3 1 2]", order)
	}

	tutors[0].Location.Lat = 0
	if Tutors()[0].Location.Lat != delhi.Lat {
		t.Error("Tutors shares location pointers between calls")
	}
}

func TestSeeder_Run(t *testing.T) {
	repo := &fakeTutorRepo{}
	s, pool, audit, cache := newSeeder(t, repo)

	n, err := s.Run(context.Background(), Tutors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || len(repo.rows) != 3 {
		t.Errorf("seeded %d, stored %d, want 3", n, len(repo.rows))
	}
	if repo.rows[1].Modes[0] != "online" || repo.rows[1].Latitude == nil {
		t.Errorf("unexpected row: %+v", repo.rows[1])
	}
	if pool.commits != 1 {
		t.Errorf("commits = %d, want 1", pool.commits)
	}
	if len(audit.actions) != 1 || audit.actions[0] != entity.AuditActionCatalogSeed {
		t.Errorf("audit actions = %v", audit.actions)
	}
	if cache.invalidated != 1 {
		t.Errorf("cache invalidated %d times, want 1", cache.invalidated)
	}
}

func TestSeeder_RunUpsertFailure(t *testing.T) {
	repo := &fakeTutorRepo{err: errors.New("boom")}
	s, pool, audit, cache := newSeeder(t, repo)

	if _, err := s.Run(context.Background(), Tutors()); err == nil {
		t.Fatal("expected error")
	}
	if pool.commits != 0 || len(audit.actions) != 0 || cache.invalidated != 0 {
		t.Errorf("failed seed had side effects: commits=%d audit=%v invalidated=%d", pool.commits, audit.actions, cache.invalidated)
	}
}
