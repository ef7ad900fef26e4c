package files

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/chunksync/chunksync/internal/common"
	"github.com/chunksync/chunksync/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+files\b`).
		WithArgs("f1", "notes.txt", "text/plain", int64(42), models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.File{
		ID:          "f1",
		Name:        "notes.txt",
		ContentType: "text/plain",
		Size:        42,
		Status:      models.StatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByID_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "content_type", "size", "status", "current_version_id", "created_at", "updated_at"}).
		AddRow("f1", "notes.txt", "text/plain", int64(42), "AVAILABLE", "v1", now, now)

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*name,.*FROM\s+files\s+WHERE\s+id=\$1`).
		WithArgs("f1").
		WillReturnRows(rows)

	f, err := repo.GetByID(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Status != models.StatusAvailable {
		t.Fatalf("status = %s, want AVAILABLE", f.Status)
	}
	if f.CurrentVersionID == nil || *f.CurrentVersionID != "v1" {
		t.Fatalf("current version = %v, want v1", f.CurrentVersionID)
	}
}

func TestGetByID_NullCurrentVersion(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "content_type", "size", "status", "current_version_id", "created_at", "updated_at"}).
		AddRow("f1", "notes.txt", "text/plain", int64(42), "PENDING", nil, now, now)

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*name,.*FROM\s+files\s+WHERE\s+id=\$1`).
		WithArgs("f1").
		WillReturnRows(rows)

	f, err := repo.GetByID(context.Background(), "f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.CurrentVersionID != nil {
		t.Fatalf("expected nil current version, got %v", *f.CurrentVersionID)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*name,.*FROM\s+files\s+WHERE\s+id=\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*UPDATE\s+files\b`).
		WithArgs("f1", "notes.txt", "text/plain", int64(42), models.StatusUpdating).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.File{
		ID:          "f1",
		Name:        "notes.txt",
		ContentType: "text/plain",
		Size:        42,
		Status:      models.StatusUpdating,
	})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSetAvailable_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*UPDATE\s+files\s+SET\s+status='AVAILABLE',\s*current_version_id=\$2`).
		WithArgs("f1", "v1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetAvailable(context.Background(), "f1", "v1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
