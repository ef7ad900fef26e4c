package versions

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

func TestCreate_InsertsVersionAndChunks(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+versions\b`).
		WithArgs("v1", "f1", models.StatusPending, "content-defined", true, false, int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+version_chunks\b`).
		WithArgs("v1", 0, "a", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+version_chunks\b`).
		WithArgs("v1", 1, "b", int64(20)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Version{
		ID:     "v1",
		FileID: "f1",
		Status: models.StatusPending,
		Chunking: models.ChunkingMeta{
			Strategy:           "content-defined",
			NormalizedNewlines: true,
		},
		ReassembledSize: 30,
		Chunks: []models.ChunkRef{
			{Index: 0, Hash: "a", Length: 10},
			{Index: 1, Hash: "b", Length: 20},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByID_ReturnsChunksInOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	versionRows := sqlmock.NewRows([]string{"id", "file_id", "status", "strategy", "normalized_newlines", "trailing_newline", "reassembled_size", "created_at"}).
		AddRow("v1", "f1", "UPDATING", "line", false, true, int64(30), now)
	chunkRows := sqlmock.NewRows([]string{"idx", "hash", "length"}).
		AddRow(0, "a", int64(10)).
		AddRow(1, "b", int64(20))

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*file_id,.*FROM\s+versions\s+WHERE\s+id=\$1`).
		WithArgs("v1").
		WillReturnRows(versionRows)
	mock.ExpectQuery(`(?s)SELECT\s+idx,\s*hash,\s*length\s+FROM\s+version_chunks`).
		WithArgs("v1").
		WillReturnRows(chunkRows)

	v, err := repo.GetByID(context.Background(), "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Chunks) != 2 || v.Chunks[0].Hash != "a" || v.Chunks[1].Hash != "b" {
		t.Fatalf("unexpected chunks: %+v", v.Chunks)
	}
	if !v.Chunking.TrailingNewline {
		t.Fatal("expected trailing newline flag to survive")
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*file_id,.*FROM\s+versions\s+WHERE\s+id=\$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSetAvailable_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^\s*UPDATE\s+versions\s+SET\s+status='AVAILABLE'`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetAvailable(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
