package repomanager

import (
	"context"
	"database/sql"

	"github.com/chunksync/chunksync/internal/dbx"
	"github.com/chunksync/chunksync/internal/server/repositories/files"
	"github.com/chunksync/chunksync/internal/server/repositories/sessions"
	"github.com/chunksync/chunksync/internal/server/repositories/versions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	Versions(db dbx.DBTX) versions.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
