package repository

import (
	"context"
	"database/sql"
)

// DBTX общий интерфейс *sql.DB и *sql.Tx: репозитории работают в транзакции и без нее
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}
