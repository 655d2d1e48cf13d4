package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workforce-export-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "svc", Password: "pw", Name: "exports", SSLMode: "require"})
	require.Equal(t, "host=db port=5433 user=svc password=pw dbname=exports sslmode=require", dsn)
}

func TestEnsureSchema(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer raw.Close()
	db := sqlx.NewDb(raw, "sqlmock")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS export_jobs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, EnsureSchema(context.Background(), db))

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	err = EnsureSchema(context.Background(), db)
	require.ErrorContains(t, err, "apply export_jobs schema")
	require.NoError(t, mock.ExpectationsWereMet())
}
