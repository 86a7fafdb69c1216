package migrations

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"toolx/pkg/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"0002_second.up.sql":  {Data: []byte("CREATE TABLE second (id INT)")},
		"0001_first.up.sql":   {Data: []byte("CREATE TABLE first (id INT)")},
		"0001_first.down.sql": {Data: []byte("DROP TABLE first")},
		"README.md":           {Data: []byte("not a migration")},
	}
}

func expectVersionCheck(mock sqlmock.Sqlmock, version string, count int) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schema_migrations WHERE version = $1")).
		WithArgs(version).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestRun_AppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

	expectVersionCheck(mock, "0001_first", 1)

	expectVersionCheck(mock, "0002_second", 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE second (id INT)")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version) VALUES ($1)")).
		WithArgs("0002_second").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = Run(context.Background(), db, testFiles(), logger.NewNop())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RollsBackFailedMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	expectVersionCheck(mock, "0001_first", 0)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE first (id INT)")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = Run(context.Background(), db, testFiles(), logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_first")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := embedded.ReadDir("sql")
	require.NoError(t, err)

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Equal(t, []string{"0001_create_users.up.sql", "0002_create_subscriptions.up.sql"}, names)
}
