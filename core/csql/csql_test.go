package csql

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE schema IF NOT EXISTS homesense`).WillReturnResult(sqlmock.NewResult(0, 0))

	cdb, err := WithSchema(db, "homesense")
	require.NoError(t, err)
	assert.Equal(t, "homesense", cdb.Schema)
	assert.Equal(t, `homesense."user"`, cdb.Table("user"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSchema_Public(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cdb, err := WithSchema(db, "")
	require.NoError(t, err)
	assert.Equal(t, "public", cdb.Schema)
	assert.Panics(t, cdb.ClearSchema)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithSchema_InvalidName(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = WithSchema(db, "drop table; --")
	assert.Error(t, err)
}
