package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintHelpers(t *testing.T) {
	exclusion := fmt.Errorf("insert: %w", &pq.Error{Code: "23P01"})
	unique := &pq.Error{Code: "23505"}

	assert.True(t, IsExclusionViolation(exclusion))
	assert.False(t, IsUniqueViolation(exclusion))
	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsExclusionViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, WithTx(context.Background(), sqlxDB, func(tx *sqlx.Tx) error { return nil }))

	mock.ExpectBegin()
	mock.ExpectRollback()
	sentinel := errors.New("failed")
	err = WithTx(context.Background(), sqlxDB, func(tx *sqlx.Tx) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	assert.NoError(t, mock.ExpectationsWereMet())
}
