package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchaseRepository_Record(t *testing.T) {
	mock := setupMock(t)
	repo := NewPurchaseRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO purchases").
		WithArgs("u-1", "p-1", "o-1", ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE reviews SET verified").
		WithArgs("u-1", "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Record(context.Background(), "u-1", "p-1", "o-1", ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepository_Record_RollsBack(t *testing.T) {
	mock := setupMock(t)
	repo := NewPurchaseRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO purchases").
		WithArgs("u-1", "p-1", "o-1", pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Record(context.Background(), "u-1", "p-1", "o-1", ts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert purchase")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurchaseRepository_HasPurchased(t *testing.T) {
	mock := setupMock(t)
	repo := NewPurchaseRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("u-1", "p-1").
		WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasPurchased(context.Background(), "u-1", "p-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
