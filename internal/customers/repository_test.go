package customers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewRepository(mock), mock
}

func customerRow(id, businessID uuid.UUID, phone string, blocked bool) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "business_id", "phone", "name", "blocked", "created_at"}).
		AddRow(id, businessID, phone, "Maria", blocked, time.Now())
}

func TestEnsureByPhoneExisting(t *testing.T) {
	repo, mock := newMockRepo(t)
	businessID := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM customers`).
		WithArgs(businessID, "5511999990000").
		WillReturnRows(customerRow(id, businessID, "5511999990000", false))

	c, err := repo.EnsureByPhone(context.Background(), businessID, "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureByPhoneCreatesOnFirstContact(t *testing.T) {
	repo, mock := newMockRepo(t)
	businessID := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM customers`).
		WithArgs(businessID, "5511988880000").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO customers`).
		WithArgs(pgxmock.AnyArg(), businessID, "5511988880000").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT .+ FROM customers`).
		WithArgs(businessID, "5511988880000").
		WillReturnRows(customerRow(id, businessID, "5511988880000", false))

	c, err := repo.EnsureByPhone(context.Background(), businessID, "5511988880000")
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureByPhoneRejectsEmptyPhone(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.EnsureByPhone(context.Background(), uuid.New(), "   ")
	assert.Error(t, err)
}

func TestSetBlockedMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE customers SET blocked`).
		WithArgs(true, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetBlocked(context.Background(), id, true)
	assert.ErrorIs(t, err, ErrNotFound)
}
