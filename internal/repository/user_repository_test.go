package repository

import (
	"context"
	"errors"
	"testing"

	"delivery_api/internal/models"
	"delivery_api/pkg/apperrors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreate_MissingGroupRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "access_groups" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Email: "Ana@Example.com"}, models.GroupCustomer)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreate_LowercasesEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "access_groups"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	user := &models.User{Email: "  Ana@Example.COM "}
	err := repo.Create(context.Background(), user, models.GroupCustomer)

	assert.True(t, errors.Is(err, apperrors.ErrInternal))
	assert.Equal(t, "ana@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressDeactivate_NotOwned(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAddressRepository(db)

	mock.ExpectExec(`UPDATE "addresses" SET .+ WHERE .*id = \$\d+ AND user_id = \$\d+ AND is_active = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), 1, 99)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressDeactivate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAddressRepository(db)

	mock.ExpectExec(`UPDATE "addresses" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Deactivate(context.Background(), 1, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
