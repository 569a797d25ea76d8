package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"equip_shop/internal/domain/admin/model"
	"equip_shop/internal/domain/admin/repository"
	"equip_shop/pkg/database"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var noRetry = database.RetryPolicy{MaxRetries: 0, BaseDelay: time.Millisecond}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

var adminColumns = []string{"id", "username", "password_hash", "role", "active", "last_login_at", "created_at", "updated_at"}

func TestGetByUsername(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewAdminRepository(gormDB, noRetry)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "admin_users" WHERE username = $1`)).
		WillReturnRows(sqlmock.NewRows(adminColumns).AddRow("admin-1", "admin", "$2a$hash", "admin", true, nil, now, now))

	u, err := repo.GetByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", u.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.True(t, u.Active)
}

func TestGetByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewAdminRepository(gormDB, noRetry)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "admin_users" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(adminColumns))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreate_Duplicate(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewAdminRepository(gormDB, noRetry)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "admin_users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.AdminUser{Username: "admin", PasswordHash: "x", Role: model.RoleAdmin, Active: true})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestCount(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewAdminRepository(gormDB, noRetry)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "admin_users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestTouchLogin(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewAdminRepository(gormDB, noRetry)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "admin_users" SET "last_login_at"=$1,"updated_at"=$2 WHERE id = $3`)).
		WithArgs(at, at, "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.TouchLogin(context.Background(), "admin-1", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
