package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var userCols = []string{"id", "name", "email", "password_hash", "profile_picture", "created_at", "updated_at"}

func TestUserRepo_Create_NormalizesEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash) VALUES (?,?,?)")).
		WithArgs("Asha", "asha@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(42, 1))

	id, err := repo.Create(context.Background(), " Asha ", "  Asha@Example.COM ", "hash")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(context.Background(), "a", "a@b.c", "h")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserRepo_Create_OtherError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), "a", "a@b.c", "h")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailExists)
	assert.Contains(t, err.Error(), "db down")
}

func TestUserRepo_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("asha@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(uint64(7), "Asha", "asha@example.com", "hash", "https://cdn/x.png", now, now))

	u, err := repo.GetByEmail(context.Background(), "ASHA@example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), u.ID)
	require.NotNil(t, u.ProfilePicture)
	assert.Equal(t, "https://cdn/x.png", *u.ProfilePicture)
}

func TestUserRepo_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_UpdatePassword_NoRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE email=?")).
		WithArgs("newhash", "gone@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdatePassword(context.Background(), "gone@example.com", "newhash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepo_UpdateProfile_Partial(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)
	now := time.Now().UTC()
	name := "New Name"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name=COALESCE(?, name), profile_picture=COALESCE(?, profile_picture) WHERE id=?")).
		WithArgs(sql.NullString{String: name, Valid: true}, sql.NullString{}, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(uint64(3), name, "c@d.e", "hash", nil, now, now))

	u, err := repo.UpdateProfile(context.Background(), 3, &name, nil)
	require.NoError(t, err)
	assert.Equal(t, name, u.Name)
	assert.Nil(t, u.ProfilePicture)
	assert.NoError(t, mock.ExpectationsWereMet())
}
