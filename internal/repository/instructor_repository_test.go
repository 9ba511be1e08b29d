package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

func TestInstructorRepositoryIsAuthorized(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM authorized_instructors WHERE LOWER(email) = LOWER($1) AND active = TRUE LIMIT 1")).
		WithArgs("ana.torres@uni.edu").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	ok, err := repo.IsAuthorized(context.Background(), "ana.torres@uni.edu")
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM authorized_instructors")).
		WithArgs("externo@otra.edu").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	ok, err = repo.IsAuthorized(context.Background(), "externo@otra.edu")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryCreateAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO authorized_instructors")).
		WithArgs(sqlmock.AnyArg(), "Dra. Ana Torres", "ana.torres@uni.edu", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	instructor := &models.AuthorizedInstructor{
		FullName: "Dra. Ana Torres",
		Email:    "ana.torres@uni.edu",
		Active:   true,
	}
	require.NoError(t, repo.Create(context.Background(), instructor))
	require.NotEmpty(t, instructor.ID)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "active", "created_at", "updated_at"}).
		AddRow(instructor.ID, instructor.FullName, instructor.Email, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, active, created_at, updated_at")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM authorized_instructors")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	instructors, total, err := repo.List(context.Background(), models.InstructorFilter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, instructors, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstructorRepository(db)

	active := false
	mock.ExpectExec(regexp.QuoteMeta("UPDATE authorized_instructors SET active = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(active, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "missing", UpdateInstructorParams{Active: &active})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
