package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSubmissionRepositoryCreateWithActivities(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO publications")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sub := &models.Submission{
		FullName:           "Dra. Ana Torres",
		InstitutionalEmail: "ana.torres@uni.edu",
		AcademicYear:       2024,
		Term:               models.TermQ2,
	}
	activities := models.ActivitySet{
		Courses: []models.Course{{Name: "Didáctica universitaria", TaughtAt: time.Now(), Hours: 40}},
		Publications: []models.Publication{{
			Authors: "Torres, A.", Title: "Aprendizaje activo", Venue: "Rev. Educación", Status: models.PublicationPublished,
		}},
	}
	require.NoError(t, repo.CreateWithActivities(context.Background(), sub, activities))
	require.NotEmpty(t, sub.ID)
	require.Equal(t, models.StatusPending, sub.Status)
	require.Equal(t, 1, sub.Version)
	require.True(t, sub.ActiveVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryCreateRollsBackOnChildFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	sub := &models.Submission{
		FullName:           "Mtro. Luis Vega",
		InstitutionalEmail: "luis.vega@uni.edu",
		AcademicYear:       2024,
		Term:               models.TermQ1,
	}
	activities := models.ActivitySet{
		Courses: []models.Course{{Name: "Evaluación", TaughtAt: time.Now(), Hours: 20}},
	}
	err := repo.CreateWithActivities(context.Background(), sub, activities)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryExistsActiveByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM submissions WHERE LOWER(institutional_email) = LOWER($1) AND active_version = TRUE LIMIT 1")).
		WithArgs("ana.torres@uni.edu").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsActiveByEmail(context.Background(), "ana.torres@uni.edu", "")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM submissions")).
		WithArgs("nadie@uni.edu").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsActiveByEmail(context.Background(), "nadie@uni.edu", "")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryReviewGuardsPendingState(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status = $1, reviewed_at = $2, reviewed_by = $3, review_comment = $4, updated_at = $2")).
		WithArgs(models.StatusApproved, sqlmock.AnyArg(), "admin@uni.edu", nil, "sub-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Review(context.Background(), "sub-1", models.StatusApproved, "admin@uni.edu", nil))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET status = $1")).
		WithArgs(models.StatusRejected, sqlmock.AnyArg(), "admin@uni.edu", nil, "sub-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Review(context.Background(), "sub-1", models.StatusRejected, "admin@uni.edu", nil)
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryApplyCorrection(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submission_versions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET full_name = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for range []string{"courses", "publications", "events", "curriculum_designs", "mobilities", "recognitions", "certifications"} {
		mock.ExpectExec("DELETE FROM").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	current := &models.Submission{
		ID:                 "sub-1",
		FullName:           "Dra. Ana Torres",
		InstitutionalEmail: "ana.torres@uni.edu",
		AcademicYear:       2024,
		Term:               models.TermQ2,
		Status:             models.StatusRejected,
		Version:            1,
	}
	updated := &models.Submission{
		FullName:           "Dra. Ana Torres Ruiz",
		InstitutionalEmail: "ana.torres@uni.edu",
		AcademicYear:       2024,
		Term:               models.TermQ2,
	}
	activities := models.ActivitySet{
		Courses: []models.Course{{Name: "Didáctica", TaughtAt: time.Now(), Hours: 30}},
	}
	require.NoError(t, repo.ApplyCorrection(context.Background(), current, models.ActivitySet{}, updated, activities))
	require.NoError(t, mock.ExpectationsWereMet())
}
