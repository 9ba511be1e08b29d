package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

type fakeSubmissionSource struct {
	subs []models.Submission
	err  error
}

func (f *fakeSubmissionSource) ListActive(ctx context.Context) ([]models.Submission, error) {
	return f.subs, f.err
}

type fakeAggregator struct {
	detail models.CategoryDetail
	year   int
	qtr    int
}

func (f *fakeAggregator) CategoryDetail(ctx context.Context, year, quarter int) (models.CategoryDetail, error) {
	f.year = year
	f.qtr = quarter
	return f.detail, nil
}

func newAnalyticsService(source *fakeSubmissionSource, aggregates *fakeAggregator) *AnalyticsService {
	cleaner := NewCleaningService(nil, nil)
	duplicates := NewDuplicateService(DefaultSimilarityThreshold, nil, nil)
	return NewAnalyticsService(source, aggregates, cleaner, duplicates, nil, time.Minute, nil, nil)
}

func submission(name, email string, status models.SubmissionStatus, at time.Time) models.Submission {
	return models.Submission{
		ID:                 name,
		FullName:           name,
		InstitutionalEmail: email,
		AcademicYear:       at.Year(),
		Term:               models.TermQ1,
		Status:             status,
		SubmittedAt:        at,
	}
}

func TestParsePeriod(t *testing.T) {
	svc := newAnalyticsService(&fakeSubmissionSource{}, &fakeAggregator{})
	svc.now = func() time.Time { return time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		period  string
		year    int
		quarter int
		wantErr bool
	}{
		{period: "current_year", year: 2025},
		{period: "", year: 2025},
		{period: "current_quarter", year: 2025, quarter: 3},
		{period: "last_year", year: 2024},
		{period: "year_2024", year: 2024},
		{period: "quarter_2024_2", year: 2024, quarter: 2},
		{period: "quarter_2024_5", wantErr: true},
		{period: "year_banana", wantErr: true},
		{period: "decade_2020", wantErr: true},
	}
	for _, tc := range tests {
		year, quarter, err := svc.ParsePeriod(tc.period)
		if tc.wantErr {
			assert.Error(t, err, tc.period)
			continue
		}
		require.NoError(t, err, tc.period)
		assert.Equal(t, tc.year, year, tc.period)
		assert.Equal(t, tc.quarter, quarter, tc.period)
	}
}

func TestMetricsFiltersByPeriodAndStatus(t *testing.T) {
	source := &fakeSubmissionSource{subs: []models.Submission{
		submission("Ana Torres", "ana@uni.edu", models.StatusApproved,
			time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)),
		submission("Luis Mora", "luis@uni.edu", models.StatusApproved,
			time.Date(2024, time.November, 3, 0, 0, 0, 0, time.UTC)),
		submission("Eva Ruiz", "eva@uni.edu", models.StatusPending,
			time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)),
		submission("Raúl Vega", "raul@uni.edu", models.StatusApproved,
			time.Date(2023, time.June, 20, 0, 0, 0, 0, time.UTC)),
	}}
	aggregates := &fakeAggregator{}
	svc := newAnalyticsService(source, aggregates)

	metrics, err := svc.Metrics(context.Background(), "year_2024")

	require.NoError(t, err)
	assert.Equal(t, 2024, metrics.Year)
	assert.Equal(t, 0, metrics.Quarter)
	assert.Equal(t, 2, metrics.TotalSubmissions)
	require.Len(t, metrics.ByMonth, 12)
	assert.Equal(t, "Febrero", metrics.ByMonth[1].Month)
	assert.Equal(t, 1, metrics.ByMonth[1].Count)
	assert.Equal(t, "Noviembre", metrics.ByMonth[10].Month)
	assert.Equal(t, 1, metrics.ByMonth[10].Count)
	assert.Equal(t, 2024, aggregates.year)
	assert.Equal(t, 0, aggregates.qtr)
}

func TestMetricsQuarterFilter(t *testing.T) {
	source := &fakeSubmissionSource{subs: []models.Submission{
		submission("Ana Torres", "ana@uni.edu", models.StatusApproved,
			time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC)),
		submission("Luis Mora", "luis@uni.edu", models.StatusApproved,
			time.Date(2024, time.October, 3, 0, 0, 0, 0, time.UTC)),
	}}
	svc := newAnalyticsService(source, &fakeAggregator{})

	metrics, err := svc.Metrics(context.Background(), "quarter_2024_2")

	require.NoError(t, err)
	assert.Equal(t, 1, metrics.TotalSubmissions)
	assert.Equal(t, 1, metrics.ByMonth[3].Count)
	assert.Equal(t, 0, metrics.ByMonth[9].Count)
}

func TestMetricsEmptyDataset(t *testing.T) {
	svc := newAnalyticsService(&fakeSubmissionSource{}, &fakeAggregator{})

	metrics, err := svc.Metrics(context.Background(), "year_2024")

	require.NoError(t, err)
	assert.Equal(t, 0, metrics.TotalSubmissions)
	assert.Equal(t, 0, metrics.DuplicateCount)
	require.Len(t, metrics.ByMonth, 12)
	for _, month := range metrics.ByMonth {
		assert.Equal(t, 0, month.Count)
	}
}

func TestMetricsCountsDuplicates(t *testing.T) {
	at := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
	source := &fakeSubmissionSource{subs: []models.Submission{
		submission("Ana Torres", "ana.torres@uni.edu", models.StatusApproved, at),
		submission("Ana Tores", "ana.torres@uni.edu", models.StatusApproved, at),
	}}
	svc := newAnalyticsService(source, &fakeAggregator{})

	metrics, err := svc.Metrics(context.Background(), "year_2024")

	require.NoError(t, err)
	assert.Equal(t, 2, metrics.TotalSubmissions)
	assert.Equal(t, 2, metrics.DuplicateCount)
}

type fakeCacheRepo struct {
	entries map[string][]byte
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: map[string][]byte{}}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	f.entries = map[string][]byte{}
	return nil
}

func TestMetricsCacheHitKeepsCallerPeriod(t *testing.T) {
	source := &fakeSubmissionSource{subs: []models.Submission{
		submission("Ana Torres", "ana@uni.edu", models.StatusApproved,
			time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)),
	}}
	cacheSvc := NewCacheService(newFakeCacheRepo(), nil, time.Minute, nil, true)
	cleaner := NewCleaningService(nil, nil)
	duplicates := NewDuplicateService(DefaultSimilarityThreshold, nil, nil)
	svc := NewAnalyticsService(source, &fakeAggregator{}, cleaner, duplicates, cacheSvc, time.Minute, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC) }

	first, err := svc.Metrics(context.Background(), "year_2024")
	require.NoError(t, err)
	assert.Equal(t, "year_2024", first.Period)

	// current_year resolves to the same entry; the second call must come
	// from cache and still carry its own selector.
	source.err = errors.New("source must not be consulted again")
	second, err := svc.Metrics(context.Background(), "current_year")
	require.NoError(t, err)
	assert.Equal(t, "current_year", second.Period)
	assert.Equal(t, first.TotalSubmissions, second.TotalSubmissions)
	assert.Equal(t, first.Year, second.Year)
}

func TestDuplicatesReportGroups(t *testing.T) {
	at := time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)
	source := &fakeSubmissionSource{subs: []models.Submission{
		submission("Ana Torres", "ana.torres@uni.edu", models.StatusApproved, at),
		submission("Ana Tores", "ANA.TORRES@uni.edu", models.StatusApproved, at),
		submission("Luis Mora", "luis@uni.edu", models.StatusApproved, at),
	}}
	svc := newAnalyticsService(source, &fakeAggregator{})

	report, err := svc.Duplicates(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, report.TotalRecords)
	assert.Equal(t, 2, report.DuplicateCount)
	require.Len(t, report.Groups, 1)
	assert.Len(t, report.Groups[0].Members, 2)
}

func TestStatisticsOverDataset(t *testing.T) {
	source := &fakeSubmissionSource{subs: []models.Submission{
		submission("Dra. Ana Torres", "ana@uni.edu", models.StatusApproved,
			time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)),
		submission("Luis Mora", "luis@uni.edu", models.StatusApproved,
			time.Date(2024, time.July, 5, 0, 0, 0, 0, time.UTC)),
		submission("Eva Ruiz", "eva@other.edu", models.StatusRejected,
			time.Date(2023, time.July, 5, 0, 0, 0, 0, time.UTC)),
	}}
	svc := newAnalyticsService(source, &fakeAggregator{})

	stats, err := svc.Statistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.General.TotalSubmissions)
	assert.Equal(t, 3, stats.General.UniqueEmails)
	require.NotNil(t, stats.General.FirstSubmission)
	assert.Equal(t, 2023, stats.General.FirstSubmission.Year())
	assert.Equal(t, 2, stats.Temporal.ByYear[2024])
	assert.Equal(t, 2, stats.Content.EmailDomains["uni.edu"])
	assert.Equal(t, 1, stats.Content.TitleCounts["Dra."])
	assert.Equal(t, 100.0, stats.Quality.Completeness["full_name"])
	assert.Equal(t, 0.0, stats.Quality.DuplicatePercent)
}

func TestStatisticsEmptyDataset(t *testing.T) {
	svc := newAnalyticsService(&fakeSubmissionSource{}, &fakeAggregator{})

	stats, err := svc.Statistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, stats.General.TotalSubmissions)
	assert.Nil(t, stats.General.FirstSubmission)
	assert.Empty(t, stats.Trends.HighSeasonMonths)
	assert.Equal(t, 0.0, stats.Quality.DuplicatePercent)
}
