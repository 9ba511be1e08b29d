package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/dto"
	"github.com/noah-isme/teacher-reports-api/internal/models"
	appErrors "github.com/noah-isme/teacher-reports-api/pkg/errors"
)

// spanishMonths indexes month names by time.Month - 1 for histogram labels.
var spanishMonths = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

type analyticsSubmissionSource interface {
	ListActive(ctx context.Context) ([]models.Submission, error)
}

type categoryAggregator interface {
	CategoryDetail(ctx context.Context, year, quarter int) (models.CategoryDetail, error)
}

// AnalyticsService runs the metrics pipeline: cleaning, duplicate detection
// and period aggregation over approved submissions.
type AnalyticsService struct {
	source     analyticsSubmissionSource
	aggregates categoryAggregator
	cleaner    *CleaningService
	duplicates *DuplicateService
	cache      *CacheService
	cacheTTL   time.Duration
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(
	source analyticsSubmissionSource,
	aggregates categoryAggregator,
	cleaner *CleaningService,
	duplicates *DuplicateService,
	cache *CacheService,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		source:     source,
		aggregates: aggregates,
		cleaner:    cleaner,
		duplicates: duplicates,
		cache:      cache,
		cacheTTL:   cacheTTL,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// ParsePeriod resolves a period selector into a calendar year and quarter.
// Quarter 0 means the whole year. Accepted selectors: current_year,
// current_quarter, last_year, year_YYYY and quarter_YYYY_Q.
func (s *AnalyticsService) ParsePeriod(period string) (int, int, error) {
	now := s.now()
	switch period {
	case "", "current_year":
		return now.Year(), 0, nil
	case "current_quarter":
		return now.Year(), (int(now.Month())-1)/3 + 1, nil
	case "last_year":
		return now.Year() - 1, 0, nil
	}
	if rest, ok := strings.CutPrefix(period, "year_"); ok {
		year, err := strconv.Atoi(rest)
		if err != nil || year < minYear || year > maxYear {
			return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid period %q", period))
		}
		return year, 0, nil
	}
	if rest, ok := strings.CutPrefix(period, "quarter_"); ok {
		parts := strings.SplitN(rest, "_", 2)
		if len(parts) == 2 {
			year, yearErr := strconv.Atoi(parts[0])
			quarter, quarterErr := strconv.Atoi(parts[1])
			if yearErr == nil && quarterErr == nil &&
				year >= minYear && year <= maxYear && quarter >= 1 && quarter <= 4 {
				return year, quarter, nil
			}
		}
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid period %q", period))
	}
	return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid period %q", period))
}

// Metrics computes period metrics for approved submissions, serving from
// cache when possible.
func (s *AnalyticsService) Metrics(ctx context.Context, period string) (models.PeriodMetrics, error) {
	year, quarter, err := s.ParsePeriod(period)
	if err != nil {
		return models.PeriodMetrics{}, err
	}

	cacheKey := fmt.Sprintf("analytics:metrics:%d:%d", year, quarter)
	var cached models.PeriodMetrics
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		// Aliases like current_year share an entry with year_<n>, so the
		// label must follow the caller's selector, not the first writer's.
		cached.Period = period
		if cached.Period == "" {
			cached.Period = "current_year"
		}
		return cached, nil
	}

	records, err := s.pipeline(ctx)
	if err != nil {
		return models.PeriodMetrics{}, err
	}

	start := time.Now()
	result := models.PeriodMetrics{
		Period:  period,
		Year:    year,
		Quarter: quarter,
		ByMonth: emptyHistogram(),
	}
	if result.Period == "" {
		result.Period = "current_year"
	}

	for _, record := range records {
		if record.Status != models.StatusApproved {
			continue
		}
		if record.Year != year {
			continue
		}
		if quarter > 0 && record.Quarter != quarter {
			continue
		}
		result.TotalSubmissions++
		if record.Month >= 1 && record.Month <= 12 {
			result.ByMonth[record.Month-1].Count++
		}
		if record.IsDuplicate {
			result.DuplicateCount++
		}
	}

	detail, err := s.aggregates.CategoryDetail(ctx, year, quarter)
	if err != nil {
		return models.PeriodMetrics{}, err
	}
	result.Detail = detail

	if s.metrics != nil {
		s.metrics.ObservePipelineStage("aggregate", time.Since(start))
	}

	if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache period metrics", zap.Error(err))
	}
	return result, nil
}

// Duplicates runs the duplicate scan over the whole active dataset and
// reports the resulting groups.
func (s *AnalyticsService) Duplicates(ctx context.Context) (dto.DuplicateReport, error) {
	records, err := s.pipeline(ctx)
	if err != nil {
		return dto.DuplicateReport{}, err
	}

	report := dto.DuplicateReport{TotalRecords: len(records), Groups: []dto.DuplicateGroupEntry{}}
	grouped := map[int][]models.CleanRecord{}
	order := []int{}
	for _, record := range records {
		if !record.IsDuplicate || record.DuplicateGroup == nil {
			continue
		}
		report.DuplicateCount++
		id := *record.DuplicateGroup
		if _, seen := grouped[id]; !seen {
			order = append(order, id)
		}
		grouped[id] = append(grouped[id], record)
	}
	sort.Ints(order)
	for _, id := range order {
		report.Groups = append(report.Groups, dto.DuplicateGroupEntry{Group: id, Members: grouped[id]})
	}
	return report, nil
}

// Statistics derives descriptive statistics over the whole active dataset.
func (s *AnalyticsService) Statistics(ctx context.Context) (models.Statistics, error) {
	const cacheKey = "analytics:statistics"
	var cached models.Statistics
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	records, err := s.pipeline(ctx)
	if err != nil {
		return models.Statistics{}, err
	}

	start := time.Now()
	stats := models.Statistics{
		General:  generalStats(records),
		Temporal: temporalStats(records),
		Content:  contentStats(records),
		Trends:   trendStats(records),
		Quality:  qualityStats(records),
	}
	if s.metrics != nil {
		s.metrics.ObservePipelineStage("statistics", time.Since(start))
	}

	if err := s.cache.Set(ctx, cacheKey, stats, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache statistics", zap.Error(err))
	}
	return stats, nil
}

// InvalidateCache drops cached analytics results after a write.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "analytics:*"); err != nil {
		s.logger.Warn("failed to invalidate analytics cache", zap.Error(err))
	}
}

// pipeline loads the active dataset and runs cleaning plus duplicate
// detection over it.
func (s *AnalyticsService) pipeline(ctx context.Context) ([]models.CleanRecord, error) {
	subs, err := s.source.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	records := s.cleaner.Clean(subs)
	return s.duplicates.Detect(records), nil
}

func emptyHistogram() []models.MonthCount {
	histogram := make([]models.MonthCount, len(spanishMonths))
	for i, name := range spanishMonths {
		histogram[i] = models.MonthCount{Month: name}
	}
	return histogram
}

func generalStats(records []models.CleanRecord) models.GeneralStats {
	stats := models.GeneralStats{TotalSubmissions: len(records)}
	emails := map[string]struct{}{}
	for _, record := range records {
		if record.Email != "" {
			emails[record.Email] = struct{}{}
		}
		if record.SubmittedAt.IsZero() {
			continue
		}
		at := record.SubmittedAt
		if stats.FirstSubmission == nil || at.Before(*stats.FirstSubmission) {
			stats.FirstSubmission = &at
		}
		if stats.LastSubmission == nil || at.After(*stats.LastSubmission) {
			stats.LastSubmission = &at
		}
	}
	stats.UniqueEmails = len(emails)
	return stats
}

func temporalStats(records []models.CleanRecord) models.TemporalStats {
	stats := models.TemporalStats{
		ByYear:    map[int]int{},
		ByMonth:   emptyHistogram(),
		ByQuarter: map[string]int{},
	}
	for _, record := range records {
		if record.Year == 0 {
			continue
		}
		stats.ByYear[record.Year]++
		if record.Month >= 1 && record.Month <= 12 {
			stats.ByMonth[record.Month-1].Count++
		}
		stats.ByQuarter[fmt.Sprintf("Q%d", record.Quarter)]++
	}
	return stats
}

func contentStats(records []models.CleanRecord) models.ContentStats {
	stats := models.ContentStats{
		EmailDomains: map[string]int{},
		TitleCounts:  map[string]int{},
	}
	totalNameLength := 0
	named := 0
	for _, record := range records {
		if _, domain, found := strings.Cut(record.Email, "@"); found && domain != "" {
			stats.EmailDomains[domain]++
		}
		if record.FullName == "" {
			continue
		}
		named++
		totalNameLength += len([]rune(record.FullName))
		first := strings.SplitN(record.FullName, " ", 2)[0]
		if strings.HasSuffix(first, ".") {
			stats.TitleCounts[first]++
		}
	}
	if named > 0 {
		stats.AvgNameLength = float64(totalNameLength) / float64(named)
	}
	return stats
}

// trendStats derives naive growth and seasonality heuristics: the growth
// rate compares the average of the last three monthly buckets against the
// first three, and a month counts as high or low season when it deviates
// more than 20% from the monthly mean.
func trendStats(records []models.CleanRecord) models.TrendStats {
	stats := models.TrendStats{
		HighSeasonMonths: []string{},
		LowSeasonMonths:  []string{},
	}
	if len(records) == 0 {
		return stats
	}

	buckets := map[int]int{}
	monthTotals := make([]int, 12)
	for _, record := range records {
		if record.Year == 0 || record.Month < 1 || record.Month > 12 {
			continue
		}
		buckets[record.Year*12+record.Month-1]++
		monthTotals[record.Month-1]++
	}
	if len(buckets) == 0 {
		return stats
	}

	keys := make([]int, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	window := 3
	if len(keys) < window {
		window = len(keys)
	}
	firstAvg := 0.0
	lastAvg := 0.0
	for i := 0; i < window; i++ {
		firstAvg += float64(buckets[keys[i]])
		lastAvg += float64(buckets[keys[len(keys)-1-i]])
	}
	firstAvg /= float64(window)
	lastAvg /= float64(window)
	if firstAvg > 0 {
		stats.GrowthRatePercent = math.Round((lastAvg-firstAvg)/firstAvg*10000) / 100
	}

	total := 0
	for _, count := range monthTotals {
		total += count
	}
	mean := float64(total) / 12.0
	for i, count := range monthTotals {
		if count == 0 {
			continue
		}
		if float64(count) > mean*1.2 {
			stats.HighSeasonMonths = append(stats.HighSeasonMonths, spanishMonths[i])
		} else if float64(count) < mean*0.8 {
			stats.LowSeasonMonths = append(stats.LowSeasonMonths, spanishMonths[i])
		}
	}

	monthlyAvg := 0.0
	for _, key := range keys {
		monthlyAvg += float64(buckets[key])
	}
	monthlyAvg /= float64(len(keys))
	stats.AnnualProjection = int(math.Round(monthlyAvg * 12))

	return stats
}

func qualityStats(records []models.CleanRecord) models.QualityStats {
	stats := models.QualityStats{
		Completeness: map[string]float64{
			"full_name":           0,
			"institutional_email": 0,
			"term":                0,
			"academic_year":       0,
		},
	}
	if len(records) == 0 {
		return stats
	}
	counts := map[string]int{}
	duplicates := 0
	for _, record := range records {
		if record.FullName != "" {
			counts["full_name"]++
		}
		if record.Email != "" {
			counts["institutional_email"]++
		}
		if record.Term != "" {
			counts["term"]++
		}
		if record.AcademicYear != 0 {
			counts["academic_year"]++
		}
		if record.IsDuplicate {
			duplicates++
		}
	}
	total := float64(len(records))
	for field := range stats.Completeness {
		stats.Completeness[field] = math.Round(float64(counts[field])/total*10000) / 100
	}
	stats.DuplicatePercent = math.Round(float64(duplicates)/total*10000) / 100
	return stats
}
