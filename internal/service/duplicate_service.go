package service

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/teacher-reports-api/internal/models"
)

// DefaultSimilarityThreshold is the name-similarity cutoff for grouping.
const DefaultSimilarityThreshold = 0.8

// DuplicateService flags probable duplicate submitters. The scan is a
// deliberate O(n²) pairwise comparison; the dataset is a few hundred
// instructors per period, so no indexing scheme is warranted.
type DuplicateService struct {
	threshold float64
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewDuplicateService constructs a duplicate detector.
func NewDuplicateService(threshold float64, metrics *MetricsService, logger *zap.Logger) *DuplicateService {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateService{threshold: threshold, metrics: metrics, logger: logger}
}

// Detect annotates each record with a duplicate flag and group id. Two
// records are grouped when their names are similar above the threshold or
// their emails match case-insensitively. The earliest record seeds a
// group; rows already grouped never seed a new one.
func (s *DuplicateService) Detect(records []models.CleanRecord) []models.CleanRecord {
	start := time.Now()
	out := make([]models.CleanRecord, len(records))
	copy(out, records)

	processed := make([]bool, len(out))
	nextGroup := 0

	for i := range out {
		if processed[i] {
			continue
		}
		var group *int
		for j := i + 1; j < len(out); j++ {
			if processed[j] {
				continue
			}
			if !s.isMatch(out[i], out[j]) {
				continue
			}
			if group == nil {
				id := nextGroup
				nextGroup++
				group = &id
				out[i].IsDuplicate = true
				out[i].DuplicateGroup = intPtr(id)
				processed[i] = true
			}
			out[j].IsDuplicate = true
			out[j].DuplicateGroup = intPtr(*group)
			processed[j] = true
		}
	}

	if s.metrics != nil {
		s.metrics.ObservePipelineStage("duplicates", time.Since(start))
	}
	return out
}

func (s *DuplicateService) isMatch(a, b models.CleanRecord) bool {
	if a.Email != "" && strings.EqualFold(a.Email, b.Email) {
		return true
	}
	return SimilarityRatio(a.FullName, b.FullName) >= s.threshold
}

// SimilarityRatio computes a case-insensitive character ratio in [0, 1]:
// twice the total length of the matching blocks divided by the combined
// length of both strings.
func SimilarityRatio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}
	matches := matchingLength(ra, rb)
	return 2.0 * float64(matches) / float64(len(ra)+len(rb))
}

// matchingLength sums the longest common substring and recursively the
// matches on either side of it, mirroring classic sequence matching.
func matchingLength(a, b []rune) int {
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingLength(a[:aStart], b[:bStart])
	total += matchingLength(a[aStart+size:], b[bStart+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (aStart, bStart, size int) {
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prev := 0
		for j := 1; j <= len(b); j++ {
			current := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prev + 1
				if lengths[j] > size {
					size = lengths[j]
					aStart = i - size
					bStart = j - size
				}
			} else {
				lengths[j] = 0
			}
			prev = current
		}
	}
	return aStart, bStart, size
}

func intPtr(v int) *int {
	return &v
}
