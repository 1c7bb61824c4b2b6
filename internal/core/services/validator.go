package services

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/custodia-labs/contentpipe/internal/core/domain"
	"github.com/custodia-labs/contentpipe/internal/core/ports/driven"
)

// Quality defaults.
const (
	DefaultQualityThreshold = 0.6
	DefaultTitleSimilarity  = 0.9
)

// QualityWeights weights the sub-scores of the composite quality score.
type QualityWeights struct {
	Completeness float64
	Relevance    float64
	Engagement   float64
}

// DefaultQualityWeights returns completeness 0.4, relevance 0.3, engagement 0.3.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{Completeness: 0.4, Relevance: 0.3, Engagement: 0.3}
}

func (w QualityWeights) total() float64 {
	return w.Completeness + w.Relevance + w.Engagement
}

// ValidatorConfig configures the quality validator.
type ValidatorConfig struct {
	// Threshold rejects records scoring below it (default: 0.6).
	Threshold float64

	// TitleSimilarity is the near-duplicate title threshold (default: 0.9).
	TitleSimilarity float64

	// Weights are the sub-score weights (default: 0.4/0.3/0.3).
	Weights QualityWeights

	// Now is the clock for recency scoring (default: time.Now).
	Now func() time.Time
}

// ValidationResult is the outcome of a validation pass.
type ValidationResult struct {
	// Kept are the surviving records in input order.
	Kept []domain.EnhancedRecord

	// Rejected are the dropped records with their reasons, in input order.
	Rejected []domain.Rejection
}

// QualityValidator scores, deduplicates and filters records. It is the only
// component that sets quality scores.
type QualityValidator struct {
	similarity driven.TextSimilarity
	cfg        ValidatorConfig
}

// NewQualityValidator creates a validator. similarity may be nil, in which
// case titles only match when their normalised forms are identical.
func NewQualityValidator(similarity driven.TextSimilarity, cfg ValidatorConfig) *QualityValidator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultQualityThreshold
	}
	if cfg.TitleSimilarity <= 0 {
		cfg.TitleSimilarity = DefaultTitleSimilarity
	}
	if cfg.Weights.total() <= 0 {
		cfg.Weights = DefaultQualityWeights()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &QualityValidator{similarity: similarity, cfg: cfg}
}

// Threshold returns the rejection threshold.
func (v *QualityValidator) Threshold() float64 {
	return v.cfg.Threshold
}

// Score computes the composite quality score of r in [0, 1].
func (v *QualityValidator) Score(r domain.EnhancedRecord) float64 {
	w := v.cfg.Weights
	score := (w.Completeness*completeness(r) + w.Relevance*relevance(r) + w.Engagement*v.engagement(r)) / w.total()
	return math.Max(0, math.Min(1, score))
}

// completeness is the fraction of canonical fields populated.
func completeness(r domain.EnhancedRecord) float64 {
	present := 0
	for _, ok := range []bool{
		r.Title != "",
		r.URL() != "",
		r.Excerpt != "",
		r.Draft.Image != "",
		!r.Draft.PublishedAt.IsZero(),
		r.Category != "" && r.Category != domain.CategoryUnclassified,
	} {
		if ok {
			present++
		}
	}
	return float64(present) / 6
}

// relevance is the classification confidence of a categorised record.
func relevance(r domain.EnhancedRecord) float64 {
	if r.Category == "" || r.Category == domain.CategoryUnclassified {
		return 0
	}
	return clamp01(r.ConfidenceValue())
}

// engagement averages title length, image presence and recency.
func (v *QualityValidator) engagement(r domain.EnhancedRecord) float64 {
	var title float64
	switch n := utf8.RuneCountInString(r.Title); {
	case n >= 30 && n <= 100:
		title = 1
	case n >= 10:
		title = 0.5
	}

	var image float64
	if r.Draft.Image != "" {
		image = 1
	}

	recency := 0.5
	if !r.Draft.PublishedAt.IsZero() {
		age := v.cfg.Now().Sub(r.Draft.PublishedAt)
		switch {
		case age <= 7*24*time.Hour:
			recency = 1
		case age >= 30*24*time.Hour:
			recency = 0
		default:
			recency = float64(30*24*time.Hour-age) / float64(23*24*time.Hour)
		}
	}

	return (title + image + recency) / 3
}

// Validate scores unscored records, rejects duplicates, then rejects
// survivors below the threshold. Running it on its own output is a no-op.
func (v *QualityValidator) Validate(records []domain.EnhancedRecord) ValidationResult {
	scored := make([]domain.EnhancedRecord, len(records))
	for i, r := range records {
		if !r.IsScored() {
			r.QualityScore = domain.Float(v.Score(r))
		}
		scored[i] = r
	}

	kept, rejected := v.Deduplicate(scored)

	result := ValidationResult{Rejected: rejected}
	for _, r := range kept {
		if r.Score() < v.cfg.Threshold {
			result.Rejected = append(result.Rejected, domain.Rejection{Record: r, Reason: domain.RejectLowQuality})
			continue
		}
		result.Kept = append(result.Kept, r)
	}
	return result
}

// Deduplicate groups records that share a fingerprint, a normalised URL or a
// near-identical title, keeping the highest-scoring record of each group.
// Ties keep the earliest record.
func (v *QualityValidator) Deduplicate(records []domain.EnhancedRecord) ([]domain.EnhancedRecord, []domain.Rejection) {
	groups := newUnionFind(len(records))

	byFingerprint := make(map[string]int)
	byURL := make(map[string]int)
	byTitle := make(map[string]int)
	titles := make([]string, len(records))

	for i, r := range records {
		if first, ok := byFingerprint[r.Fingerprint]; ok && r.Fingerprint != "" {
			groups.union(first, i)
		} else {
			byFingerprint[r.Fingerprint] = i
		}

		if u := domain.NormalizeURL(r.URL()); u != "" {
			if first, ok := byURL[u]; ok {
				groups.union(first, i)
			} else {
				byURL[u] = i
			}
		}

		titles[i] = domain.NormalizeTitle(r.Title)
		if titles[i] == "" {
			continue
		}
		if first, ok := byTitle[titles[i]]; ok {
			groups.union(first, i)
		} else {
			byTitle[titles[i]] = i
		}
	}

	if v.similarity != nil {
		for i := range records {
			for j := i + 1; j < len(records); j++ {
				if groups.find(i) == groups.find(j) || !comparableLength(titles[i], titles[j]) {
					continue
				}
				if v.similarity.Similarity(titles[i], titles[j]) >= v.cfg.TitleSimilarity {
					groups.union(i, j)
				}
			}
		}
	}

	best := make(map[int]int)
	for i, r := range records {
		root := groups.find(i)
		cur, ok := best[root]
		if !ok || r.Score() > records[cur].Score() {
			best[root] = i
		}
	}

	var kept []domain.EnhancedRecord
	var rejected []domain.Rejection
	for i, r := range records {
		winner := best[groups.find(i)]
		if winner == i {
			kept = append(kept, r)
			continue
		}
		rejected = append(rejected, domain.Rejection{
			Record:          r,
			Reason:          domain.RejectDuplicate,
			KeptFingerprint: records[winner].Fingerprint,
		})
	}
	return kept, rejected
}

// comparableLength skips similarity checks between titles whose lengths
// differ by more than a tenth; they cannot reach the threshold.
func comparableLength(a, b string) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 || lb == 0 {
		return false
	}
	longer := math.Max(float64(la), float64(lb))
	return math.Abs(float64(la-lb)) <= longer/10
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

// union attaches the later root under the earlier so roots stay the lowest index.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
