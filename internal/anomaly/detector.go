// Package anomaly flags statistically unusual days in a weather series
// using an isolation-forest ensemble over z-score-normalized features.
package anomaly

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/couchcryptid/weather-insights/internal/domain"
)

const (
	// MinRecords is the smallest series the ensemble accepts. Fewer records
	// cannot form a meaningful partition ensemble.
	MinRecords = 10

	// DefaultContamination is the assumed fraction of anomalous days when
	// the caller passes 0.
	DefaultContamination = 0.05

	maxContamination = 0.5

	topContributors = 3
)

// Detector scores weather series for anomalous days. It holds no mutable
// state; all randomness derives from the seed passed to Detect, so
// concurrent calls are safe.
type Detector struct {
	logger *slog.Logger
}

// New creates a Detector.
func New(logger *slog.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect scores every record over the selected features and flags the top
// contamination fraction by score. Results contain only flagged records,
// ordered by date. The input series is read, never mutated.
//
// A contamination of 0 selects DefaultContamination. Identical
// (series, features, contamination, seed) always reproduce the same flagged
// set. A series where every selected feature is constant yields an empty
// result set: with no variance, nothing stands out.
func (d *Detector) Detect(series domain.Series, features []domain.FieldName, contamination float64, seed int64) ([]domain.AnomalyResult, domain.AnomalySummary, error) {
	if len(features) == 0 {
		return nil, domain.AnomalySummary{}, domain.NewValidationError("features", "empty feature set")
	}
	seen := make(map[domain.FieldName]struct{}, len(features))
	for _, f := range features {
		if _, ok := domain.FieldBounds(f); !ok {
			return nil, domain.AnomalySummary{}, domain.NewValidationError("features", fmt.Sprintf("unknown feature %q", f))
		}
		// A repeated feature would silently double its weight in the forest.
		if _, dup := seen[f]; dup {
			return nil, domain.AnomalySummary{}, domain.NewValidationError("features", fmt.Sprintf("duplicate feature %q", f))
		}
		seen[f] = struct{}{}
	}
	if contamination == 0 {
		contamination = DefaultContamination
	}
	if contamination < 0 || contamination > maxContamination {
		return nil, domain.AnomalySummary{},
			domain.NewValidationError("contamination", fmt.Sprintf("must be in (0, %g], got %g", maxContamination, contamination))
	}
	if len(series) < MinRecords {
		return nil, domain.AnomalySummary{}, &domain.InsufficientDataError{Records: len(series), Min: MinRecords}
	}

	summary := domain.AnomalySummary{
		Records:       len(series),
		Contamination: contamination,
		Features:      append([]domain.FieldName(nil), features...),
	}

	data, hasVariance := normalize(series, features)
	if !hasVariance {
		d.logger.Debug("no variance in selected features, nothing to flag", "records", len(series))
		return []domain.AnomalyResult{}, summary, nil
	}

	scores := scoreAll(data, seed)

	flagged := threshold(series, scores, contamination)
	for i := range flagged {
		flagged[i].Features = summary.Features
	}

	summary.Flagged = len(flagged)
	summary.Top = topByScore(flagged, topContributors)

	d.logger.Debug("anomaly detection complete",
		"records", len(series),
		"flagged", len(flagged),
		"contamination", contamination,
	)

	byDate := append([]domain.AnomalyResult(nil), flagged...)
	sort.Slice(byDate, func(i, j int) bool { return byDate[i].Date.Before(byDate[j].Date) })
	return byDate, summary, nil
}

// normalize builds the z-score-normalized feature matrix so differing units
// do not dominate the partitioning. Missing values are replaced by the
// feature mean (z-score 0). Returns hasVariance=false when every selected
// feature is constant.
func normalize(series domain.Series, features []domain.FieldName) (data [][]float64, hasVariance bool) {
	n := len(series)
	data = make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, len(features))
	}

	for fi, f := range features {
		col := series.Column(f)
		mean, std := meanStd(col)
		if std > 0 {
			hasVariance = true
		}
		for i, v := range col {
			switch {
			case domain.IsMissing(v) || std == 0:
				data[i][fi] = 0
			default:
				data[i][fi] = (v - mean) / std
			}
		}
	}
	return data, hasVariance
}

// meanStd computes mean and population standard deviation over the valid
// values of a column.
func meanStd(col []float64) (mean, std float64) {
	var sum float64
	var count int
	for _, v := range col {
		if domain.IsMissing(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, 0
	}
	mean = sum / float64(count)

	var sq float64
	for _, v := range col {
		if domain.IsMissing(v) {
			continue
		}
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(count))
}

// scoreAll builds the tree ensemble and scores every row.
func scoreAll(data [][]float64, seed int64) []float64 {
	n := len(data)
	sample := maxSampleSize
	if n < sample {
		sample = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))

	rng := rand.New(rand.NewSource(seed))
	trees := make([]*treeNode, numTrees)
	for t := range trees {
		indices := rng.Perm(n)[:sample]
		trees[t] = buildTree(rng, data, indices, 0, maxDepth)
	}

	scores := make([]float64, n)
	for i, point := range data {
		var total float64
		for _, tree := range trees {
			total += pathLength(tree, point, 0)
		}
		scores[i] = anomalyScore(total/float64(numTrees), sample)
	}
	return scores
}

// threshold flags the top floor(contamination*n) records by score. Ties at
// the cutoff are broken by ascending date so the flagged set is
// deterministic.
func threshold(series domain.Series, scores []float64, contamination float64) []domain.AnomalyResult {
	n := len(series)
	k := int(contamination * float64(n))
	if k == 0 {
		return nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		return series[i].Date.Before(series[j].Date)
	})

	flagged := make([]domain.AnomalyResult, 0, k)
	for _, idx := range order[:k] {
		flagged = append(flagged, domain.AnomalyResult{
			Date:      series[idx].Date,
			Score:     scores[idx],
			IsAnomaly: true,
		})
	}
	return flagged
}

// topByScore returns up to limit results ordered by descending score.
func topByScore(flagged []domain.AnomalyResult, limit int) []domain.AnomalyResult {
	top := append([]domain.AnomalyResult(nil), flagged...)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score != top[j].Score {
			return top[i].Score > top[j].Score
		}
		return top[i].Date.Before(top[j].Date)
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top
}
