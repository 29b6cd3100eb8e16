package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/couchcryptid/weather-insights/internal/domain"
)

// Risk-rule thresholds, applied to the analyzed window as a whole.
const (
	heatRiskMeanTemp  = 25.0
	floodRiskRainDays = 3
)

// Generator assembles insight reports. The narrative comes from the
// configured narrator when one is set; any narrator failure is absorbed and
// the template narrator takes over, so Generate never fails on narrative
// grounds alone.
type Generator struct {
	narrator domain.Narrator
	fallback TemplateNarrator
	logger   *slog.Logger
}

// NewGenerator creates a report generator. A nil narrator means the template
// narrative is used for every report.
func NewGenerator(narrator domain.Narrator, logger *slog.Logger) *Generator {
	return &Generator{narrator: narrator, logger: logger}
}

// Generate computes descriptive statistics, trends, and precipitation totals
// for the series and renders the narrative. Both narrative strategies fill
// every report section; Provenance records which one produced the text.
func (g *Generator) Generate(ctx context.Context, series domain.Series, anomalies domain.AnomalySummary) (domain.InsightReport, error) {
	if len(series) == 0 {
		return domain.InsightReport{}, domain.NewValidationError("series", "empty series")
	}

	input := domain.NarrativeInput{
		RangeStart: series[0].Date,
		RangeEnd:   series[len(series)-1].Date,
		Records:    len(series),
		Stats:      computeStats(series),
		Trends:     computeTrends(series),
		Anomalies:  anomalies,
	}
	input.TotalPrecipitation, input.RainyDays = precipSummary(series)
	input.HeavyRainDays = heavyRainDays(series)

	narrative, provenance := g.narrate(ctx, input)

	return domain.InsightReport{
		ID:          uuid.NewString(),
		GeneratedAt: domain.Now(),

		RangeStart: input.RangeStart,
		RangeEnd:   input.RangeEnd,
		Records:    input.Records,

		Stats:  input.Stats,
		Trends: input.Trends,

		TotalPrecipitation: input.TotalPrecipitation,
		RainyDays:          input.RainyDays,

		Anomalies:  anomalies,
		Narrative:  narrative,
		Provenance: provenance,
	}, nil
}

func (g *Generator) narrate(ctx context.Context, input domain.NarrativeInput) (string, domain.Provenance) {
	if g.narrator != nil {
		text, err := g.narrator.Narrate(ctx, input)
		if err == nil {
			return text, domain.ProvenanceGenerated
		}
		g.logger.Warn("narrative service failed, falling back to template", "error", err)
	}

	text, _ := g.fallback.Narrate(ctx, input) // template narration cannot fail
	return text, domain.ProvenanceTemplateFallback
}

// TemplateNarrator renders a deterministic plain-text narrative from the
// computed report sections. It needs no external service and never errors.
type TemplateNarrator struct{}

// Narrate implements domain.Narrator.
func (TemplateNarrator) Narrate(_ context.Context, in domain.NarrativeInput) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Between %s and %s, %d days were analyzed.",
		in.RangeStart.Format(domain.DateLayout), in.RangeEnd.Format(domain.DateLayout), in.Records)

	if s, ok := statFor(in.Stats, domain.FieldTemperature); ok {
		fmt.Fprintf(&b, " Temperatures averaged %.1f°C, ranging from %.1f°C to %.1f°C", s.Mean, s.Min, s.Max)
		b.WriteString(trendClause(in.Trends, domain.FieldTemperature, "°C"))
		b.WriteString(".")
	}
	if s, ok := statFor(in.Stats, domain.FieldHumidity); ok {
		fmt.Fprintf(&b, " Humidity averaged %.0f%%.", s.Mean)
	}
	fmt.Fprintf(&b, " Total precipitation reached %.1f mm across %d rainy days.",
		in.TotalPrecipitation, in.RainyDays)
	if s, ok := statFor(in.Stats, domain.FieldWindSpeed); ok {
		fmt.Fprintf(&b, " Winds averaged %.1f m/s.", s.Mean)
	}

	b.WriteString(" ")
	b.WriteString(anomalySentence(in.Anomalies))

	if s, ok := statFor(in.Stats, domain.FieldTemperature); ok && s.Mean > heatRiskMeanTemp {
		b.WriteString(" Sustained high average temperatures point to an elevated heat stress risk.")
	}
	if in.HeavyRainDays > floodRiskRainDays {
		fmt.Fprintf(&b, " %d days recorded heavy precipitation above %.0f mm, indicating potential flood risk.",
			in.HeavyRainDays, heavyRainThreshold)
	}

	return b.String(), nil
}

// statFor finds the stats block for a feature; ok is false when the feature
// is absent or had no valid measurements.
func statFor(stats []domain.FeatureStats, f domain.FieldName) (domain.FeatureStats, bool) {
	for _, s := range stats {
		if s.Feature == f && !domain.IsMissing(s.Mean) {
			return s, true
		}
	}
	return domain.FeatureStats{}, false
}

func trendClause(trends []domain.FeatureTrend, f domain.FieldName, unit string) string {
	for _, tr := range trends {
		if tr.Feature != f {
			continue
		}
		switch tr.Direction {
		case domain.TrendRising:
			return fmt.Sprintf(", rising by %.2f%s per day", tr.SlopePerDay, unit)
		case domain.TrendFalling:
			return fmt.Sprintf(", falling by %.2f%s per day", -tr.SlopePerDay, unit)
		}
	}
	return ""
}

func anomalySentence(s domain.AnomalySummary) string {
	if s.Flagged == 0 {
		return "No days stood out as anomalous."
	}
	pct := 100 * float64(s.Flagged) / float64(s.Records)
	out := fmt.Sprintf("%d of %d days (%.1f%%) stood out as anomalous", s.Flagged, s.Records, pct)
	if len(s.Top) > 0 {
		out += fmt.Sprintf("; the most unusual was %s", s.Top[0].Date.Format(domain.DateLayout))
	}
	return out + "."
}
