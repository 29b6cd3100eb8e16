// Command validate checks a weather CSV fixture end to end: it parses every
// row, runs the cleaner, and verifies the cleaned series holds the
// invariants the detector and reporter rely on.
//
// Usage:
//
//	go run ./cmd/validate -csv data/mock/weather_2023.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/couchcryptid/weather-insights/internal/cleaner"
	"github.com/couchcryptid/weather-insights/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the weather CSV fixture")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath string) int {
	fmt.Println("=== Weather Data Integrity Validation ===")
	fmt.Println()

	rows, err := loadCSV(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	cln := cleaner.New(slog.New(slog.NewTextHandler(io.Discard, nil)))

	parsePhase, raw := validateParsing(rows)

	cleanPhase := &phase{name: "Phase 2: Cleaning"}
	series, stats, err := cln.CleanWithStats(raw)
	if err != nil {
		cleanPhase.errorf("clean failed: %v", err)
	} else {
		fmt.Printf("  Cleaning: %d in, %d out, %d duplicates dropped, %d gap days filled, %d values imputed, %d clipped\n",
			stats.Input, len(series), stats.DuplicatesDropped, stats.GapDaysFilled, stats.ValuesImputed, stats.ValuesClipped)
	}

	phases := []*phase{
		parsePhase,
		cleanPhase,
		validateInvariants(series),
		validateIdempotence(cln, series),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-38s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Printf("\nAll validations passed (%d rows, %d cleaned records).\n", len(rows), len(series))
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadCSV reads the fixture and maps each data row by header name.
func loadCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	rows := make([]map[string]string, 0, len(all)-1)
	for _, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, fields)
	}
	return rows, nil
}

// validateParsing converts rows into typed records, collecting per-row errors.
func validateParsing(rows []map[string]string) (*phase, domain.Series) {
	p := &phase{name: "Phase 1: Row Parsing"}

	series := make(domain.Series, 0, len(rows))
	for i, fields := range rows {
		raw := domain.RawRecord{
			Date:          fields["date"],
			Temperature:   fields["temperature"],
			Humidity:      fields["humidity"],
			Precipitation: fields["precipitation"],
			WindSpeed:     fields["wind_speed"],
		}
		rec, err := domain.ParseRawRecord(raw, i+1)
		if err != nil {
			p.errorf("row %d: %v", i+1, err)
			continue
		}
		series = append(series, rec)
	}
	return p, series
}

// validateInvariants checks the properties the detector and reporter assume:
// consecutive unique dates, no missing values in a feature with any data,
// every value within physical bounds, and seasons derived from dates.
func validateInvariants(series domain.Series) *phase {
	p := &phase{name: "Phase 3: Cleaned Invariants"}
	if len(series) == 0 {
		p.errorf("cleaned series is empty")
		return p
	}

	for i := 1; i < len(series); i++ {
		gap := series[i].Date.Sub(series[i-1].Date).Hours() / 24
		if gap != 1 {
			p.errorf("dates %s and %s are %g days apart (want 1)",
				series[i-1].Date.Format(domain.DateLayout), series[i].Date.Format(domain.DateLayout), gap)
		}
	}

	for _, f := range domain.Features() {
		col := series.Column(f)
		allMissing := true
		for _, v := range col {
			if !domain.IsMissing(v) {
				allMissing = false
				break
			}
		}
		if allMissing {
			continue // a feature with no data at all stays unfilled
		}
		bounds, _ := domain.FieldBounds(f)
		for i, v := range col {
			if domain.IsMissing(v) {
				p.errorf("%s: record %d still missing after cleaning", f, i)
			} else if v < bounds.Min || v > bounds.Max {
				p.errorf("%s: record %d value %g outside [%g, %g]", f, i, v, bounds.Min, bounds.Max)
			}
		}
	}

	for i, rec := range series {
		if rec.Season != domain.SeasonForDate(rec.Date) {
			p.errorf("record %d: season %q does not match date %s", i, rec.Season, rec.Date.Format(domain.DateLayout))
		}
	}
	return p
}

// validateIdempotence confirms cleaning an already-clean series changes
// nothing.
func validateIdempotence(cln *cleaner.Cleaner, series domain.Series) *phase {
	p := &phase{name: "Phase 4: Idempotence"}
	if len(series) == 0 {
		return p
	}

	again, err := cln.Clean(series)
	if err != nil {
		p.errorf("second clean failed: %v", err)
		return p
	}
	if diff := cmp.Diff(series, again, cmpopts.EquateNaNs()); diff != "" {
		p.errorf("cleaning is not idempotent (-first +second):\n%s", diff)
	}
	return p
}
