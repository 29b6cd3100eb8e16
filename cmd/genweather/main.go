// Command genweather generates deterministic synthetic weather fixtures for
// test suites and local development. The same flags always produce the same
// files.
//
// Usage:
//
//	go run ./cmd/genweather \
//	  -start 2023-01-01 -end 2023-12-31 -seed 42 \
//	  -csv-out data/mock/weather_2023.csv \
//	  -json-out data/mock/weather_2023.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-insights/internal/domain"
	"github.com/couchcryptid/weather-insights/internal/generator"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	startStr := flag.String("start", "", "first day of the range (YYYY-MM-DD)")
	endStr := flag.String("end", "", "last day of the range (YYYY-MM-DD)")
	seed := flag.Int64("seed", 42, "random seed")
	csvOut := flag.String("csv-out", "", "output path for the CSV fixture")
	jsonOut := flag.String("json-out", "", "output path for the JSON fixture")
	flag.Parse()

	if *startStr == "" || *endStr == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -start, -end")
	}
	if *csvOut == "" && *jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("at least one of -csv-out, -json-out is required")
	}

	start, err := time.Parse(domain.DateLayout, *startStr)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}
	end, err := time.Parse(domain.DateLayout, *endStr)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}

	gen := generator.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	series, err := gen.Generate(start, end, *seed)
	if err != nil {
		return err
	}
	log.Printf("generated %d records (seed %d)", len(series), *seed)

	if *csvOut != "" {
		if err := writeCSV(*csvOut, series); err != nil {
			return fmt.Errorf("writing CSV fixture: %w", err)
		}
		log.Printf("wrote CSV fixture: %s", *csvOut)
	}
	if *jsonOut != "" {
		if err := writeJSON(*jsonOut, series); err != nil {
			return fmt.Errorf("writing JSON fixture: %w", err)
		}
		log.Printf("wrote JSON fixture: %s", *jsonOut)
	}

	printStats(series)
	return nil
}

func writeCSV(path string, series domain.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "temperature", "humidity", "precipitation", "wind_speed", "season"}); err != nil {
		return err
	}
	for _, rec := range series {
		row := []string{
			rec.Date.Format(domain.DateLayout),
			formatValue(rec.Temperature),
			formatValue(rec.Humidity),
			formatValue(rec.Precipitation),
			formatValue(rec.WindSpeed),
			string(rec.Season),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// formatValue renders a measurement for CSV; missing values become empty
// cells so the cleaner treats them as gaps on the way back in.
func formatValue(v float64) string {
	if domain.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func writeJSON(path string, series domain.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(series domain.Series) {
	seasonCounts := map[domain.Season]int{}
	var rainyDays, heavyDays int
	minTemp, maxTemp := series[0].Temperature, series[0].Temperature
	var totalPrecip, maxWind float64

	for _, rec := range series {
		seasonCounts[rec.Season]++
		if rec.Precipitation > 0 {
			rainyDays++
			totalPrecip += rec.Precipitation
		}
		if rec.Precipitation > 20 {
			heavyDays++
		}
		if rec.Temperature < minTemp {
			minTemp = rec.Temperature
		}
		if rec.Temperature > maxTemp {
			maxTemp = rec.Temperature
		}
		if rec.WindSpeed > maxWind {
			maxWind = rec.WindSpeed
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(series))
	fmt.Printf("By season: winter=%d, spring=%d, summer=%d, autumn=%d\n",
		seasonCounts[domain.SeasonWinter], seasonCounts[domain.SeasonSpring],
		seasonCounts[domain.SeasonSummer], seasonCounts[domain.SeasonAutumn])
	fmt.Printf("Temperature range: %.1f to %.1f\n", minTemp, maxTemp)
	fmt.Printf("Rainy days: %d (%.1f mm total), heavy (>20mm): %d\n", rainyDays, totalPrecip, heavyDays)
	fmt.Printf("Max wind: %.1f m/s\n", maxWind)
}
