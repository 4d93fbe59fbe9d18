package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jonboulle/clockwork"

	"github.com/jelson/metar-calendar/internal/airports"
	"github.com/jelson/metar-calendar/internal/almanac"
	"github.com/jelson/metar-calendar/internal/config"
	"github.com/jelson/metar-calendar/internal/fetcher"
	"github.com/jelson/metar-calendar/internal/metar"
	"github.com/jelson/metar-calendar/internal/observability"
	"github.com/jelson/metar-calendar/internal/stats"
	"github.com/jelson/metar-calendar/internal/storage/sqlite"
	"github.com/jelson/metar-calendar/pkg/logger"
)

func main() {
	airport := flag.String("airport", "", "Airport code to analyze (e.g., KSFO)")
	month := flag.Int("month", 0, "Calendar month to analyze (1-12)")
	years := flag.Int("years", 0, "Number of past years to aggregate (default from config)")
	table := flag.Bool("table", false, "Print a colored hourly table instead of JSON")
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	if *airport == "" || *month == 0 {
		fmt.Fprintln(os.Stderr, "usage: analyzer -airport KSFO -month 6 [-years 10] [-table]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		// The analyzer works without a config file; fall back to defaults.
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Keep the terminal output clean unless something goes wrong.
	log, err := logger.New(logger.Config{Level: "warn", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	directory, err := airports.Load(cfg.Station.AirportsDBPath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load airport directory: %v\n", err)
		os.Exit(1)
	}

	alm, err := almanac.New(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize almanac: %v\n", err)
		os.Exit(1)
	}

	reportStorage, err := sqlite.NewReportStorage(cfg.Storage.SQLitePath, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open report storage: %v\n", err)
		os.Exit(1)
	}
	defer reportStorage.Close()

	metrics := observability.NewMetrics()
	archiveClient := fetcher.NewClient(fetcher.Config{
		BaseURL:               cfg.Fetcher.BaseURL,
		RequestTimeoutSeconds: cfg.Fetcher.RequestTimeoutSeconds,
		MaxRetries:            cfg.Fetcher.MaxRetries,
	}, log)
	cachingFetcher := fetcher.NewCachingFetcher(archiveClient, reportStorage, metrics, log)

	engine := stats.NewEngine(
		cachingFetcher,
		directory,
		alm,
		cfg.History.DefaultYears,
		clockwork.NewRealClock(),
		metrics,
		log,
	)

	if *years == 0 {
		*years = engine.DefaultYears()
	}

	result, err := engine.HourlyStatistics(context.Background(), *airport, time.Month(*month), *years)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	if *table {
		printTable(result)
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
		os.Exit(1)
	}
}

var categoryColors = map[metar.FlightCategory]*color.Color{
	metar.VFR:  color.New(color.FgGreen),
	metar.MVFR: color.New(color.FgBlue),
	metar.IFR:  color.New(color.FgRed),
	metar.LIFR: color.New(color.FgMagenta),
}

// printTable renders one row per UTC hour with the share of each flight
// category, colored by category.
func printTable(result *stats.Result) {
	fmt.Printf("%s, month %d\n", result.Airport, int(result.Month))
	for _, offset := range result.UTCOffsets {
		fmt.Printf("  local time:  %s (UTC%+.2g)\n", offset.Abbr, offset.UTCOffsetHours)
	}
	if d := result.DaylightUTC; d != nil {
		fmt.Printf("  daylight:    sunrise %05.2f UTC, sunset %05.2f UTC\n", d.Sunrise, d.Sunset)
	}
	fmt.Println()

	header := fmt.Sprintf("%5s", "hour")
	for _, cat := range metar.Categories {
		header += fmt.Sprintf("  %6s", cat.String())
	}
	header += fmt.Sprintf("  %7s", "samples")
	fmt.Println(header)

	for hour := 0; hour < 24; hour++ {
		stat := result.HourlyStats[hour]
		if stat == nil {
			fmt.Printf("%4dZ  %s\n", hour, "no data")
			continue
		}

		row := fmt.Sprintf("%4dZ", hour)
		for _, cat := range metar.Categories {
			cell := fmt.Sprintf("  %5.1f%%", stat.Fraction(cat)*100)
			row += categoryColors[cat].Sprint(cell)
		}
		row += fmt.Sprintf("  %7d", stat.SampleCount)
		fmt.Println(row)
	}
}
