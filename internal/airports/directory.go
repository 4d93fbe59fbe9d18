package airports

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jelson/metar-calendar/pkg/logger"
)

// Station is one entry from the airport directory.
type Station struct {
	Code        string
	Name        string
	Latitude    float64
	Longitude   float64
	ElevationFt int
}

// Directory is an in-memory lookup of airport stations, loaded once at
// startup from an OurAirports-format CSV file.
type Directory struct {
	stations map[string]Station
	logger   *logger.Logger
}

// Load reads the airports CSV and builds the directory. Rows with an
// unparsable latitude or longitude are skipped.
func Load(path string, log *logger.Logger) (*Directory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open airports db: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read airports db header: %w", err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read airports db: %w", err)
	}

	d := &Directory{
		stations: make(map[string]Station, len(records)),
		logger:   log.Named("airports"),
	}

	var skipped int
	for _, record := range records {
		// ident(1), name(3), latitude(4), longitude(5), elevation(6)
		if len(record) < 7 {
			skipped++
			continue
		}

		lat, latErr := strconv.ParseFloat(record[4], 64)
		lon, lonErr := strconv.ParseFloat(record[5], 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}

		st := Station{
			Code:      strings.ToUpper(record[1]),
			Name:      record[3],
			Latitude:  lat,
			Longitude: lon,
		}

		// Elevation might be empty
		if record[6] != "" {
			if elev, err := strconv.ParseFloat(record[6], 64); err == nil {
				st.ElevationFt = int(elev)
			}
		}

		d.stations[st.Code] = st
	}

	d.logger.Info("Airport directory loaded",
		logger.String("path", path),
		logger.Int("stations", len(d.stations)),
		logger.Int("skipped_rows", skipped))

	return d, nil
}

// Lookup returns the station for the given code (case-insensitive).
func (d *Directory) Lookup(code string) (Station, bool) {
	st, ok := d.stations[strings.ToUpper(strings.TrimSpace(code))]
	return st, ok
}

// Len returns the number of stations in the directory.
func (d *Directory) Len() int {
	return len(d.stations)
}
