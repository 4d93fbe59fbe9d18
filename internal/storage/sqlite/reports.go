package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jelson/metar-calendar/pkg/logger"
	_ "modernc.org/sqlite"
)

// ReportStorage is a SQLite-based store for raw archive report lines, keyed
// by (station, year, month). Rows are immutable once written.
type ReportStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewReportStorage opens (or creates) the report database at the given path.
func NewReportStorage(dbPath string, log *logger.Logger) (*ReportStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite report store",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	storage := &ReportStorage{
		db:     db,
		logger: storageLogger,
	}

	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// initDB creates the raw_reports table if it does not exist.
func (s *ReportStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS raw_reports (
			station TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			fetched_at TIMESTAMP NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (station, year, month)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create raw_reports table: %w", err)
	}
	return nil
}

// Get returns the cached report lines for the key, with ok=false on a miss.
func (s *ReportStorage) Get(station string, year int, month time.Month) ([]string, bool, error) {
	var body string
	err := s.db.QueryRow(
		`SELECT body FROM raw_reports WHERE station = ? AND year = ? AND month = ?`,
		station, year, int(month),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query raw_reports: %w", err)
	}

	if body == "" {
		return nil, true, nil
	}
	return strings.Split(body, "\n"), true, nil
}

// Put stores report lines for the key. An existing entry is left untouched;
// completed months never change in the archive.
func (s *ReportStorage) Put(station string, year int, month time.Month, lines []string) error {
	_, err := s.db.Exec(
		`INSERT INTO raw_reports (station, year, month, fetched_at, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (station, year, month) DO NOTHING`,
		station, year, int(month),
		time.Now().UTC().Format(time.RFC3339),
		strings.Join(lines, "\n"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert raw_reports row: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *ReportStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
