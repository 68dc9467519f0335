package telemetry

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/eidetic-labs/eideticmcp/internal/store"
)

// zeroResultRetention caps how many zero-result queries the table keeps.
const zeroResultRetention = 100

// SQLiteMetricsStore implements QueryMetricsStore over a shared SQLite
// handle. It never closes the handle; the App owns it.
type SQLiteMetricsStore struct {
	db *sql.DB
}

// NewSQLiteMetricsStore wraps db. InitTelemetrySchema must have run
// against the same handle first.
func NewSQLiteMetricsStore(db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// InitTelemetrySchema creates the telemetry tables if absent.
func InitTelemetrySchema(db *sql.DB) error {
	schema := `
	-- Query type frequency, aggregated daily
	CREATE TABLE IF NOT EXISTS query_type_stats (
		date TEXT NOT NULL,
		query_type TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, query_type)
	);

	-- Query terms with running frequency
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Recent zero-result queries, trimmed to the newest 100
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Latency histogram, aggregated daily
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);

	-- Result file-category mix (source/test/doc/config/generated)
	CREATE TABLE IF NOT EXISTS query_result_category_stats (
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, category)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// upsertDailyCounts runs the shared insert-or-accumulate pattern the
// daily aggregate tables all use, in one transaction.
func (s *SQLiteMetricsStore) upsertDailyCounts(query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("upsert count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sumCounts runs a two-column (key, SUM) aggregate query and returns the
// rows as a map.
func (s *SQLiteMetricsStore) sumCounts(query string, args ...any) (map[string]int64, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteMetricsStore) SaveQueryTypeCounts(date string, counts map[QueryType]int64) error {
	rows := make([][]any, 0, len(counts))
	for qt, count := range counts {
		rows = append(rows, []any{date, string(qt), count})
	}
	return s.upsertDailyCounts(`
		INSERT INTO query_type_stats (date, query_type, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, query_type) DO UPDATE SET count = count + excluded.count
	`, rows)
}

func (s *SQLiteMetricsStore) GetQueryTypeCounts(from, to string) (map[QueryType]int64, error) {
	raw, err := s.sumCounts(`
		SELECT query_type, SUM(count)
		FROM query_type_stats
		WHERE date >= ? AND date <= ?
		GROUP BY query_type
	`, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[QueryType]int64, len(raw))
	for k, v := range raw {
		counts[QueryType(k)] = v
	}
	return counts, nil
}

func (s *SQLiteMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	rows := make([][]any, 0, len(terms))
	for term, count := range terms {
		rows = append(rows, []any{term, count})
	}
	return s.upsertDailyCounts(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`, rows)
}

func (s *SQLiteMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQuery appends and trims the table to the newest
// zeroResultRetention entries.
func (s *SQLiteMetricsStore) AddZeroResultQuery(query string, timestamp time.Time) error {
	if _, err := s.db.Exec(`
		INSERT INTO zero_result_queries (query, timestamp) VALUES (?, ?)
	`, query, timestamp); err != nil {
		return fmt.Errorf("insert zero-result query: %w", err)
	}

	if _, err := s.db.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?
		)
	`, zeroResultRetention); err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	return nil
}

func (s *SQLiteMetricsStore) GetZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT query FROM zero_result_queries ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

func (s *SQLiteMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	rows := make([][]any, 0, len(counts))
	for bucket, count := range counts {
		rows = append(rows, []any{date, string(bucket), count})
	}
	return s.upsertDailyCounts(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`, rows)
}

func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	raw, err := s.sumCounts(`
		SELECT bucket, SUM(count)
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[LatencyBucket]int64, len(raw))
	for k, v := range raw {
		counts[LatencyBucket(k)] = v
	}
	return counts, nil
}

func (s *SQLiteMetricsStore) SaveResultCategoryCounts(date string, counts map[store.FileCategory]int64) error {
	rows := make([][]any, 0, len(counts))
	for cat, count := range counts {
		rows = append(rows, []any{date, string(cat), count})
	}
	return s.upsertDailyCounts(`
		INSERT INTO query_result_category_stats (date, category, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, category) DO UPDATE SET count = count + excluded.count
	`, rows)
}

func (s *SQLiteMetricsStore) GetResultCategoryCounts(from, to string) (map[store.FileCategory]int64, error) {
	raw, err := s.sumCounts(`
		SELECT category, SUM(count)
		FROM query_result_category_stats
		WHERE date >= ? AND date <= ?
		GROUP BY category
	`, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[store.FileCategory]int64, len(raw))
	for k, v := range raw {
		counts[store.FileCategory(k)] = v
	}
	return counts, nil
}

// Close is a no-op: the db handle is owned and closed by the App.
func (s *SQLiteMetricsStore) Close() error {
	return nil
}
