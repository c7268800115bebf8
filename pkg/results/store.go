package results

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Result is one benchmark measurement row.
type Result struct {
	Dataset   string
	Index     string
	Records   int
	BuildMs   float64
	LookupNs  float64
	SizeBytes int
	AvgError  float64
	CreatedAt time.Time
}

// Store persists benchmark results to SQLite so runs can be compared
// after the fact.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("results: open sqlite: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dataset TEXT NOT NULL,
		idx_name TEXT NOT NULL,
		records INTEGER,
		build_ms REAL,
		lookup_ns REAL,
		size_bytes INTEGER,
		avg_error REAL,
		created_at INTEGER
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("results: init table: %w", err)
	}

	return &Store{db: db}, nil
}

// Save writes a batch of rows inside one transaction.
func (s *Store) Save(rows []Result) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO results
		(dataset, idx_name, records, build_ms, lookup_ns, size_bytes, avg_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		ts := r.CreatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.Exec(r.Dataset, r.Index, r.Records, r.BuildMs,
			r.LookupNs, r.SizeBytes, r.AvgError, ts.Unix()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadAll returns every stored row, oldest first.
func (s *Store) LoadAll() ([]Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT dataset, idx_name, records, build_ms,
		lookup_ns, size_bytes, avg_error, created_at FROM results ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var ts int64
		if err := rows.Scan(&r.Dataset, &r.Index, &r.Records, &r.BuildMs,
			&r.LookupNs, &r.SizeBytes, &r.AvgError, &ts); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(ts, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
