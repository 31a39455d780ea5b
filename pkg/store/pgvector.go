package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/chartdata/internal/models"
	"github.com/xhad/chartdata/pkg/processor"
)

type StoreConfig struct {
	ConnString   string
	ExtentTable  string
	BookTable    string
	HistogramDim int
	SearchLimit  int
}

// Store persists pipeline output in PostgreSQL. Books also carry a
// sentence-length histogram as a pgvector column so similar prose styles
// can be looked up.
type Store struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

type Match struct {
	FileName string
	Distance float64
}

func NewWithConfig(ctx context.Context, config StoreConfig) (*Store, error) {
	if config.ExtentTable == "" {
		config.ExtentTable = "seaice_extent"
	}
	if config.BookTable == "" {
		config.BookTable = "book_sentences"
	}
	if config.HistogramDim == 0 {
		config.HistogramDim = 48
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		config: config,
		pool:   pool,
	}

	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createExtent := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			hemisphere TEXT NOT NULL,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			day INTEGER NOT NULL,
			extent DOUBLE PRECISION,
			PRIMARY KEY (hemisphere, year, month, day)
		)`, s.config.ExtentTable)

	if _, err := s.pool.Exec(ctx, createExtent); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createBooks := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			file_name TEXT PRIMARY KEY,
			sentences INTEGER[] NOT NULL,
			histogram vector(%d)
		)`, s.config.BookTable, s.config.HistogramDim)

	if _, err := s.pool.Exec(ctx, createBooks); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// StoreExtent replaces the stored observations for one hemisphere.
func (s *Store) StoreExtent(ctx context.Context, hemisphere string, rows []models.ExtentRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (hemisphere, year, month, day, extent)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hemisphere, year, month, day) DO UPDATE SET
			extent = EXCLUDED.extent`,
		s.config.ExtentTable)

	for _, row := range rows {
		_, err := tx.Exec(ctx, stmt, hemisphere, row.Year, row.Month, row.Day, row.Extent)
		if err != nil {
			return fmt.Errorf("failed to insert extent row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) StoreSentences(ctx context.Context, records []models.SentenceRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (file_name, sentences, histogram)
		VALUES ($1, $2, $3)
		ON CONFLICT (file_name) DO UPDATE SET
			sentences = EXCLUDED.sentences,
			histogram = EXCLUDED.histogram`,
		s.config.BookTable)

	for _, record := range records {
		counts := make([]int32, len(record.Sentences))
		for i, n := range record.Sentences {
			counts[i] = int32(n)
		}
		hist := pgvector.NewVector(processor.Histogram(record.Sentences, s.config.HistogramDim))

		if _, err := tx.Exec(ctx, stmt, record.FileName, counts, hist); err != nil {
			return fmt.Errorf("failed to insert %s: %w", record.FileName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Similar returns the stored books whose sentence-length distribution is
// closest to fileName's, nearest first.
func (s *Store) Similar(ctx context.Context, fileName string, limit int) ([]Match, error) {
	if limit == 0 {
		limit = s.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT b.file_name, b.histogram <=> q.histogram AS distance
		FROM %[1]s b, %[1]s q
		WHERE q.file_name = $1 AND b.file_name <> $1
		ORDER BY distance
		LIMIT $2`,
		s.config.BookTable)

	rows, err := s.pool.Query(ctx, query, fileName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.FileName, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
