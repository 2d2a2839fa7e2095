// Package pgx is an index.VectorStore on PostgreSQL with the pgvector
// extension.
package pgx

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/bookgraph/internal/util"
	"github.com/OFFIS-RIT/bookgraph/pkg/index"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the schema at databaseURL up to date.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Store keeps chunks in the book_chunks table.
type Store struct {
	pool *pgxpool.Pool
}

var _ index.VectorStore = (*Store)(nil)

// Open migrates the database and connects a pool that understands the vector
// type. The caller owns the returned store and must Close it.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Replace(ctx context.Context, bookID string, chunks []index.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// the cascade drops the previous chunks of the book
	if _, err := tx.Exec(ctx, `DELETE FROM indexed_books WHERE book_id = $1`, bookID); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO indexed_books (book_id, chunk_count) VALUES ($1, $2)`,
		bookID, len(chunks),
	); err != nil {
		return fmt.Errorf("register index: %w", err)
	}

	rows := make([][]any, len(chunks))
	for i, c := range chunks {
		rows[i] = []any{bookID, c.ID, c.Seq, util.SanitizePostgresText(c.Text), pgvector.NewVector(c.Embedding)}
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"book_chunks"},
		[]string{"book_id", "id", "seq", "text", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy chunks: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Debug("[Index] Replaced pgvector index", "book_id", bookID, "rows", n)
	return nil
}

func (s *Store) Search(ctx context.Context, bookID string, query []float32, k int) ([]index.Match, error) {
	ok, err := s.Has(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, index.ErrNotIndexed
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, seq, text, embedding, 1 - (embedding <=> $2) AS score
		FROM book_chunks
		WHERE book_id = $1
		ORDER BY embedding <=> $2, seq
		LIMIT $3`,
		bookID, pgvector.NewVector(query), k,
	)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var matches []index.Match
	for rows.Next() {
		var (
			m     index.Match
			vec   pgvector.Vector
			score float64
		)
		if err := rows.Scan(&m.ID, &m.Seq, &m.Text, &vec, &score); err != nil {
			return nil, err
		}
		m.Embedding = vec.Slice()
		m.Score = float32(score)
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (s *Store) Has(ctx context.Context, bookID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM indexed_books WHERE book_id = $1)`, bookID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	return exists, nil
}
