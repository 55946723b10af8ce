package storage

import (
	"context"
	"fmt"
)

const createPosts = `CREATE TABLE IF NOT EXISTS processed_posts (
	post_id TEXT PRIMARY KEY,
	original_text TEXT,
	verdict TEXT,
	summary TEXT,
	processed_at TIMESTAMP,
	url TEXT,
	manual_verdict TEXT,
	image_path TEXT
)`

const createBriefings = `CREATE TABLE IF NOT EXISTS briefings (
	date_key TEXT PRIMARY KEY,
	content TEXT,
	context_hash TEXT,
	created_at TIMESTAMP
)`

// Columns added after the first schema; older files are upgraded in place.
var lateColumns = []string{"url", "manual_verdict", "image_path"}

// Migrate creates missing tables and columns.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createPosts, createBriefings} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	existing, err := s.columns(ctx, "processed_posts")
	if err != nil {
		return err
	}
	for _, col := range lateColumns {
		if existing[col] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE processed_posts ADD COLUMN %s TEXT", col)); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
		s.logger.Info("schema upgraded", "column", col)
	}
	return nil
}

func (s *SQLStore) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", table))
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	result := make(map[string]bool, len(names))
	for _, n := range names {
		result[n] = true
	}
	return result, nil
}
