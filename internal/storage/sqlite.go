package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"newsagg/internal/dedup"
	"newsagg/internal/model"
	"newsagg/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// DedupWindow is the trailing span of canonical articles considered for
// near-duplicate comparison on save.
const DedupWindow = 24 * time.Hour

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Exists reports whether an article with the given ID is already stored.
func (s *SQLite) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM articles WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return true, nil
}

// FindSimilar scans canonical articles created within the window, oldest
// first, and returns the first one whose normalized title crosses the
// similarity threshold. The fixed scan order keeps first-match-wins
// deterministic.
func (s *SQLite) FindSimilar(ctx context.Context, title string, within time.Duration) (*Match, error) {
	normalized := dedup.Normalize(title)
	cutoff := time.Now().UTC().Add(-within).Format(timeLayout)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, normalized_title FROM articles
		 WHERE created_at > ? AND duplicate_of IS NULL
		 ORDER BY created_at, id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, existing string
		if err := rows.Scan(&id, &existing); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if score := dedup.Similarity(normalized, existing); score >= dedup.Threshold {
			return &Match{ID: id, Score: score}, nil
		}
	}
	return nil, rows.Err()
}

// Save persists an article after duplicate detection. A near-duplicate is
// inserted with duplicate_of pointing at the canonical article and sent=1 so
// it is never delivered independently; the canonical article's other_sources
// gains the new source. The insert and the other_sources update commit in one
// transaction.
func (s *SQLite) Save(ctx context.Context, article *model.Article) (bool, error) {
	exists, err := s.Exists(ctx, article.ID())
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	normalized := dedup.Normalize(article.Title)
	match, err := s.FindSimilar(ctx, article.Title, DedupWindow)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC().Format(timeLayout)
	var ts *string
	if article.Timestamp != nil {
		v := article.Timestamp.UTC().Format(timeLayout)
		ts = &v
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if match != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO articles (id, title, normalized_title, url, source, timestamp, content, created_at, sent, duplicate_of)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			article.ID(), article.Title, normalized, article.URL, article.Source, ts, article.Content, now, match.ID,
		)
		if err != nil {
			return false, fmt.Errorf("insert duplicate: %w", err)
		}

		var existing string
		err = tx.QueryRowContext(ctx, `SELECT other_sources FROM articles WHERE id = ?`, match.ID).Scan(&existing)
		if err != nil {
			return false, fmt.Errorf("read other_sources: %w", err)
		}
		merged := mergeSources(existing, article.Source)
		if merged != existing {
			if _, err := tx.ExecContext(ctx,
				`UPDATE articles SET other_sources = ? WHERE id = ?`, merged, match.ID,
			); err != nil {
				return false, fmt.Errorf("update other_sources: %w", err)
			}
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO articles (id, title, normalized_title, url, source, timestamp, content, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			article.ID(), article.Title, normalized, article.URL, article.Source, ts, article.Content, now,
		)
		if err != nil {
			return false, fmt.Errorf("insert article: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit save: %w", err)
	}
	return match == nil, nil
}

// MarkSent flags an article as delivered.
func (s *SQLite) MarkSent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE articles SET sent = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// Unsent returns all undelivered canonical articles, newest publication
// first. SQLite sorts NULL below every value, so articles without a
// timestamp come last.
func (s *SQLite) Unsent(ctx context.Context) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, url, source, timestamp, content, other_sources FROM articles
		 WHERE sent = 0 AND duplicate_of IS NULL
		 ORDER BY timestamp DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query unsent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var ts, content, sources sql.NullString
		if err := rows.Scan(&a.Title, &a.URL, &a.Source, &ts, &content, &sources); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if ts.Valid {
			t, err := time.Parse(timeLayout, ts.String)
			if err == nil {
				a.Timestamp = &t
			}
		}
		a.Content = content.String
		a.OtherSources = splitSources(sources.String)
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CleanupOld hard-deletes every article, canonical or duplicate, created
// before the retention horizon.
func (s *SQLite) CleanupOld(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Stats returns aggregate article counts. BySource counts every stored row,
// duplicates included, grouped by its own source.
func (s *SQLite) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{BySource: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("count total: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE sent = 1`).Scan(&stats.Sent); err != nil {
		return nil, fmt.Errorf("count sent: %w", err)
	}
	stats.Pending = stats.Total - stats.Sent

	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM articles GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		stats.BySource[source] = count
	}
	return stats, rows.Err()
}

// mergeSources appends source to the comma-separated list unless already
// present.
func mergeSources(existing, source string) string {
	for _, s := range splitSources(existing) {
		if s == source {
			return existing
		}
	}
	if existing == "" {
		return source
	}
	return existing + "," + source
}

func splitSources(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
