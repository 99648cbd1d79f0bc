package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/media2net/marktplaats-poster/models"
)

// PostgresArchive keeps a history of batch outcomes, one row per attempted
// product, keyed by the run that produced it.
type PostgresArchive struct {
	db *sql.DB
}

func NewPostgresArchive(host string, port int, user, password, dbname string) (*PostgresArchive, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresArchive{db: db}, nil
}

func (a *PostgresArchive) Close() error {
	return a.db.Close()
}

func (a *PostgresArchive) CreateTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS post_results (
		id SERIAL PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL,
		article_number VARCHAR(64),
		title TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		ad_url TEXT,
		ad_id VARCHAR(32),
		views INTEGER DEFAULT 0,
		saves INTEGER DEFAULT 0,
		posted_at TEXT,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_post_results_run ON post_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_post_results_article ON post_results(article_number);
	CREATE INDEX IF NOT EXISTS idx_post_results_status ON post_results(status);
	`

	_, err := a.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// InsertResults archives one batch inside a single transaction.
func (a *PostgresArchive) InsertResults(runID string, results []models.PostResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO post_results (run_id, article_number, title, status, ad_url, ad_id, views, saves, posted_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.Exec(
			runID,
			nullIfEmpty(r.ArticleNumber),
			r.Title,
			r.Status,
			nullIfEmpty(r.AdURL),
			nullIfEmpty(r.AdID),
			r.Views,
			r.Saves,
			nullIfEmpty(r.PostedAt),
			nullIfEmpty(r.Error),
		)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ResultsForRun reads one batch back, newest first.
func (a *PostgresArchive) ResultsForRun(runID string) ([]models.PostResult, error) {
	query := `
		SELECT article_number, title, status, ad_url, ad_id, views, saves, posted_at, error
		FROM post_results
		WHERE run_id = $1
		ORDER BY created_at DESC
	`

	rows, err := a.db.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := make([]models.PostResult, 0)
	for rows.Next() {
		var r models.PostResult
		var article, adURL, adID, postedAt, errText sql.NullString

		err := rows.Scan(&article, &r.Title, &r.Status, &adURL, &adID, &r.Views, &r.Saves, &postedAt, &errText)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.ArticleNumber = article.String
		r.AdURL = adURL.String
		r.AdID = adID.String
		r.PostedAt = postedAt.String
		r.Error = errText.String
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
