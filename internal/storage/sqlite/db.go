// Package sqlite keeps a local journal of saved records and category
// corrections. The journal is an audit trail plus the source of the
// correction examples fed back into classification prompts; the store of
// record stays in Notion.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS saved_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id TEXT NOT NULL,
	title TEXT NOT NULL,
	category TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	conversation_key TEXT NOT NULL DEFAULT '',
	saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_saved_records_saved_at ON saved_records(saved_at);
CREATE INDEX IF NOT EXISTS idx_saved_records_record_id ON saved_records(record_id);

CREATE TABLE IF NOT EXISTS category_corrections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	original_category TEXT NOT NULL,
	corrected_category TEXT NOT NULL,
	corrected_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_category_corrections_corrected_at ON category_corrections(corrected_at);
`

// InitDB opens (creating if needed) the journal database at path and
// ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// migrate applies column additions to databases created by older builds.
func migrate(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('saved_records') WHERE name = 'model'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("inspect saved_records columns: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE saved_records ADD COLUMN model TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add model column: %w", err)
		}
	}
	return nil
}

// InsertSavedRecord journals one saved record. SavedAt is assigned by the
// database when the zero value is passed.
func InsertSavedRecord(db *sql.DB, r domain.SavedRecord) error {
	if r.SavedAt.IsZero() {
		_, err := db.Exec(
			`INSERT INTO saved_records (record_id, title, category, content, conversation_key, model) VALUES (?, ?, ?, ?, ?, ?)`,
			r.RecordID, r.Title, r.Category, r.Content, r.ConversationKey, r.Model,
		)
		return err
	}
	_, err := db.Exec(
		`INSERT INTO saved_records (record_id, title, category, content, conversation_key, model, saved_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RecordID, r.Title, r.Category, r.Content, r.ConversationKey, r.Model, r.SavedAt.UTC(),
	)
	return err
}

// InsertCategoryCorrection journals one applied correction.
func InsertCategoryCorrection(db *sql.DB, c domain.CategoryCorrection) error {
	if c.CorrectedAt.IsZero() {
		_, err := db.Exec(
			`INSERT INTO category_corrections (record_id, title, original_category, corrected_category) VALUES (?, ?, ?, ?)`,
			c.RecordID, c.Title, c.OriginalCategory, c.CorrectedCategory,
		)
		return err
	}
	_, err := db.Exec(
		`INSERT INTO category_corrections (record_id, title, original_category, corrected_category, corrected_at) VALUES (?, ?, ?, ?, ?)`,
		c.RecordID, c.Title, c.OriginalCategory, c.CorrectedCategory, c.CorrectedAt.UTC(),
	)
	return err
}

// RecentCorrections returns up to limit corrections, newest first. These
// become the "past corrections" examples in classification prompts.
func RecentCorrections(db *sql.DB, limit int) ([]domain.CategoryCorrection, error) {
	rows, err := db.Query(
		`SELECT id, record_id, title, original_category, corrected_category, corrected_at
		 FROM category_corrections
		 ORDER BY corrected_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrections []domain.CategoryCorrection
	for rows.Next() {
		var c domain.CategoryCorrection
		if err := rows.Scan(&c.ID, &c.RecordID, &c.Title, &c.OriginalCategory, &c.CorrectedCategory, &c.CorrectedAt); err != nil {
			return nil, err
		}
		corrections = append(corrections, c)
	}
	return corrections, rows.Err()
}

// CountSavedRecords reports how many records the journal holds.
func CountSavedRecords(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM saved_records`).Scan(&count)
	return count, err
}
