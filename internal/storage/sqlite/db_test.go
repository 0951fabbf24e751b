package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccccccarachen/content-collection-skill/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "collectbot-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInitDBAddsModelColumn(t *testing.T) {
	db := newTestDB(t)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('saved_records') WHERE name = 'model'`).Scan(&count); err != nil {
		t.Fatalf("query pragma_table_info failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected model column to exist, count=%d", count)
	}
}

func TestSavedRecordJournal(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	first := domain.SavedRecord{
		RecordID:        "page-1",
		Title:           "RAG evaluation guide",
		Category:        "Articles",
		Content:         "https://example.com/rag",
		ConversationKey: "telegram:42",
		Model:           "claude-sonnet-4-20250514",
		SavedAt:         base,
	}
	if err := InsertSavedRecord(db, first); err != nil {
		t.Fatalf("InsertSavedRecord failed: %v", err)
	}
	if err := InsertSavedRecord(db, domain.SavedRecord{
		RecordID:        "page-2",
		Title:           "Untitled",
		Category:        "Tweets",
		Content:         "https://x.com/someone/status/99",
		ConversationKey: "slack:D123",
	}); err != nil {
		t.Fatalf("InsertSavedRecord with default time failed: %v", err)
	}

	count, err := CountSavedRecords(db)
	if err != nil {
		t.Fatalf("CountSavedRecords failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 journaled records, got %d", count)
	}

	var (
		title   string
		savedAt time.Time
	)
	err = db.QueryRow(`SELECT title, saved_at FROM saved_records WHERE record_id = ?`, "page-1").Scan(&title, &savedAt)
	if err != nil {
		t.Fatalf("read back record failed: %v", err)
	}
	if title != first.Title {
		t.Errorf("title = %q, want %q", title, first.Title)
	}
	if !savedAt.UTC().Equal(base) {
		t.Errorf("saved_at = %v, want %v", savedAt.UTC(), base)
	}
	err = db.QueryRow(`SELECT saved_at FROM saved_records WHERE record_id = ?`, "page-2").Scan(&savedAt)
	if err != nil {
		t.Fatalf("read back defaulted record failed: %v", err)
	}
	if savedAt.IsZero() {
		t.Error("expected database to assign saved_at, got zero time")
	}
}

func TestRecentCorrectionsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := time.Now().UTC().Truncate(time.Second)

	corrections := []domain.CategoryCorrection{
		{RecordID: "page-1", Title: "Old mistake", OriginalCategory: "Articles", CorrectedCategory: "Videos", CorrectedAt: base.Add(-2 * time.Hour)},
		{RecordID: "page-2", Title: "Mid mistake", OriginalCategory: "Tweets", CorrectedCategory: "Articles", CorrectedAt: base.Add(-1 * time.Hour)},
		{RecordID: "page-3", Title: "New mistake", OriginalCategory: "Videos", CorrectedCategory: "Tutorials", CorrectedAt: base},
	}
	for _, c := range corrections {
		if err := InsertCategoryCorrection(db, c); err != nil {
			t.Fatalf("InsertCategoryCorrection failed: %v", err)
		}
	}

	recent, err := RecentCorrections(db, 2)
	if err != nil {
		t.Fatalf("RecentCorrections failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 corrections, got %d", len(recent))
	}
	if recent[0].RecordID != "page-3" || recent[1].RecordID != "page-2" {
		t.Errorf("order = %s, %s; want page-3, page-2", recent[0].RecordID, recent[1].RecordID)
	}
	if recent[0].CorrectedCategory != "Tutorials" {
		t.Errorf("CorrectedCategory = %q, want %q", recent[0].CorrectedCategory, "Tutorials")
	}
	if !recent[0].CorrectedAt.UTC().Equal(base) {
		t.Errorf("CorrectedAt = %v, want %v", recent[0].CorrectedAt.UTC(), base)
	}
}

func TestRecentCorrectionsEmpty(t *testing.T) {
	db := newTestDB(t)

	recent, err := RecentCorrections(db, 20)
	if err != nil {
		t.Fatalf("RecentCorrections failed: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected no corrections, got %d", len(recent))
	}
}
