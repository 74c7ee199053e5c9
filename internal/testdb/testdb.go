// Package testdb opens migrated sqlite databases for package tests.
package testdb

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"bilingualmanga/pkg/database"
)

// Open returns a migrated sqlite database under t.TempDir, closed on cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	cfg := database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db, cfg.Driver); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func Manga(t *testing.T, db *sql.DB, slug string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO manga (slug, en_name) VALUES (?, ?)`, slug, slug)
	if err != nil {
		t.Fatalf("insert manga: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func Page(t *testing.T, db *sql.DB, mangaID int64, volume, page int) int64 {
	t.Helper()
	res, err := db.Exec(`
		INSERT INTO manga_page (manga_id, volume_num, page_num, img_width, img_height)
		VALUES (?, ?, ?, 1700, 2400)
	`, mangaID, volume, page)
	if err != nil {
		t.Fatalf("insert page: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Bubble is the set of columns a test usually cares about.
type Bubble struct {
	BlockNum     int
	Lines        []string
	Segmentation *string
	Kanji        []string
}

func InsertBubble(t *testing.T, db *sql.DB, pageID int64, b Bubble) int64 {
	t.Helper()
	lines, _ := json.Marshal(b.Lines)
	var kanji any
	if b.Kanji != nil {
		raw, _ := json.Marshal(b.Kanji)
		kanji = string(raw)
	}
	var seg any
	if b.Segmentation != nil {
		seg = *b.Segmentation
	}
	res, err := db.Exec(`
		INSERT INTO speech_bubble
			(manga_page_id, block_num, box, vertical, font_size, line_coords, lines, segmentation, kanji)
		VALUES (?, ?, '[100,200,160,320]', 1, 24.5, '[[[100,200],[160,200],[160,320],[100,320]]]', ?, ?, ?)
	`, pageID, b.BlockNum, string(lines), seg, kanji)
	if err != nil {
		t.Fatalf("insert bubble: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func Kanji(t *testing.T, db *sql.DB, text string, strokes int, meanings ...string) {
	t.Helper()
	m, _ := json.Marshal(meanings)
	if meanings == nil {
		m = []byte("[]")
	}
	if _, err := db.Exec(`
		INSERT INTO kanji_detail (text, strokes, readings, meanings) VALUES (?, ?, '[]', ?)
	`, text, strokes, string(m)); err != nil {
		t.Fatalf("insert kanji: %v", err)
	}
}

func Ptr(s string) *string { return &s }
