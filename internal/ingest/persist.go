package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"bilingualmanga/internal/kanji"
	"bilingualmanga/internal/segmentation"
	"bilingualmanga/pkg/database"
)

// EnsureManga returns the id of the manga with slug, creating it if needed.
func (im *Importer) EnsureManga(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := im.DB.QueryRowContext(ctx, database.Rebind(im.Driver, `
		INSERT INTO manga (slug, en_name)
		VALUES (?, ?)
		ON CONFLICT(slug) DO UPDATE SET slug = excluded.slug
		RETURNING id
	`), slug, slug).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert manga %s: %w", slug, err)
	}
	return id, nil
}

// SavePage upserts one page and its bubbles in a single transaction. Bubbles
// are keyed by (page, block_num). Stored segmentation survives a re-import
// when the bubble's lines did not change, unless the file carries its own.
// Bubbles beyond the file's block count are removed.
func (im *Importer) SavePage(ctx context.Context, mangaID int64, volume, pageNum int, p *Page) (int, error) {
	tx, err := im.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var pageID int64
	if err := tx.QueryRowContext(ctx, database.Rebind(im.Driver, `
		INSERT INTO manga_page (manga_id, volume_num, page_num, img_width, img_height)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(manga_id, volume_num, page_num) DO UPDATE SET
		  img_width = excluded.img_width,
		  img_height = excluded.img_height
		RETURNING id
	`), mangaID, volume, pageNum, p.ImgWidth, p.ImgHeight).Scan(&pageID); err != nil {
		return 0, fmt.Errorf("upsert page %d/%d: %w", volume, pageNum, err)
	}

	stmt, err := tx.PrepareContext(ctx, database.Rebind(im.Driver, `
		INSERT INTO speech_bubble
		  (manga_page_id, block_num, box, vertical, font_size, line_coords, lines, segmentation, kanji)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(manga_page_id, block_num) DO UPDATE SET
		  box = excluded.box,
		  vertical = excluded.vertical,
		  font_size = excluded.font_size,
		  line_coords = excluded.line_coords,
		  lines = excluded.lines,
		  segmentation = CASE
		    WHEN excluded.segmentation IS NOT NULL THEN excluded.segmentation
		    WHEN speech_bubble.lines = excluded.lines THEN speech_bubble.segmentation
		    ELSE NULL
		  END,
		  kanji = excluded.kanji
	`))
	if err != nil {
		return 0, fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for i, b := range p.Blocks {
		box, _ := json.Marshal(b.Box)
		coords, err := json.Marshal(nonNilCoords(b.LinesCoords))
		if err != nil {
			return 0, fmt.Errorf("marshal coords for block %d: %w", i, err)
		}
		lines, err := json.Marshal(nonNilLines(b.Lines))
		if err != nil {
			return 0, fmt.Errorf("marshal lines for block %d: %w", i, err)
		}
		kanjiList, _ := json.Marshal(kanji.Extract(b.Lines))

		if _, err := stmt.ExecContext(ctx,
			pageID,
			i,
			string(box),
			b.Vertical,
			b.FontSize,
			string(coords),
			string(lines),
			im.fileSegmentation(b, volume, pageNum, i),
			string(kanjiList),
		); err != nil {
			return 0, fmt.Errorf("exec upsert for block %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, database.Rebind(im.Driver, `
		DELETE FROM speech_bubble WHERE manga_page_id = ? AND block_num >= ?
	`), pageID, len(p.Blocks)); err != nil {
		return 0, fmt.Errorf("delete stale blocks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(p.Blocks), nil
}

// fileSegmentation returns the block's segmentation as a string when the file
// carries a usable one, and nil otherwise.
func (im *Importer) fileSegmentation(b Block, volume, pageNum, blockNum int) any {
	if len(b.Segmentation) == 0 {
		return nil
	}
	r, err := segmentation.Parse(b.Segmentation)
	if err != nil {
		im.Log.Warn("ignoring segmentation from file",
			"volume", volume, "page", pageNum, "block_num", blockNum, "error", err)
		return nil
	}
	if r == nil {
		return nil
	}
	return string(b.Segmentation)
}

func nonNilLines(l []string) []string {
	if l == nil {
		return []string{}
	}
	return l
}

func nonNilCoords(c [][][2]float64) [][][2]float64 {
	if c == nil {
		return [][][2]float64{}
	}
	return c
}
