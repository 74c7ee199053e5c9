package ocr

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"bilingualmanga/internal/segmentation"
	"bilingualmanga/pkg/database"
	"bilingualmanga/pkg/models"
)

type Repo struct {
	DB     *sql.DB
	Driver string
	Log    *slog.Logger
}

func NewRepo(db *sql.DB, driver string, log *slog.Logger) *Repo {
	if log == nil {
		log = slog.Default()
	}
	return &Repo{DB: db, Driver: driver, Log: log}
}

// The page CTE resolves the (slug, volume, page) key; bubbles are left-joined
// so a page without bubbles still yields one row with an empty block list.
// Segmentation is embedded as a JSON string and decoded per block, so one
// corrupt value cannot fail the statement.
const pageOcrSQLite = `
	WITH page AS (
		SELECT mp.id, mp.img_width, mp.img_height, mp.chapter_num
		FROM manga_page mp
		INNER JOIN manga m ON m.id = mp.manga_id
		WHERE m.slug = ? AND mp.volume_num = ? AND mp.page_num = ?
	),
	bubble_kanji AS (
		SELECT sb.id AS id,
			json_group_array(json_object(
				'text', kd.text,
				'freq', kd.freq,
				'grade', kd.grade,
				'strokes', kd.strokes,
				'readings', json(CASE WHEN json_valid(kd.readings) THEN kd.readings ELSE 'null' END),
				'meanings', json(CASE WHEN json_valid(kd.meanings) THEN kd.meanings ELSE 'null' END)
			) ORDER BY je.key) AS kanji
		FROM speech_bubble sb
		INNER JOIN page p ON p.id = sb.manga_page_id
		INNER JOIN json_each(CASE WHEN json_valid(sb.kanji) THEN sb.kanji ELSE '[]' END) je
		INNER JOIN kanji_detail kd ON kd.text = je.value
		GROUP BY sb.id
	)
	SELECT p.img_width, p.img_height, p.chapter_num,
		COALESCE(
			json_group_array(json_object(
				'id', sb.id,
				'manga_page_id', sb.manga_page_id,
				'block_num', sb.block_num,
				'box', json(sb.box),
				'vertical', json(CASE WHEN sb.vertical THEN 'true' ELSE 'false' END),
				'font_size', sb.font_size,
				'line_coords', json(sb.line_coords),
				'lines', json(sb.lines),
				'segmentation', sb.segmentation,
				'kanji', json(bk.kanji)
			) ORDER BY sb.block_num ASC) FILTER (WHERE sb.id IS NOT NULL),
			'[]'
		) AS blocks
	FROM page p
	LEFT JOIN speech_bubble sb ON sb.manga_page_id = p.id
	LEFT JOIN bubble_kanji bk ON bk.id = sb.id
	GROUP BY p.id, p.img_width, p.img_height, p.chapter_num
`

const pageOcrPostgres = `
	WITH page AS (
		SELECT mp.id, mp.img_width, mp.img_height, mp.chapter_num
		FROM manga_page mp
		INNER JOIN manga m ON m.id = mp.manga_id
		WHERE m.slug = $1 AND mp.volume_num = $2 AND mp.page_num = $3
	),
	bubble_kanji AS (
		SELECT sb.id AS id,
			json_agg(json_build_object(
				'text', kd.text,
				'freq', kd.freq,
				'grade', kd.grade,
				'strokes', kd.strokes,
				'readings', kd.readings,
				'meanings', kd.meanings
			) ORDER BY ke.ordinality) AS kanji
		FROM speech_bubble sb
		INNER JOIN page p ON p.id = sb.manga_page_id
		CROSS JOIN LATERAL jsonb_array_elements_text(
			CASE WHEN jsonb_typeof(sb.kanji) = 'array' THEN sb.kanji ELSE '[]'::jsonb END
		) WITH ORDINALITY AS ke(value, ordinality)
		INNER JOIN kanji_detail kd ON kd.text = ke.value
		GROUP BY sb.id
	)
	SELECT p.img_width, p.img_height, p.chapter_num,
		COALESCE(
			json_agg(json_build_object(
				'id', sb.id,
				'manga_page_id', sb.manga_page_id,
				'block_num', sb.block_num,
				'box', sb.box,
				'vertical', sb.vertical,
				'font_size', sb.font_size,
				'line_coords', sb.line_coords,
				'lines', sb.lines,
				'segmentation', sb.segmentation::text,
				'kanji', bk.kanji
			) ORDER BY sb.block_num ASC) FILTER (WHERE sb.id IS NOT NULL),
			'[]'::json
		)::text AS blocks
	FROM page p
	LEFT JOIN speech_bubble sb ON sb.manga_page_id = p.id
	LEFT JOIN bubble_kanji bk ON bk.id = sb.id
	GROUP BY p.id, p.img_width, p.img_height, p.chapter_num
`

type blockRow struct {
	ID           int64                `json:"id"`
	MangaPageID  int64                `json:"manga_page_id"`
	BlockNum     int                  `json:"block_num"`
	Box          [4]float64           `json:"box"`
	Vertical     bool                 `json:"vertical"`
	FontSize     float64              `json:"font_size"`
	LineCoords   [][][2]float64       `json:"line_coords"`
	Lines        []string             `json:"lines"`
	Segmentation *string              `json:"segmentation"`
	Kanji        []models.KanjiDetail `json:"kanji"`
}

// GetPageOcr returns the page's image size and its speech bubbles ordered by
// block number. A missing page returns (nil, nil). A page with no bubbles
// returns an empty, non-nil Blocks slice.
func (r *Repo) GetPageOcr(ctx context.Context, mangaSlug string, volumeNumber, pageNumber int) (*models.PageOcrResult, error) {
	query := pageOcrSQLite
	if r.Driver == database.DriverPostgres {
		query = pageOcrPostgres
	}

	tx, err := r.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin get page ocr: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query, mangaSlug, volumeNumber, pageNumber)
	if err != nil {
		return nil, fmt.Errorf("query page ocr: %w", err)
	}
	defer rows.Close()

	var (
		res       models.PageOcrResult
		chapter   sql.NullInt64
		blocksRaw string
		n         int
	)
	for rows.Next() {
		n++
		if err := rows.Scan(&res.ImgWidth, &res.ImgHeight, &chapter, &blocksRaw); err != nil {
			return nil, fmt.Errorf("scan page ocr: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows page ocr: %w", err)
	}

	switch {
	case n == 0:
		return nil, nil
	case n > 1:
		r.Log.Warn("page key matched more than one page",
			"manga_slug", mangaSlug, "volume", volumeNumber, "page", pageNumber, "matches", n)
		return nil, nil
	}

	if chapter.Valid {
		c := int(chapter.Int64)
		res.ChapterNum = &c
	}

	var decoded []blockRow
	if err := json.Unmarshal([]byte(blocksRaw), &decoded); err != nil {
		return nil, fmt.Errorf("decode page blocks: %w", err)
	}

	res.Blocks = make([]models.Block, 0, len(decoded))
	for _, br := range decoded {
		b := models.Block{
			ID:          br.ID,
			MangaPageID: br.MangaPageID,
			BlockNum:    br.BlockNum,
			Box:         br.Box,
			Vertical:    br.Vertical,
			FontSize:    br.FontSize,
			LineCoords:  br.LineCoords,
			Lines:       br.Lines,
			Kanji:       br.Kanji,
		}
		if br.Segmentation != nil {
			r.attachSegmentation(&b, []byte(*br.Segmentation))
		}
		res.Blocks = append(res.Blocks, b)
	}

	return &res, nil
}

// attachSegmentation parses stored segmentation and keeps it verbatim when it
// is usable. Otherwise the block is returned without segmentation and the
// reason is recorded on the block only.
func (r *Repo) attachSegmentation(b *models.Block, raw []byte) {
	if !json.Valid(raw) {
		b.SegmentationError = segmentation.ErrMalformed.Error() + ": invalid json"
		r.Log.Warn("stored segmentation is not valid json", "block_id", b.ID, "block_num", b.BlockNum)
		return
	}
	parsed, err := segmentation.Parse(raw)
	if err != nil {
		b.SegmentationError = err.Error()
		r.Log.Warn("stored segmentation rejected", "block_id", b.ID, "block_num", b.BlockNum, "error", err)
		return
	}
	b.Segmentation = json.RawMessage(raw)
	b.Parsed = parsed
}

// GetBlock returns one block of a page, or (nil, nil) when the page or the
// block does not exist.
func (r *Repo) GetBlock(ctx context.Context, mangaSlug string, volumeNumber, pageNumber, blockNum int) (*models.Block, error) {
	page, err := r.GetPageOcr(ctx, mangaSlug, volumeNumber, pageNumber)
	if err != nil || page == nil {
		return nil, err
	}
	for i := range page.Blocks {
		if page.Blocks[i].BlockNum == blockNum {
			return &page.Blocks[i], nil
		}
	}
	return nil, nil
}

// BlockWords flattens a block's segmentation. Blocks without usable
// segmentation yield an empty list; the reason, if any, is on
// block.SegmentationError.
func BlockWords(b *models.Block) []segmentation.RenderWord {
	if b == nil || b.Parsed == nil {
		return []segmentation.RenderWord{}
	}
	words, err := segmentation.Flatten(b.Parsed)
	if err != nil {
		b.SegmentationError = err.Error()
		return []segmentation.RenderWord{}
	}
	return words
}
