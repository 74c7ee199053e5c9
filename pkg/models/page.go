package models

import (
	"encoding/json"

	"bilingualmanga/internal/segmentation"
)

// PageOcrResult is everything the reader needs to overlay text on one page.
// Coordinates stay in source pixel space; the view converts them using
// ImgWidth and ImgHeight.
type PageOcrResult struct {
	ImgWidth   int     `json:"img_width"`
	ImgHeight  int     `json:"img_height"`
	ChapterNum *int    `json:"chapter_num,omitempty"`
	Blocks     []Block `json:"blocks"`
}

// Block is one OCR-detected speech bubble.
type Block struct {
	ID          int64          `json:"id"`
	MangaPageID int64          `json:"manga_page_id"`
	BlockNum    int            `json:"block_num"`
	Box         [4]float64     `json:"box"` // left, top, right, bottom
	Vertical    bool           `json:"vertical"`
	FontSize    float64        `json:"font_size"`
	LineCoords  [][][2]float64 `json:"line_coords"`
	Lines       []string       `json:"lines"`

	// Segmentation is the stored analysis, verbatim. It is null until the
	// segmentation job has run for this block, or when the stored value is
	// unusable (see SegmentationError).
	Segmentation      json.RawMessage `json:"segmentation"`
	SegmentationError string          `json:"segmentation_error,omitempty"`
	Kanji             []KanjiDetail   `json:"kanji"`

	// Parsed is set only when Segmentation decoded and validated.
	Parsed segmentation.Result `json:"-"`
}
