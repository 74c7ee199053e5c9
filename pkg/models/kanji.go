package models

type KanjiDetail struct {
	Text     string         `json:"text"`
	Freq     *int           `json:"freq,omitempty"`
	Grade    *int           `json:"grade,omitempty"`
	Strokes  int            `json:"strokes"`
	Readings []KanjiReading `json:"readings"`
	Meanings []string       `json:"meanings"`
}

type KanjiReading struct {
	Kana string `json:"kana"`
	Type string `json:"type"` // ja_on or ja_kun
}
