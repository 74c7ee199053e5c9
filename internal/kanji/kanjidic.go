package kanji

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"bilingualmanga/pkg/models"
)

type kanjidicCharacter struct {
	Literal string `xml:"literal"`
	Misc    struct {
		Grade       *int  `xml:"grade"`
		StrokeCount []int `xml:"stroke_count"`
		Freq        *int  `xml:"freq"`
	} `xml:"misc"`
	ReadingMeaning struct {
		RMGroup []struct {
			Reading []struct {
				Value string `xml:",chardata"`
				Type  string `xml:"r_type,attr"`
			} `xml:"reading"`
			Meaning []struct {
				Value string `xml:",chardata"`
				Lang  string `xml:"m_lang,attr"`
			} `xml:"meaning"`
		} `xml:"rmgroup"`
	} `xml:"reading_meaning"`
}

func (c kanjidicCharacter) detail() models.KanjiDetail {
	d := models.KanjiDetail{
		Text:     c.Literal,
		Freq:     c.Misc.Freq,
		Grade:    c.Misc.Grade,
		Readings: make([]models.KanjiReading, 0),
		Meanings: make([]string, 0),
	}
	// the first stroke_count is the accepted one; later ones are common miscounts
	if len(c.Misc.StrokeCount) > 0 {
		d.Strokes = c.Misc.StrokeCount[0]
	}
	for _, g := range c.ReadingMeaning.RMGroup {
		for _, r := range g.Reading {
			if r.Type == "ja_on" || r.Type == "ja_kun" {
				d.Readings = append(d.Readings, models.KanjiReading{Kana: strings.TrimSpace(r.Value), Type: r.Type})
			}
		}
		for _, m := range g.Meaning {
			if m.Lang == "" || m.Lang == "en" {
				d.Meanings = append(d.Meanings, strings.TrimSpace(m.Value))
			}
		}
	}
	return d
}

// ParseKanjidic streams <character> elements from a KANJIDIC2 document and
// calls fn for each single-rune literal. Decoding stops at the first error
// returned by fn.
func ParseKanjidic(r io.Reader, fn func(models.KanjiDetail) error) error {
	d := xml.NewDecoder(r)
	// KANJIDIC2 declares entities in its DTD that encoding/xml does not expand.
	d.Strict = false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse kanjidic: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "character" {
			continue
		}
		var c kanjidicCharacter
		if err := d.DecodeElement(&c, &se); err != nil {
			return fmt.Errorf("decode character: %w", err)
		}
		if utf8.RuneCountInString(c.Literal) != 1 {
			continue
		}
		if err := fn(c.detail()); err != nil {
			return err
		}
	}
}
