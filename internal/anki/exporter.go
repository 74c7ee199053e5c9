package anki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilingualmanga/internal/ocr"
	"bilingualmanga/internal/segmentation"
	"bilingualmanga/internal/sync"
	"bilingualmanga/pkg/models"
)

var (
	ErrNotFound    = errors.New("block not found")
	ErrWordIndex   = errors.New("word index out of range")
	ErrPunctuation = errors.New("punctuation cannot be exported")
)

type BlockGetter interface {
	GetBlock(ctx context.Context, mangaSlug string, volumeNumber, pageNumber, blockNum int) (*models.Block, error)
}

type Notes interface {
	AddNote(ctx context.Context, n Note) (int64, error)
	CanAddNotes(ctx context.Context, notes []Note) ([]bool, error)
	Sync(ctx context.Context) error
}

type Publisher interface {
	Publish(e sync.Event)
}

// BlockRef addresses one speech bubble.
type BlockRef struct {
	MangaSlug string
	Volume    int
	Page      int
	BlockNum  int
}

type Exporter struct {
	Blocks BlockGetter
	Anki   Notes
	Deck   string
	Model  string
	Tags   []string
	Events Publisher
	Log    *slog.Logger
}

func (e *Exporter) note(front, back string, allowDuplicate bool) Note {
	fields := map[string]string{"Front": front}
	if back != "" {
		fields["Back"] = back
	}
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return Note{
		DeckName:  e.Deck,
		ModelName: e.Model,
		Fields:    fields,
		Tags:      tags,
		Options: NoteOptions{
			AllowDuplicate: allowDuplicate,
			DuplicateScope: "collection",
		},
	}
}

func (e *Exporter) words(ctx context.Context, ref BlockRef) ([]segmentation.RenderWord, error) {
	b, err := e.Blocks.GetBlock(ctx, ref.MangaSlug, ref.Volume, ref.Page, ref.BlockNum)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, ErrNotFound
	}
	return ocr.BlockWords(b), nil
}

// CanAdd returns one flag per flattened word of the block. Punctuation is
// never sent to Anki and always reports false.
func (e *Exporter) CanAdd(ctx context.Context, ref BlockRef) ([]bool, error) {
	words, err := e.words(ctx, ref)
	if err != nil {
		return nil, err
	}

	out := make([]bool, len(words))
	idx := make([]int, 0, len(words))
	notes := make([]Note, 0, len(words))
	for i, w := range words {
		if w.IsPunctuation {
			continue
		}
		idx = append(idx, i)
		notes = append(notes, e.note(w.Text, "", false))
	}

	res, err := e.Anki.CanAddNotes(ctx, notes)
	if err != nil {
		return nil, fmt.Errorf("can add notes: %w", err)
	}
	for k, i := range idx {
		out[i] = res[k]
	}
	return out, nil
}

// Add exports word wordIdx of the block as a new note, then syncs. A failed
// sync is logged; the note is already in the collection.
func (e *Exporter) Add(ctx context.Context, ref BlockRef, wordIdx int) (int64, error) {
	words, err := e.words(ctx, ref)
	if err != nil {
		return 0, err
	}
	if wordIdx < 0 || wordIdx >= len(words) {
		return 0, ErrWordIndex
	}
	w := words[wordIdx]
	if w.IsPunctuation {
		return 0, ErrPunctuation
	}

	pre, post := segmentation.SentenceContext(words, wordIdx)
	back, err := BackHTML(pre, post, w)
	if err != nil {
		return 0, err
	}
	id, err := e.Anki.AddNote(ctx, e.note(w.Text, back, true))
	if err != nil {
		return 0, fmt.Errorf("add note: %w", err)
	}

	log := e.logger().With("manga_slug", ref.MangaSlug, "volume", ref.Volume, "page", ref.Page, "block_num", ref.BlockNum)
	log.Info("flashcard added", "word", w.Text, "note_id", id)
	if err := e.Anki.Sync(ctx); err != nil {
		log.Warn("anki sync failed", "error", err)
	}

	if e.Events != nil {
		ev := sync.NewEvent(sync.EventFlashcardAdded, ref.MangaSlug, ref.Volume)
		page, block := ref.Page, ref.BlockNum
		ev.Page, ev.BlockNum, ev.Word = &page, &block, w.Text
		e.Events.Publish(ev)
	}
	return id, nil
}

func (e *Exporter) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}
