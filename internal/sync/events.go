package sync

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSegmentationUpdated = "segmentation.updated"
	EventFlashcardAdded      = "flashcard.added"
)

// Event is pushed to every connected feed client as one JSON line.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	MangaSlug string    `json:"manga_slug"`
	Volume    int       `json:"volume"`
	Page      *int      `json:"page,omitempty"`
	BlockNum  *int      `json:"block_num,omitempty"`
	Word      string    `json:"word,omitempty"`
	Updated   int       `json:"updated,omitempty"`
	Failed    int       `json:"failed,omitempty"`
	At        time.Time `json:"at"`
}

func NewEvent(typ, mangaSlug string, volume int) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		MangaSlug: mangaSlug,
		Volume:    volume,
		At:        time.Now().UTC(),
	}
}
