package ingest

import (
	"context"
	"database/sql"
	"log/slog"
)

type Importer struct {
	DB     *sql.DB
	Driver string
	Log    *slog.Logger
}

type Stats struct {
	Volumes int `json:"volumes"`
	Pages   int `json:"pages"`
	Blocks  int `json:"blocks"`
	Skipped int `json:"skipped"`
}

func NewImporter(db *sql.DB, driver string, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{DB: db, Driver: driver, Log: log}
}

// ImportManga imports every volume found for slug under root.
func (im *Importer) ImportManga(ctx context.Context, root, slug string) (Stats, error) {
	var total Stats
	volumes, err := ScanVolumes(root, slug)
	if err != nil {
		return total, err
	}
	for _, v := range volumes {
		s, err := im.ImportVolume(ctx, root, slug, v)
		total.Volumes++
		total.Pages += s.Pages
		total.Blocks += s.Blocks
		total.Skipped += s.Skipped
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ImportVolume imports one volume directory. Unreadable page files are logged
// and skipped; database errors stop the import.
func (im *Importer) ImportVolume(ctx context.Context, root, slug string, volume int) (Stats, error) {
	stats := Stats{Volumes: 1}
	files, err := ScanPages(root, slug, volume)
	if err != nil {
		return stats, err
	}

	mangaID, err := im.EnsureManga(ctx, slug)
	if err != nil {
		return stats, err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		page, err := ReadPage(f.Path)
		if err != nil {
			im.Log.Warn("skipping page file", "path", f.Path, "error", err)
			stats.Skipped++
			continue
		}
		n, err := im.SavePage(ctx, mangaID, volume, f.Number, page)
		if err != nil {
			return stats, err
		}
		stats.Pages++
		stats.Blocks += n
	}

	im.Log.Info("volume imported",
		"manga_slug", slug, "volume", volume, "pages", stats.Pages, "blocks", stats.Blocks, "skipped", stats.Skipped)
	return stats, nil
}
