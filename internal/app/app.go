// Package app wires configuration into the repositories and jobs shared by
// the api-server, grpc-server and cli binaries.
package app

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"bilingualmanga/internal/anki"
	"bilingualmanga/internal/auth"
	"bilingualmanga/internal/ichiran"
	"bilingualmanga/internal/ingest"
	"bilingualmanga/internal/kanji"
	"bilingualmanga/internal/localseg"
	"bilingualmanga/internal/manga"
	"bilingualmanga/internal/ocr"
	"bilingualmanga/internal/segmenter"
	"bilingualmanga/internal/sync"
	"bilingualmanga/pkg/database"
	"bilingualmanga/pkg/utils"
)

func NewLogger(w io.Writer, cfg utils.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.Log.Level}))
}

type App struct {
	Cfg    utils.Config
	Log    *slog.Logger
	DB     *sql.DB
	Hub    *sync.Hub
	Manga  *manga.Repo
	Ocr    *ocr.Repo
	Kanji  *kanji.Repo
	Tokens auth.TokenService
}

// Open connects to and migrates the configured database.
func Open(cfg utils.Config, log *slog.Logger) (*App, error) {
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	return &App{
		Cfg:   cfg,
		Log:   log,
		DB:    db,
		Hub:   sync.NewHub(log),
		Manga: manga.NewRepo(db, cfg.DB.Driver),
		Ocr:   ocr.NewRepo(db, cfg.DB.Driver, log),
		Kanji: kanji.NewRepo(db, cfg.DB.Driver, log),
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Duration: cfg.Auth.JWTDuration,
		},
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

func (a *App) Importer() *ingest.Importer {
	return ingest.NewImporter(a.DB, a.Cfg.DB.Driver, a.Log)
}

// SegmentJob prefers ichiran and falls back to the bundled kagome
// segmenter when segment.local_fallback is set.
func (a *App) SegmentJob() (*segmenter.Job, error) {
	job := &segmenter.Job{
		DB:          a.DB,
		Driver:      a.Cfg.DB.Driver,
		Blocks:      a.Ocr,
		Events:      a.Hub,
		Concurrency: a.Cfg.Segment.Concurrency,
		Log:         a.Log,
	}
	if a.Cfg.Ichiran.URL != "" {
		job.Remote = ichiran.NewClient(a.Cfg.Ichiran.URL, a.Cfg.Ichiran.Timeout, a.Log)
	}
	if a.Cfg.Segment.LocalFallback {
		local, err := localseg.New()
		if err != nil {
			return nil, fmt.Errorf("kagome tokenizer: %w", err)
		}
		job.Local = local
	}
	return job, nil
}

func (a *App) Exporter() *anki.Exporter {
	return &anki.Exporter{
		Blocks: a.Ocr,
		Anki:   anki.NewClient(a.Cfg.Anki.URL),
		Deck:   a.Cfg.Anki.Deck,
		Model:  a.Cfg.Anki.Model,
		Tags:   a.Cfg.Anki.Tags,
		Events: a.Hub,
		Log:    a.Log,
	}
}
