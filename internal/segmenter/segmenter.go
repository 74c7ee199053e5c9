// Package segmenter runs morphological segmentation over every speech bubble
// of a volume and stores the validated results.
package segmenter

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bilingualmanga/internal/ocr"
	"bilingualmanga/internal/segmentation"
	"bilingualmanga/internal/sync"
	"bilingualmanga/pkg/database"
)

var (
	ErrNoBlocks    = errors.New("volume has no speech bubbles")
	ErrUnavailable = errors.New("no segmentation analyzer available")
)

// Analyzer turns one block of text into raw segmentation JSON.
type Analyzer interface {
	Segment(ctx context.Context, text string) (json.RawMessage, error)
}

// RemoteAnalyzer is an Analyzer with a readiness probe.
type RemoteAnalyzer interface {
	Analyzer
	Health(ctx context.Context) error
}

type BlockLister interface {
	ListVolumeBlocks(ctx context.Context, mangaSlug string, volumeNumber int) ([]ocr.VolumeBlock, error)
}

type Publisher interface {
	Publish(e sync.Event)
}

type Stats struct {
	Analyzer string        `json:"analyzer"`
	Total    int           `json:"total"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Took     time.Duration `json:"took_ns"`
}

type Job struct {
	DB          *sql.DB
	Driver      string
	Blocks      BlockLister
	Remote      RemoteAnalyzer
	Local       Analyzer // used when Remote is unhealthy; may be nil
	Events      Publisher
	Concurrency int
	Log         *slog.Logger
}

// Run segments the blocks of one volume. Blocks that already carry
// segmentation are skipped unless force is set. A failing block is logged and
// counted; it never aborts the rest of the volume.
func (j *Job) Run(ctx context.Context, mangaSlug string, volume int, force bool) (Stats, error) {
	start := time.Now()
	log := j.logger().With("manga_slug", mangaSlug, "volume", volume)

	blocks, err := j.Blocks.ListVolumeBlocks(ctx, mangaSlug, volume)
	if err != nil {
		return Stats{}, err
	}
	if len(blocks) == 0 {
		return Stats{}, ErrNoBlocks
	}

	analyzer, name, err := j.pickAnalyzer(ctx, log)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Analyzer: name, Total: len(blocks)}

	var mu gosync.Mutex
	count := func(f func()) {
		mu.Lock()
		f()
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := j.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, b := range blocks {
		if b.HasSegmentation && !force {
			count(func() { stats.Skipped++ })
			continue
		}
		text := strings.Join(b.Lines, "\n")
		if strings.TrimSpace(text) == "" {
			count(func() { stats.Skipped++ })
			continue
		}

		g.Go(func() error {
			blog := log.With("page", b.PageNum, "block_num", b.BlockNum)
			if err := j.segmentBlock(gctx, analyzer, b.ID, text); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				blog.Warn("block segmentation failed", "error", err)
				count(func() { stats.Failed++ })
				return nil
			}
			count(func() { stats.Updated++ })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.Took = time.Since(start)
	log.Info("volume segmented",
		"analyzer", name, "updated", stats.Updated, "skipped", stats.Skipped, "failed", stats.Failed, "took", stats.Took)

	if j.Events != nil && stats.Updated > 0 {
		e := sync.NewEvent(sync.EventSegmentationUpdated, mangaSlug, volume)
		e.Updated, e.Failed = stats.Updated, stats.Failed
		j.Events.Publish(e)
	}
	return stats, nil
}

func (j *Job) pickAnalyzer(ctx context.Context, log *slog.Logger) (Analyzer, string, error) {
	if j.Remote != nil {
		err := j.Remote.Health(ctx)
		if err == nil {
			return j.Remote, "ichiran", nil
		}
		log.Warn("ichiran health check failed", "error", err)
	}
	if j.Local != nil {
		return j.Local, "kagome", nil
	}
	return nil, "", ErrUnavailable
}

func (j *Job) segmentBlock(ctx context.Context, a Analyzer, blockID int64, text string) error {
	raw, err := a.Segment(ctx, text)
	if err != nil {
		return err
	}
	r, err := segmentation.Parse(raw)
	if err != nil {
		return fmt.Errorf("analyzer output rejected: %w", err)
	}
	if r == nil {
		return errors.New("analyzer returned no segmentation")
	}
	return j.save(ctx, blockID, raw)
}

func (j *Job) save(ctx context.Context, blockID int64, raw json.RawMessage) error {
	res, err := j.DB.ExecContext(ctx, database.Rebind(j.Driver, `
		UPDATE speech_bubble SET segmentation = ? WHERE id = ?
	`), string(raw), blockID)
	if err != nil {
		return fmt.Errorf("update segmentation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update segmentation: block %d no longer exists", blockID)
	}
	return nil
}

func (j *Job) logger() *slog.Logger {
	if j.Log == nil {
		return slog.Default()
	}
	return j.Log
}
