package kanji

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"bilingualmanga/pkg/database"
	"bilingualmanga/pkg/models"
)

const importBatch = 500

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

// Save upserts kanji details keyed by text.
func (r *Repo) Save(ctx context.Context, details []models.KanjiDetail) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, database.Rebind(r.Driver, `
		INSERT INTO kanji_detail (text, freq, grade, strokes, readings, meanings)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(text) DO UPDATE SET
		  freq = excluded.freq,
		  grade = excluded.grade,
		  strokes = excluded.strokes,
		  readings = excluded.readings,
		  meanings = excluded.meanings
	`))
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, d := range details {
		readings, err := json.Marshal(d.Readings)
		if err != nil {
			return fmt.Errorf("marshal readings for %s: %w", d.Text, err)
		}
		meanings, err := json.Marshal(d.Meanings)
		if err != nil {
			return fmt.Errorf("marshal meanings for %s: %w", d.Text, err)
		}
		if _, err := stmt.ExecContext(ctx,
			d.Text,
			d.Freq,
			d.Grade,
			d.Strokes,
			string(readings),
			string(meanings),
		); err != nil {
			return fmt.Errorf("exec upsert for %s: %w", d.Text, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Import loads a KANJIDIC2 document in batches and returns the number of
// kanji written.
func (r *Repo) Import(ctx context.Context, src io.Reader) (int, error) {
	batch := make([]models.KanjiDetail, 0, importBatch)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.Save(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		r.Log.Debug("kanji batch saved", "count", len(batch), "total", total)
		batch = batch[:0]
		return nil
	}

	err := ParseKanjidic(src, func(d models.KanjiDetail) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch = append(batch, d)
		if len(batch) == importBatch {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	r.Log.Info("kanji import finished", "count", total)
	return total, nil
}

// Get returns one kanji detail, or (nil, nil) if it is unknown.
func (r *Repo) Get(ctx context.Context, text string) (*models.KanjiDetail, error) {
	row := r.DB.QueryRowContext(ctx, database.Rebind(r.Driver, `
		SELECT text, freq, grade, strokes, readings, meanings
		FROM kanji_detail
		WHERE text = ?
	`), text)

	var (
		d        models.KanjiDetail
		freq     sql.NullInt64
		grade    sql.NullInt64
		readings string
		meanings string
	)
	if err := row.Scan(&d.Text, &freq, &grade, &d.Strokes, &readings, &meanings); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan kanji: %w", err)
	}
	if freq.Valid {
		f := int(freq.Int64)
		d.Freq = &f
	}
	if grade.Valid {
		g := int(grade.Int64)
		d.Grade = &g
	}
	if err := json.Unmarshal([]byte(readings), &d.Readings); err != nil {
		return nil, fmt.Errorf("decode readings for %s: %w", text, err)
	}
	if err := json.Unmarshal([]byte(meanings), &d.Meanings); err != nil {
		return nil, fmt.Errorf("decode meanings for %s: %w", text, err)
	}
	return &d, nil
}
