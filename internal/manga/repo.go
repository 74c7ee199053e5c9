package manga

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bilingualmanga/pkg/database"
	"bilingualmanga/pkg/models"
)

type Repo struct {
	DB     *sql.DB
	Driver string
}

type ListQuery struct {
	Q      string // keyword search in slug, titles and author
	Limit  int
	Offset int
}

func NewRepo(db *sql.DB, driver string) *Repo {
	return &Repo{DB: db, Driver: driver}
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (*models.Manga, error) {
	row := r.DB.QueryRowContext(ctx, database.Rebind(r.Driver, `
		SELECT id, slug, en_name, jp_name, author
		FROM manga
		WHERE slug = ?
	`), slug)

	m, err := scanManga(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getBySlug: %w", err)
	}
	return m, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	row := r.DB.QueryRowContext(ctx, database.Rebind(r.Driver, sqlStr), args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Manga, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, database.Rebind(r.Driver, sqlStr), args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Manga, 0)
	for rows.Next() {
		m, err := scanManga(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ListVolumes returns the distinct volume numbers of a manga in ascending order.
func (r *Repo) ListVolumes(ctx context.Context, slug string) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, database.Rebind(r.Driver, `
		SELECT DISTINCT mp.volume_num
		FROM manga_page mp
		INNER JOIN manga m ON m.id = mp.manga_id
		WHERE m.slug = ?
		ORDER BY mp.volume_num ASC
	`), slug)
	if err != nil {
		return nil, fmt.Errorf("volumes query: %w", err)
	}
	defer rows.Close()

	out := make([]int, 0)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("volumes scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ListPages returns the pages of one volume in reading order.
func (r *Repo) ListPages(ctx context.Context, slug string, volume int) ([]models.PageRef, error) {
	rows, err := r.DB.QueryContext(ctx, database.Rebind(r.Driver, `
		SELECT mp.volume_num, mp.page_num, mp.chapter_num
		FROM manga_page mp
		INNER JOIN manga m ON m.id = mp.manga_id
		WHERE m.slug = ? AND mp.volume_num = ?
		ORDER BY mp.page_num ASC
	`), slug, volume)
	if err != nil {
		return nil, fmt.Errorf("pages query: %w", err)
	}
	defer rows.Close()

	out := make([]models.PageRef, 0)
	for rows.Next() {
		var (
			p       models.PageRef
			chapter sql.NullInt64
		)
		if err := rows.Scan(&p.VolumeNum, &p.PageNum, &chapter); err != nil {
			return nil, fmt.Errorf("pages scan: %w", err)
		}
		if chapter.Valid {
			c := int(chapter.Int64)
			p.ChapterNum = &c
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanManga(s scanner) (*models.Manga, error) {
	var (
		m      models.Manga
		enName sql.NullString
		jpName sql.NullString
		author sql.NullString
	)
	if err := s.Scan(&m.ID, &m.Slug, &enName, &jpName, &author); err != nil {
		return nil, err
	}
	m.EnName = enName.String
	m.JpName = jpName.String
	m.Author = author.String
	return &m, nil
}

// buildListSQL builds either COUNT(*) or SELECT list.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT id, slug, en_name, jp_name, author
		FROM manga
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM manga`
	}

	var where []string
	var args []any

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, "(LOWER(slug) LIKE ? OR LOWER(COALESCE(en_name, '')) LIKE ? OR COALESCE(jp_name, '') LIKE ? OR LOWER(COALESCE(author, '')) LIKE ?)")
		lower := "%" + strings.ToLower(kw) + "%"
		args = append(args, lower, lower, "%"+kw+"%", lower)
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY slug ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}
