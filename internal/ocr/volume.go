package ocr

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bilingualmanga/pkg/database"
)

// VolumeBlock is the slice of a speech bubble the segmentation job needs.
type VolumeBlock struct {
	ID              int64
	PageNum         int
	BlockNum        int
	Lines           []string
	HasSegmentation bool
}

// ListVolumeBlocks returns every block of a volume ordered by page then block.
// An unknown manga or volume yields an empty list.
func (r *Repo) ListVolumeBlocks(ctx context.Context, mangaSlug string, volumeNumber int) ([]VolumeBlock, error) {
	rows, err := r.DB.QueryContext(ctx, database.Rebind(r.Driver, `
		SELECT sb.id, mp.page_num, sb.block_num, sb.lines, sb.segmentation IS NOT NULL
		FROM speech_bubble sb
		INNER JOIN manga_page mp ON mp.id = sb.manga_page_id
		INNER JOIN manga m ON m.id = mp.manga_id
		WHERE m.slug = ? AND mp.volume_num = ?
		ORDER BY mp.page_num ASC, sb.block_num ASC
	`), mangaSlug, volumeNumber)
	if err != nil {
		return nil, fmt.Errorf("list volume blocks: %w", err)
	}
	defer rows.Close()

	out := make([]VolumeBlock, 0)
	for rows.Next() {
		var (
			b        VolumeBlock
			linesRaw sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.PageNum, &b.BlockNum, &linesRaw, &b.HasSegmentation); err != nil {
			return nil, fmt.Errorf("scan volume block: %w", err)
		}
		if linesRaw.Valid {
			if err := json.Unmarshal([]byte(linesRaw.String), &b.Lines); err != nil {
				r.Log.Warn("block lines are not a json array", "block_id", b.ID, "error", err)
			}
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows volume blocks: %w", err)
	}
	return out, nil
}
