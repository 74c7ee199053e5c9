// Package ingest loads Mokuro OCR output into the database. Files live at
// <root>/<slug>/jp-JP/_ocr/volume-<n>/<NNN>.json, one per page.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	languageDir  = "jp-JP"
	ocrDir       = "_ocr"
	volumePrefix = "volume-"
)

// Page is one Mokuro page file.
type Page struct {
	Version   string  `json:"version"`
	LastPage  bool    `json:"lastPage,omitempty"`
	ImgWidth  int     `json:"img_width"`
	ImgHeight int     `json:"img_height"`
	Blocks    []Block `json:"blocks"`
}

type Block struct {
	Box         [4]float64     `json:"box"`
	Vertical    bool           `json:"vertical"`
	FontSize    float64        `json:"font_size"`
	LinesCoords [][][2]float64 `json:"lines_coords"`
	Lines       []string       `json:"lines"`
	// Segmentation is present when the file was segmented before import.
	Segmentation json.RawMessage `json:"segmentation,omitempty"`
}

// PageFile is a page file found on disk.
type PageFile struct {
	Number int
	Path   string
}

func ReadPage(path string) (*Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var p Page
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if p.ImgWidth <= 0 || p.ImgHeight <= 0 {
		return nil, fmt.Errorf("decode %s: missing image size", path)
	}
	return &p, nil
}

func MangaOcrDir(root, slug string) string {
	return filepath.Join(root, slug, languageDir, ocrDir)
}

func VolumeDir(root, slug string, volume int) string {
	return filepath.Join(MangaOcrDir(root, slug), volumePrefix+strconv.Itoa(volume))
}

// ScanVolumes returns the volume numbers found under a manga's OCR directory.
func ScanVolumes(root, slug string) ([]int, error) {
	entries, err := os.ReadDir(MangaOcrDir(root, slug))
	if err != nil {
		return nil, fmt.Errorf("read ocr dir: %w", err)
	}
	var out []int
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), volumePrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), volumePrefix))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

var pageFileRe = regexp.MustCompile(`^(\d+)\.json$`)

// ScanPages returns the page files of a volume ordered by page number.
// Hidden and non-page files are ignored.
func ScanPages(root, slug string, volume int) ([]PageFile, error) {
	dir := VolumeDir(root, slug, volume)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read volume dir: %w", err)
	}
	var out []PageFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		out = append(out, PageFile{Number: n, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
