package ocr

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"bilingualmanga/internal/testdb"
	"bilingualmanga/pkg/database"
)

const dorohedoroSeg = `[[[[["oi",{"text":"おい","kana":"おい","gloss":[{"pos":"[int]","gloss":"hey!"}]},[]]],10]],[[[["temee",{"text":"てめえ","kana":"てめえ","gloss":[{"pos":"[pn]","gloss":"you"}]},[]]],8]]]`

func newTestRepo(t *testing.T) (*Repo, *sql.DB) {
	t.Helper()
	db := testdb.Open(t)
	return NewRepo(db, database.DriverSQLite, nil), db
}

func TestGetPageOcr_Dorohedoro(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 16)
	testdb.InsertBubble(t, db, pid, testdb.Bubble{
		BlockNum:     0,
		Lines:        []string{"おい", "てめえ"},
		Segmentation: testdb.Ptr(dorohedoroSeg),
	})

	res, err := repo.GetPageOcr(context.Background(), "dorohedoro", 1, 16)
	if err != nil {
		t.Fatalf("GetPageOcr: %v", err)
	}
	if res == nil {
		t.Fatal("expected page, got nil")
	}
	if res.ImgWidth != 1700 || res.ImgHeight != 2400 {
		t.Errorf("unexpected image size %dx%d", res.ImgWidth, res.ImgHeight)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(res.Blocks))
	}

	b := res.Blocks[0]
	if b.BlockNum != 0 || len(b.Lines) != 2 || b.Lines[0] != "おい" || b.Lines[1] != "てめえ" {
		t.Errorf("unexpected block %+v", b)
	}
	if !b.Vertical || b.FontSize != 24.5 || b.Box != [4]float64{100, 200, 160, 320} {
		t.Errorf("unexpected geometry %+v", b)
	}
	if len(b.LineCoords) != 1 || len(b.LineCoords[0]) != 4 {
		t.Errorf("unexpected line coords %v", b.LineCoords)
	}
	if string(b.Segmentation) != dorohedoroSeg {
		t.Errorf("segmentation not returned verbatim:\n got %s\nwant %s", b.Segmentation, dorohedoroSeg)
	}
	if b.SegmentationError != "" {
		t.Errorf("unexpected segmentation error %q", b.SegmentationError)
	}

	words := BlockWords(&b)
	if len(words) != 2 || words[0].ID != "chain-0-word-0" || words[1].ID != "chain-1-word-0" {
		t.Errorf("unexpected words %+v", words)
	}
}

func TestGetPageOcr_NotFound(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	testdb.Page(t, db, mid, 1, 16)

	cases := []struct {
		slug         string
		volume, page int
	}{
		{"nonexistent-manga", 1, 1},
		{"dorohedoro", 1, 17},
		{"dorohedoro", 2, 16},
	}
	for _, tc := range cases {
		res, err := repo.GetPageOcr(context.Background(), tc.slug, tc.volume, tc.page)
		if err != nil {
			t.Errorf("%v: unexpected error %v", tc, err)
		}
		if res != nil {
			t.Errorf("%v: expected not found, got %+v", tc, res)
		}
	}
}

func TestGetPageOcr_EmptyPage(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	testdb.Page(t, db, mid, 1, 1)

	res, err := repo.GetPageOcr(context.Background(), "dorohedoro", 1, 1)
	if err != nil {
		t.Fatalf("GetPageOcr: %v", err)
	}
	if res == nil || res.Blocks == nil || len(res.Blocks) != 0 {
		t.Fatalf("expected empty non-nil blocks, got %+v", res)
	}

	body, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `"blocks":[]`) {
		t.Errorf("expected empty array in json, got %s", body)
	}
}

func TestGetPageOcr_BlocksAscending(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 2)
	for _, n := range []int{2, 0, 3, 1} {
		testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: n, Lines: []string{"あ"}})
	}

	res, err := repo.GetPageOcr(context.Background(), "dorohedoro", 1, 2)
	if err != nil || res == nil {
		t.Fatalf("GetPageOcr: %v, %v", res, err)
	}
	if len(res.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(res.Blocks))
	}
	for i, b := range res.Blocks {
		if b.BlockNum != i {
			t.Errorf("position %d holds block %d", i, b.BlockNum)
		}
		if b.Segmentation != nil {
			t.Errorf("block %d: expected null segmentation, got %s", b.BlockNum, b.Segmentation)
		}
	}
}

func TestGetPageOcr_MalformedSegmentationIsolated(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 3)
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 0, Lines: []string{"おい", "てめえ"}, Segmentation: testdb.Ptr(dorohedoroSeg)})
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 1, Lines: []string{"x"}, Segmentation: testdb.Ptr(`{"bad":1}`)})
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 2, Lines: []string{"y"}, Segmentation: testdb.Ptr(`not json`)})
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 3, Lines: []string{"z"}, Segmentation: testdb.Ptr(`[[[[], 1]]]`)})

	res, err := repo.GetPageOcr(context.Background(), "dorohedoro", 1, 3)
	if err != nil || res == nil {
		t.Fatalf("GetPageOcr: %v, %v", res, err)
	}
	if len(res.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(res.Blocks))
	}

	if res.Blocks[0].SegmentationError != "" || res.Blocks[0].Parsed == nil {
		t.Errorf("valid block affected by its neighbours: %+v", res.Blocks[0])
	}

	bad := res.Blocks[1]
	if bad.SegmentationError == "" || bad.Parsed != nil {
		t.Errorf("expected segmentation error on block 1, got %+v", bad)
	}
	if bad.Segmentation != nil {
		t.Errorf("expected rejected segmentation treated as absent, got %s", bad.Segmentation)
	}
	if words := BlockWords(&bad); len(words) != 0 {
		t.Errorf("expected no words for malformed block, got %d", len(words))
	}

	if res.Blocks[2].SegmentationError == "" || res.Blocks[2].Segmentation != nil {
		t.Errorf("expected non-json segmentation dropped with an error, got %+v", res.Blocks[2])
	}
	if res.Blocks[3].SegmentationError == "" {
		t.Errorf("expected empty word chain rejected")
	}

	if _, err := json.Marshal(res); err != nil {
		t.Errorf("page with malformed blocks must still encode: %v", err)
	}
}

func TestGetPageOcr_KanjiOrderPreserved(t *testing.T) {
	repo, db := newTestRepo(t)
	testdb.Kanji(t, db, "大", 3, "large")
	testdb.Kanji(t, db, "人", 2, "person")
	testdb.Kanji(t, db, "鉄", 13, "iron")
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 4)
	testdb.InsertBubble(t, db, pid, testdb.Bubble{
		BlockNum: 0,
		Lines:    []string{"鉄人大未"},
		Kanji:    []string{"鉄", "人", "未", "大"},
	})
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 1, Lines: []string{"ね"}})

	res, err := repo.GetPageOcr(context.Background(), "dorohedoro", 1, 4)
	if err != nil || res == nil {
		t.Fatalf("GetPageOcr: %v, %v", res, err)
	}

	kanji := res.Blocks[0].Kanji
	var got []string
	for _, k := range kanji {
		got = append(got, k.Text)
	}
	if strings.Join(got, "") != "鉄人大" {
		t.Errorf("expected kanji in stored order without unknown entries, got %v", got)
	}
	if kanji[0].Strokes != 13 || len(kanji[0].Meanings) != 1 || kanji[0].Meanings[0] != "iron" {
		t.Errorf("unexpected kanji detail %+v", kanji[0])
	}
	if len(res.Blocks[1].Kanji) != 0 {
		t.Errorf("expected no kanji on block 1, got %+v", res.Blocks[1].Kanji)
	}
}

func TestGetBlock(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 16)
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 0, Lines: []string{"おい"}})

	b, err := repo.GetBlock(context.Background(), "dorohedoro", 1, 16, 0)
	if err != nil || b == nil {
		t.Fatalf("GetBlock: %v, %v", b, err)
	}
	if b, err := repo.GetBlock(context.Background(), "dorohedoro", 1, 16, 5); err != nil || b != nil {
		t.Errorf("expected missing block, got %v, %v", b, err)
	}
}

func TestListVolumeBlocks(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	p2 := testdb.Page(t, db, mid, 1, 2)
	p1 := testdb.Page(t, db, mid, 1, 1)
	other := testdb.Page(t, db, mid, 2, 1)
	testdb.InsertBubble(t, db, p2, testdb.Bubble{BlockNum: 0, Lines: []string{"c"}})
	testdb.InsertBubble(t, db, p1, testdb.Bubble{BlockNum: 1, Lines: []string{"b"}})
	testdb.InsertBubble(t, db, p1, testdb.Bubble{BlockNum: 0, Lines: []string{"a", "a2"}, Segmentation: testdb.Ptr(dorohedoroSeg)})
	testdb.InsertBubble(t, db, other, testdb.Bubble{BlockNum: 0, Lines: []string{"z"}})

	blocks, err := repo.ListVolumeBlocks(context.Background(), "dorohedoro", 1)
	if err != nil {
		t.Fatalf("ListVolumeBlocks: %v", err)
	}
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	order := []string{blocks[0].Lines[0], blocks[1].Lines[0], blocks[2].Lines[0]}
	if strings.Join(order, "") != "abc" {
		t.Errorf("unexpected order %v", order)
	}
	if !blocks[0].HasSegmentation || blocks[1].HasSegmentation {
		t.Errorf("unexpected segmentation flags %+v", blocks)
	}
	if len(blocks[0].Lines) != 2 {
		t.Errorf("expected lines decoded, got %v", blocks[0].Lines)
	}
}

func TestGetPageOcr_MalformedKanjiDetailIsolated(t *testing.T) {
	repo, db := newTestRepo(t)
	testdb.Kanji(t, db, "人", 2, "person")
	if _, err := db.Exec(`INSERT INTO kanji_detail (text, strokes, readings, meanings) VALUES ('山', 3, 'not json', '{')`); err != nil {
		t.Fatal(err)
	}
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 5)
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 0, Lines: []string{"山人"}, Kanji: []string{"山", "人"}})
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 1, Lines: []string{"おい"}, Segmentation: testdb.Ptr(dorohedoroSeg)})

	res, err := repo.GetPageOcr(context.Background(), "dorohedoro", 1, 5)
	if err != nil || res == nil {
		t.Fatalf("GetPageOcr: %v, %v", res, err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(res.Blocks))
	}
	kanji := res.Blocks[0].Kanji
	if len(kanji) != 2 || kanji[0].Text != "山" || kanji[1].Text != "人" {
		t.Fatalf("unexpected kanji %+v", kanji)
	}
	if kanji[0].Readings != nil || kanji[0].Meanings != nil || kanji[0].Strokes != 3 {
		t.Errorf("expected unusable readings and meanings dropped, got %+v", kanji[0])
	}
	if len(kanji[1].Meanings) != 1 || kanji[1].Meanings[0] != "person" {
		t.Errorf("valid kanji affected by its neighbour: %+v", kanji[1])
	}
	if res.Blocks[1].Parsed == nil {
		t.Errorf("expected block 1 segmentation parsed")
	}
}

func TestGetPageOcr_RetrievalFailure(t *testing.T) {
	repo, db := newTestRepo(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	testdb.Page(t, db, mid, 1, 16)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := repo.GetPageOcr(context.Background(), "dorohedoro", 1, 16)
	if err == nil {
		t.Fatal("expected an error from a closed database")
	}
	if res != nil {
		t.Errorf("expected nil result alongside the error, got %+v", res)
	}
}
