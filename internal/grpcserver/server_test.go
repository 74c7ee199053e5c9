package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"bilingualmanga/internal/manga"
	"bilingualmanga/internal/ocr"
	"bilingualmanga/internal/testdb"
	"bilingualmanga/pkg/database"
)

const seg = `["「",[[[["oi",{"text":"おい","kana":"おい","gloss":[{"pos":"[int]","gloss":"hey!"}]},[]]],10]],"」"]`

func newClient(t *testing.T) *ReaderClient {
	t.Helper()
	db := testdb.Open(t)
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 16)
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 0, Lines: []string{"「おい」"}, Segmentation: testdb.Ptr(seg)})
	testdb.InsertBubble(t, db, pid, testdb.Bubble{BlockNum: 1, Lines: []string{"……"}})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(log)))
	RegisterReaderServer(srv, NewServer(
		manga.NewRepo(db, database.DriverSQLite),
		ocr.NewRepo(db, database.DriverSQLite, log),
	))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewReaderClient(conn)
}

func TestGetPageOcr(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	res, err := c.GetPageOcr(ctx, &PageRequest{MangaSlug: "dorohedoro", Volume: 1, Page: 16})
	if err != nil {
		t.Fatalf("GetPageOcr: %v", err)
	}
	if res.ImgWidth != 1700 || len(res.Blocks) != 2 {
		t.Fatalf("unexpected page %+v", res)
	}
	if string(res.Blocks[0].Segmentation) != seg || string(res.Blocks[1].Segmentation) != "null" {
		t.Errorf("unexpected segmentations %s / %s", res.Blocks[0].Segmentation, res.Blocks[1].Segmentation)
	}

	_, err = c.GetPageOcr(ctx, &PageRequest{MangaSlug: "dorohedoro", Volume: 1, Page: 99})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	_, err = c.GetPageOcr(ctx, &PageRequest{MangaSlug: "", Volume: 1, Page: 1})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestGetBlockWords(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	res, err := c.GetBlockWords(ctx, &BlockRequest{MangaSlug: "dorohedoro", Volume: 1, Page: 16, BlockNum: 0})
	if err != nil {
		t.Fatalf("GetBlockWords: %v", err)
	}
	if len(res.Words) != 3 || res.Words[1].Text != "おい" || !res.Words[0].IsPunctuation {
		t.Errorf("unexpected words %+v", res.Words)
	}

	res, err = c.GetBlockWords(ctx, &BlockRequest{MangaSlug: "dorohedoro", Volume: 1, Page: 16, BlockNum: 1})
	if err != nil {
		t.Fatalf("GetBlockWords: %v", err)
	}
	if len(res.Words) != 0 {
		t.Errorf("expected no words for an unsegmented block, got %+v", res.Words)
	}

	_, err = c.GetBlockWords(ctx, &BlockRequest{MangaSlug: "dorohedoro", Volume: 1, Page: 16, BlockNum: -1})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestListPages(t *testing.T) {
	c := newClient(t)
	res, err := c.ListPages(context.Background(), &VolumeRequest{MangaSlug: "dorohedoro", Volume: 1})
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(res.Pages) != 1 || res.Pages[0].PageNum != 16 {
		t.Errorf("unexpected pages %+v", res.Pages)
	}
	_, err = c.ListPages(context.Background(), &VolumeRequest{MangaSlug: "missing", Volume: 1})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}
