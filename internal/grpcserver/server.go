package grpcserver

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"bilingualmanga/internal/manga"
	"bilingualmanga/internal/ocr"
	"bilingualmanga/pkg/models"
)

type Server struct {
	MangaRepo *manga.Repo
	OcrRepo   *ocr.Repo
}

func NewServer(mangaRepo *manga.Repo, ocrRepo *ocr.Repo) *Server {
	return &Server{MangaRepo: mangaRepo, OcrRepo: ocrRepo}
}

func (s *Server) GetPageOcr(ctx context.Context, req *PageRequest) (*models.PageOcrResult, error) {
	if req == nil || strings.TrimSpace(req.MangaSlug) == "" {
		return nil, status.Error(codes.InvalidArgument, "manga_slug required")
	}
	if req.Volume < 0 || req.Page < 0 {
		return nil, status.Error(codes.InvalidArgument, "volume and page must be >= 0")
	}

	res, err := s.OcrRepo.GetPageOcr(ctx, req.MangaSlug, req.Volume, req.Page)
	if err != nil {
		return nil, status.Error(codes.Internal, "get page failed")
	}
	if res == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return res, nil
}

func (s *Server) GetBlockWords(ctx context.Context, req *BlockRequest) (*BlockWordsResponse, error) {
	if req == nil || strings.TrimSpace(req.MangaSlug) == "" {
		return nil, status.Error(codes.InvalidArgument, "manga_slug required")
	}
	if req.Volume < 0 || req.Page < 0 || req.BlockNum < 0 {
		return nil, status.Error(codes.InvalidArgument, "volume, page and block_num must be >= 0")
	}

	b, err := s.OcrRepo.GetBlock(ctx, req.MangaSlug, req.Volume, req.Page, req.BlockNum)
	if err != nil {
		return nil, status.Error(codes.Internal, "get block failed")
	}
	if b == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}

	words := ocr.BlockWords(b)
	return &BlockWordsResponse{
		BlockNum:          b.BlockNum,
		Lines:             b.Lines,
		Words:             words,
		SegmentationError: b.SegmentationError,
	}, nil
}

func (s *Server) ListPages(ctx context.Context, req *VolumeRequest) (*ListPagesResponse, error) {
	if req == nil || strings.TrimSpace(req.MangaSlug) == "" {
		return nil, status.Error(codes.InvalidArgument, "manga_slug required")
	}

	pages, err := s.MangaRepo.ListPages(ctx, req.MangaSlug, req.Volume)
	if err != nil {
		return nil, status.Error(codes.Internal, "list pages failed")
	}
	if len(pages) == 0 {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &ListPagesResponse{MangaSlug: req.MangaSlug, Volume: req.Volume, Pages: pages}, nil
}

// LoggingInterceptor logs every unary call with its status code.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		level := slog.LevelInfo
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		log.Log(ctx, level, "grpc call", "method", info.FullMethod, "code", code.String(), "took", time.Since(start))
		return resp, err
	}
}
