package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"bilingualmanga/pkg/database"
	"bilingualmanga/pkg/utils"
)

func testConfig(t *testing.T) utils.Config {
	t.Helper()
	cfg, err := utils.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.DB = database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(t.TempDir(), "app.db")}
	cfg.Ichiran.URL = ""
	return cfg
}

func TestOpen_Wiring(t *testing.T) {
	cfg := testConfig(t)
	a, err := Open(cfg, NewLogger(io.Discard, cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if err := a.DB.PingContext(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	res, err := a.Ocr.GetPageOcr(context.Background(), "missing", 1, 1)
	if err != nil || res != nil {
		t.Errorf("expected (nil, nil) on empty database, got %+v, %v", res, err)
	}

	e := a.Exporter()
	if e.Deck != "Expression Mining" || e.Model != "Basic" {
		t.Errorf("unexpected exporter settings %+v", e)
	}
	if a.Tokens.Duration != cfg.Auth.JWTDuration || string(a.Tokens.Secret) != cfg.Auth.JWTSecret {
		t.Errorf("token service not built from config")
	}
}

func TestSegmentJob_NoAnalyzer(t *testing.T) {
	cfg := testConfig(t)
	cfg.Segment.LocalFallback = false
	a, err := Open(cfg, NewLogger(io.Discard, cfg))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	job, err := a.SegmentJob()
	if err != nil {
		t.Fatal(err)
	}
	if job.Remote != nil || job.Local != nil {
		t.Errorf("expected no analyzers, got %+v", job)
	}
}
