package main

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bilingualmanga/internal/testdb"
	"bilingualmanga/pkg/database"
)

// useDatabase points the CLI at a fresh migrated sqlite file.
func useDatabase(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("MANGAREADER_DB_DRIVER", database.DriverSQLite)
	t.Setenv("MANGAREADER_DB_DSN", dsn)
	configPath = ""
	return dsn
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPageAndWords(t *testing.T) {
	dsn := useDatabase(t)
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: dsn})
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Migrate(db, database.DriverSQLite); err != nil {
		t.Fatal(err)
	}
	mid := testdb.Manga(t, db, "dorohedoro")
	pid := testdb.Page(t, db, mid, 1, 16)
	testdb.InsertBubble(t, db, pid, testdb.Bubble{
		BlockNum:     0,
		Lines:        []string{"おい"},
		Segmentation: testdb.Ptr(`[[[[["oi",{"text":"おい","kana":"おい","gloss":[{"pos":"[int]","gloss":"hey!"}]},[]]],10]],"！"]`),
	})
	db.Close()

	out, err := run(t, "", "page", "dorohedoro", "1", "16")
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if !strings.Contains(out, `"img_width": 1700`) || !strings.Contains(out, `"block_num": 0`) {
		t.Errorf("unexpected page output:\n%s", out)
	}

	out, err = run(t, "", "words", "dorohedoro", "1", "16", "0")
	if err != nil {
		t.Fatalf("words: %v", err)
	}
	if !strings.Contains(out, "hey!") || !strings.Contains(out, "！") {
		t.Errorf("unexpected words output:\n%s", out)
	}

	if _, err := run(t, "", "page", "dorohedoro", "1", "99"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := run(t, "", "page", "dorohedoro", "x", "1"); err == nil {
		t.Error("expected invalid volume error")
	}
}

func TestTokenHash(t *testing.T) {
	useDatabase(t)
	out, err := run(t, "correct horse\n", "token", "hash")
	if err != nil {
		t.Fatalf("token hash: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("correct horse")) != nil {
		t.Errorf("hash %q does not verify", out)
	}
	if _, err := run(t, "", "token", "hash"); err == nil {
		t.Error("expected error on empty stdin")
	}
}

func TestTokenIssue(t *testing.T) {
	useDatabase(t)
	out, err := run(t, "", "token", "issue")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Errorf("expected a JWT, got %q", out)
	}
}

func TestFollow(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("{\"type\":\"segmentation.updated\"}\nplain line\n"))
		_ = conn.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, log, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	_ = follow(ctx, ln.Addr().String(), true, &out, log)

	if !strings.Contains(out.String(), `"type": "segmentation.updated"`) || !strings.Contains(out.String(), "plain line") {
		t.Errorf("unexpected feed output:\n%s", out.String())
	}
}
