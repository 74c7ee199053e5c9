package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bilingualmanga/internal/app"
	"bilingualmanga/pkg/utils"
)

var configPath string

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bilingualmanga",
		Short:         "Operate a bilingual manga reader: ingest OCR, segment text, export flashcards",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (yaml, toml or json)")

	root.AddCommand(
		newIngestCmd(),
		newSegmentCmd(),
		newKanjiCmd(),
		newPageCmd(),
		newWordsCmd(),
		newAnkiCmd(),
		newTokenCmd(),
		newWatchCmd(),
	)
	return root
}

// openApp loads configuration and opens the database. Logs go to stderr so
// command output on stdout stays machine readable.
func openApp() (*app.App, error) {
	cfg, err := utils.Load(configPath)
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, app.NewLogger(os.Stderr, cfg))
}

func loadConfig() (utils.Config, *slog.Logger, error) {
	cfg, err := utils.Load(configPath)
	if err != nil {
		return utils.Config{}, nil, err
	}
	return cfg, app.NewLogger(os.Stderr, cfg), nil
}
