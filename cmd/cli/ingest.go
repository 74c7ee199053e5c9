package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilingualmanga/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var (
		root   string
		volume int
	)
	cmd := &cobra.Command{
		Use:   "ingest <slug>",
		Short: "Import mokuro OCR pages from <root>/<slug>/jp-JP/_ocr",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			im := a.Importer()
			var stats ingest.Stats
			if volume >= 0 {
				stats, err = im.ImportVolume(cmd.Context(), root, args[0], volume)
			} else {
				stats, err = im.ImportManga(cmd.Context(), root, args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d volumes, %d pages, %d blocks (%d files skipped)\n",
				args[0], stats.Volumes, stats.Pages, stats.Blocks, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "directory holding one folder per manga slug")
	cmd.Flags().IntVar(&volume, "volume", -1, "import a single volume")
	return cmd
}
