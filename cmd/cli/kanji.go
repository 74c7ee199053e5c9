package main

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newKanjiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kanji",
		Short: "Manage the kanji dictionary",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <kanjidic2.xml[.gz]>",
		Short: "Load KANJIDIC2 entries into the kanji table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var src io.Reader = f
			if strings.HasSuffix(args[0], ".gz") {
				gz, err := gzip.NewReader(f)
				if err != nil {
					return fmt.Errorf("open gzip: %w", err)
				}
				defer gz.Close()
				src = gz
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Kanji.Import(cmd.Context(), src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d kanji\n", n)
			return nil
		},
	})
	return cmd
}
