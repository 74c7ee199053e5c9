package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bilingualmanga/internal/ocr"
)

func errInvalidNumber(name, value string) error {
	return fmt.Errorf("%s must be a non-negative integer, got %q", name, value)
}

// parseNumbers converts positional arguments named by names.
func parseNumbers(args []string, names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, name := range names {
		n, err := strconv.Atoi(args[i])
		if err != nil || n < 0 {
			return nil, errInvalidNumber(name, args[i])
		}
		out[i] = n
	}
	return out, nil
}

func newPageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "page <slug> <volume> <page>",
		Short: "Print the OCR overlay of one page as JSON",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := parseNumbers(args[1:], "volume", "page")
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Ocr.GetPageOcr(cmd.Context(), args[0], nums[0], nums[1])
			if err != nil {
				return err
			}
			if res == nil {
				return fmt.Errorf("%s volume %d page %d: not found", args[0], nums[0], nums[1])
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}

func newWordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "words <slug> <volume> <page> <block>",
		Short: "List the flattened words of one speech bubble",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			nums, err := parseNumbers(args[1:], "volume", "page", "block")
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := a.Ocr.GetBlock(cmd.Context(), args[0], nums[0], nums[1], nums[2])
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("%s volume %d page %d block %d: not found", args[0], nums[0], nums[1], nums[2])
			}

			words := ocr.BlockWords(b)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, strings.Join(b.Lines, "\n"))
			if b.SegmentationError != "" {
				fmt.Fprintf(out, "segmentation error: %s\n", b.SegmentationError)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTEXT\tKANA\tROMAJI\tGLOSS")
			for i, w := range words {
				if w.IsPunctuation {
					fmt.Fprintf(tw, "%d\t%s\t\t\t\n", i, w.Text)
					continue
				}
				gloss := ""
				if len(w.Gloss) > 0 {
					gloss = w.Gloss[0].Gloss
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, w.Text, w.Kana, w.Romaji, gloss)
			}
			return tw.Flush()
		},
	}
}
