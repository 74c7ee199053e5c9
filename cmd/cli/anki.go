package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilingualmanga/internal/anki"
)

func blockRef(args []string) (anki.BlockRef, error) {
	nums, err := parseNumbers(args[1:4], "volume", "page", "block")
	if err != nil {
		return anki.BlockRef{}, err
	}
	return anki.BlockRef{MangaSlug: args[0], Volume: nums[0], Page: nums[1], BlockNum: nums[2]}, nil
}

func newAnkiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anki",
		Short: "Export words to Anki through AnkiConnect",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <slug> <volume> <page> <block>",
		Short: "Show which words of a speech bubble can still be added",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := blockRef(args)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			flags, err := a.Exporter().CanAdd(cmd.Context(), ref)
			if err != nil {
				return err
			}
			for i, ok := range flags {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%v\n", i, ok)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <slug> <volume> <page> <block> <word>",
		Short: "Add one word of a speech bubble as a flashcard",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := blockRef(args)
			if err != nil {
				return err
			}
			word, err := parseNumbers(args[4:], "word")
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.Exporter().Add(cmd.Context(), ref, word[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added note %d\n", id)
			return nil
		},
	})
	return cmd
}
