package main

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"
)

func newSegmentCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "segment <slug> <volume>",
		Short: "Segment every speech bubble of a volume with ichiran (or kagome as fallback)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			volume, err := strconv.Atoi(args[1])
			if err != nil || volume < 0 {
				return errInvalidNumber("volume", args[1])
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.SegmentJob()
			if err != nil {
				return err
			}
			stats, err := job.Run(cmd.Context(), args[0], volume, force)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-segment blocks that already have segmentation")
	return cmd
}
