package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var (
		addr   string
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the TCP event feed, reconnecting on disconnect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			for {
				if err := follow(ctx, addr, pretty, cmd.OutOrStdout(), log); err != nil {
					log.Warn("event feed disconnected", "addr", addr, "error", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "TCP event feed address")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "pretty print JSON events")
	return cmd
}

// follow prints feed lines until the connection drops or ctx ends.
func follow(ctx context.Context, addr string, pretty bool, out io.Writer, log *slog.Logger) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	log.Info("event feed connected", "addr", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if !pretty {
			fmt.Fprintln(out, string(line))
			continue
		}

		var obj map[string]any
		if err := json.Unmarshal(line, &obj); err != nil {
			fmt.Fprintln(out, string(line))
			continue
		}
		b, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Fprintln(out, string(b))
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}
