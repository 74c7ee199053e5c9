package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bilingualmanga/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage write-access credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash",
		Short: "Read a password from stdin and print the bcrypt hash for auth.password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := bufio.NewScanner(cmd.InOrStdin())
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return err
				}
				return errors.New("no password on stdin")
			}
			hash, err := auth.HashPassword(strings.TrimRight(sc.Text(), "\r"))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "issue",
		Short: "Sign a write token with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			ts := auth.TokenService{
				Secret:   []byte(cfg.Auth.JWTSecret),
				Issuer:   cfg.Auth.JWTIssuer,
				Duration: cfg.Auth.JWTDuration,
			}
			token, exp, err := ts.Sign(auth.ScopeWrite)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.UTC().Format(time.RFC3339))
			return nil
		},
	})
	return cmd
}
