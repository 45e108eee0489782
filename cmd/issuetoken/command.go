package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/dentdocs/internal/common"
	"github.com/dmitrijs2005/dentdocs/internal/envx"
	"github.com/dmitrijs2005/dentdocs/internal/server/auth"
)

func newCommand(out io.Writer) *cobra.Command {
	var (
		userID   string
		role     string
		secret   string
		validity time.Duration
	)
	envx.String(&secret, "SECRET_KEY")

	cmd := &cobra.Command{
		Use:          "issuetoken",
		Short:        "Mint an access token for the document store",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if role != common.RoleManager && role != common.RoleDentist {
				return fmt.Errorf("unknown role %q (want %q or %q)", role, common.RoleDentist, common.RoleManager)
			}
			if secret == "" {
				return errors.New("signing secret is required (--secret or DENTDOCS_SECRET_KEY)")
			}
			if validity <= 0 {
				return errors.New("--validity must be positive")
			}

			tok, err := auth.GenerateToken(userID, role, []byte(secret), validity)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, tok)
			return err
		},
	}
	cmd.SetOut(out)

	f := cmd.Flags()
	f.StringVarP(&userID, "user", "u", "", "user ID placed in the token")
	f.StringVarP(&role, "role", "r", common.RoleDentist, "role: dentist or manager")
	f.StringVarP(&secret, "secret", "s", secret, "signing secret")
	f.DurationVarP(&validity, "validity", "t", 12*time.Hour, "token lifetime")
	return cmd
}
