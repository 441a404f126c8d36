package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Checks that the configured credentials can log into UDA.",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		err = s.client.Authenticate(cmd.Context(), s.creds.Login(), s.creds.Password())
		if err != nil {
			return fmt.Errorf("login as %s: %s", s.creds, describe(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", s.creds)
		return nil
	},
}
