package cli

import (
	"fmt"

	"github.com/harun/autokudos/internal/config"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log into Kudos in a browser window and save the session cookies",
	Long: `Open a browser window on the Kudos login page and follow the Raven
single sign-on link. Once you have logged in and the browser is back on the
login page, the session cookies are written to the cookie file.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := validate(config.NewValidator().ValidateLogin(a.cfg)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Complete the Raven login in the browser window (waiting up to %v)\n",
		config.Seconds(a.cfg.Timeouts.Interactive))

	set, err := a.credentials().InteractiveRefresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d cookies to %s\n", len(set), a.cfg.CookieFile)
	return nil
}
