package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile      string
	logLevel     string
	sessionDir   string
	templatePath string
	headless     bool
	force        bool
)

// rootCmd runs the full download and assemble flow when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "autokudos",
	Short: "autokudos - fetch a supervision info file from Kudos and assemble the report",
	Long: `autokudos works inside a <subject>/supo<N> directory. It logs into the Kudos
portal with stored cookies, downloads the info file for supervision N of the
subject, and writes modifiedSupo.tex: supo.tex with the info file and the LaTeX
formatting template spliced into its preamble.`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx; cancelling ctx aborts browser steps
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		reportError(rootCmd, err)
	}
	return err
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.autokudos/autokudos.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&sessionDir, "dir", "", "supervision directory (default is the working directory)")
	rootCmd.PersistentFlags().StringVar(&templatePath, "template-path", "", "LaTeX formatting template")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", true, "run the browser without a window")

	rootCmd.Flags().BoolVar(&force, "force", false, "download the info file even if it already exists")

	// Version template
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
