package cli

import (
	"fmt"

	"github.com/harun/autokudos/internal/config"
	"github.com/spf13/cobra"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Write modifiedSupo.tex without contacting the portal",
	Long: `Splice the info file and the formatting template into the preamble of
supo.tex and write the result to modifiedSupo.tex. The info file is referenced
by name and is not checked.`,
	Args: cobra.NoArgs,
	RunE: runAssemble,
}

func init() {
	rootCmd.AddCommand(assembleCmd)
}

func runAssemble(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := validate(config.NewValidator().ValidateAssemble(a.cfg)); err != nil {
		return err
	}

	dir, err := workDir()
	if err != nil {
		return err
	}

	output, err := a.runner(false).Assemble(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
	return nil
}
