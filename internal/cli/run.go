package cli

import (
	"fmt"

	"github.com/harun/autokudos/internal/config"
	"github.com/spf13/cobra"
)

func runRoot(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := validate(config.NewValidator().ValidateRun(a.cfg)); err != nil {
		return err
	}

	dir, err := workDir()
	if err != nil {
		return err
	}

	report, err := a.runner(force).Run(cmd.Context(), dir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case report.Skipped:
		fmt.Fprintf(out, "Using existing %s\n", report.ArtifactPath)
	case report.Downloaded:
		fmt.Fprintf(out, "Downloaded %s\n", report.ArtifactPath)
	default:
		fmt.Fprintf(out, "No %s booking for %s; %s was not downloaded\n",
			report.Identity.Label(), report.Identity.Subject, report.ArtifactPath)
	}
	fmt.Fprintf(out, "Wrote %s\n", report.OutputPath)
	return nil
}
