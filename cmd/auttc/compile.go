package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvietkauskas/au-ttc/internal/diag"
)

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile",
		Short: "Compile every template and exit non-zero if any has an unsuppressed error",
		RunE:  runCompile,
	}
}

func runCompile(cmd *cobra.Command, _ []string) error {
	project, err := loadAndCompile()
	if err != nil {
		return err
	}

	failed := false
	for _, u := range project.units {
		for _, d := range project.fac.GetDiagnostics(u.Template) {
			if d.Severity != diag.SeverityError {
				continue
			}
			failed = true
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "compiled %d template(s)\n", len(project.units))
	if failed {
		return fmt.Errorf("one or more templates failed to compile")
	}
	return nil
}
