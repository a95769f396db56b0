package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvietkauskas/au-ttc/internal/diag"
)

func newDiagnosticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnostics",
		Short: "Print diagnostics for every template in the project",
		RunE:  runDiagnostics,
	}
}

func runDiagnostics(cmd *cobra.Command, _ []string) error {
	project, err := loadAndCompile()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	total := 0
	for _, u := range project.units {
		routed, ok := project.fac.GetRoutedDiagnostics(u.Template)
		if !ok {
			continue
		}
		for _, d := range routed.ForSurface(diag.SurfaceLSP) {
			total++
			fmt.Fprintf(out, "%s:%d:%d: %s %s: %s\n",
				u.Template, d.Location.Span.Line, d.Location.Span.Column,
				d.Severity, d.Code, d.Message)
		}
		if project.cfg.ShowSuppressed {
			for _, d := range routed.Suppressed {
				total++
				fmt.Fprintf(out, "%s:%d:%d: %s %s: %s (suppressed: %s)\n",
					u.Template, d.Location.Span.Line, d.Location.Span.Column,
					d.Severity, d.Code, d.Message, d.SuppressionReason)
			}
		}
	}

	if project.cfg.Stats {
		for _, u := range project.units {
			doc, ok := project.fac.Document(u.Template)
			if !ok {
				continue
			}
			stats := doc.Provenance.TemplateStats()
			fmt.Fprintf(out, "%s: %d expression(s), %d byte(s) covered\n", u.Template, stats.ExpressionCount, stats.CoveredBytes)
		}
	}

	fmt.Fprintf(out, "%d diagnostic(s)\n", total)
	return nil
}
