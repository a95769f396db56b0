package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kvietkauskas/au-ttc/internal/config"
)

var (
	flagConfigFile string
	cfgViper       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "auttc",
	Short:         "Template type-check and language-service engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "", "path to .auttc.yaml (default: current directory)")
	config.BindFlags(rootCmd, cfgViper)
	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newDiagnosticsCmd())
	rootCmd.AddCommand(newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "auttc:", err)
		os.Exit(1)
	}
}
