// Package config loads .auttc.yaml project configuration, layered with
// command-line flags and environment variables via viper. Grounded on the
// open-platform-model-cli teacher repo's rootCmd wiring (cmd/opm/root.go):
// persistent flags bound alongside an env-var fallback, generalized here
// into a single viper instance so flags/env/file all resolve through one
// precedence chain instead of each option hand-rolling its own fallback.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved project configuration for one auttc invocation.
type Config struct {
	// Root is the project directory to scan for templates.
	Root string `mapstructure:"root"`
	// Excludes overrides scanner.DefaultExcludes when non-empty.
	Excludes []string `mapstructure:"excludes"`
	// Watch is bound to the --watch flag; no subcommand reads it (the watch
	// subcommand always runs the dev-server diagnostics push loop).
	Watch bool `mapstructure:"watch"`
	// WatchAddr is the dev server's listen address.
	WatchAddr string `mapstructure:"watch_addr"`
	// Stats prints per-template expression-coverage stats after a compile.
	Stats bool `mapstructure:"stats"`
	// ShowSuppressed includes demoted/suppressed diagnostics in output.
	ShowSuppressed bool `mapstructure:"show_suppressed"`
	// Verbose is bound to the --verbose flag; no subcommand reads it.
	Verbose bool `mapstructure:"verbose"`
}

const envPrefix = "AUTTC"

// BindFlags registers the flags config.Load reads, following the teacher's
// pattern of a persistent flag per option plus an environment-variable
// fallback of the same name.
func BindFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("root", ".", "project directory to scan for templates")
	flags.StringSlice("excludes", nil, "directory names to exclude from scanning")
	flags.Bool("watch", false, "not read by any subcommand (use the watch subcommand)")
	flags.String("watch-addr", ":4317", "dev server listen address")
	flags.Bool("stats", false, "print per-template expression coverage stats")
	flags.Bool("show-suppressed", false, "include suppressed diagnostics in output")
	flags.BoolP("verbose", "v", false, "not read by any subcommand")

	_ = v.BindPFlag("root", flags.Lookup("root"))
	_ = v.BindPFlag("excludes", flags.Lookup("excludes"))
	_ = v.BindPFlag("watch", flags.Lookup("watch"))
	_ = v.BindPFlag("watch_addr", flags.Lookup("watch-addr"))
	_ = v.BindPFlag("stats", flags.Lookup("stats"))
	_ = v.BindPFlag("show_suppressed", flags.Lookup("show-suppressed"))
	_ = v.BindPFlag("verbose", flags.Lookup("verbose"))
}

// Load resolves configFile (".auttc.yaml" in the current directory when empty)
// layered under flags/env, and unmarshals the result into a Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".auttc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

// ExcludeSet converts Config.Excludes into the map scanner.Options expects,
// returning nil when unset so callers fall back to scanner.DefaultExcludes.
func (c Config) ExcludeSet() map[string]bool {
	if len(c.Excludes) == 0 {
		return nil
	}
	out := make(map[string]bool, len(c.Excludes))
	for _, name := range c.Excludes {
		out[name] = true
	}
	return out
}
