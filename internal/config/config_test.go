package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/config"
)

func TestLoadReadsYamlConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".auttc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root: ./views\nstats: true\n"), 0o644))

	cmd := &cobra.Command{Use: "auttc"}
	v := viper.New()
	config.BindFlags(cmd, v)

	cfg, err := config.Load(v, path)
	require.NoError(t, err)
	require.Equal(t, "./views", cfg.Root)
	require.True(t, cfg.Stats)
}

func TestLoadDefaultsRootWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cmd := &cobra.Command{Use: "auttc"}
	v := viper.New()
	config.BindFlags(cmd, v)

	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	require.Equal(t, ".", cfg.Root)
}

func TestExcludeSetConvertsSliceToMap(t *testing.T) {
	cfg := config.Config{Excludes: []string{"vendor", "tmp"}}
	set := cfg.ExcludeSet()
	require.True(t, set["vendor"])
	require.True(t, set["tmp"])
	require.Len(t, set, 2)
}
