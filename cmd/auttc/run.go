package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/config"
	"github.com/kvietkauskas/au-ttc/internal/facade"
	"github.com/kvietkauskas/au-ttc/internal/scanner"
)

// compiledProject is one project scan plus every template compiled against
// it, the shared result every subcommand renders differently.
type compiledProject struct {
	cfg   config.Config
	fac   *facade.Facade
	units []scanner.Unit
}

// loadAndCompile resolves config, scans cfg.Root for template units, and
// compiles each one. A view-model shape is never attached here: doing so
// would require loading and reflecting over the unit's paired Go source via
// go/packages, which this CLI does not attempt — typecheck still runs, just
// conservatively treating every view-model member access as unverifiable
// (see internal/facade's Compile doc comment on Any-typed identifiers).
func loadAndCompile() (*compiledProject, error) {
	cfg, err := config.Load(cfgViper, flagConfigFile)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(cfg.Root)
	opts := scanner.Options{Excludes: cfg.ExcludeSet()}
	units, err := scanner.Scan(fsys, ".", opts)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", cfg.Root, err)
	}

	fac := facade.New(catalog.Default())
	for _, u := range units {
		src, err := os.ReadFile(filepath.Join(cfg.Root, u.Template))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", u.Template, err)
		}
		if _, err := fac.Compile(u.Template, string(src), nil); err != nil {
			return nil, fmt.Errorf("compile %s: %w", u.Template, err)
		}
	}

	return &compiledProject{cfg: cfg, fac: fac, units: units}, nil
}
