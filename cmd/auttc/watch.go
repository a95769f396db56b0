package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/kvietkauskas/au-ttc/internal/devserver"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Serve live diagnostics over a WebSocket, recompiling on file changes",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	project, err := loadAndCompile()
	if err != nil {
		return err
	}

	logger := slog.Default()
	srv := devserver.New(project.fac, logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	watchedDirs := map[string]bool{}
	for _, u := range project.units {
		dir := filepath.Dir(filepath.Join(project.cfg.Root, u.Template))
		if watchedDirs[dir] {
			continue
		}
		watchedDirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go recompileOnChange(watcher, project, srv, logger)

	fmt.Fprintf(cmd.OutOrStdout(), "auttc watch listening on %s\n", project.cfg.WatchAddr)
	return http.ListenAndServe(project.cfg.WatchAddr, srv)
}

// recompileOnChange recompiles whichever unit a changed file belongs to and
// notifies devserver so any subscribed editor connection gets a fresh push.
func recompileOnChange(watcher *fsnotify.Watcher, project *compiledProject, srv *devserver.Server, logger *slog.Logger) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			uri, ok := unitForPath(project, ev.Name)
			if !ok {
				continue
			}
			src, err := os.ReadFile(filepath.Join(project.cfg.Root, uri))
			if err != nil {
				logger.Warn("reread changed template", "uri", uri, "error", err)
				continue
			}
			if _, err := project.fac.Compile(uri, string(src), nil); err != nil {
				logger.Warn("recompile changed template", "uri", uri, "error", err)
				continue
			}
			srv.Notify(uri)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}

func unitForPath(project *compiledProject, path string) (string, bool) {
	rel, err := filepath.Rel(project.cfg.Root, path)
	if err != nil {
		return "", false
	}
	for _, u := range project.units {
		if u.Template == rel {
			return u.Template, true
		}
	}
	return "", false
}
