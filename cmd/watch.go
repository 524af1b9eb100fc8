package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/semtex/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Re-run semtex whenever a source file changes",
	Long: `Process FILE once, then watch its directory tree and process it again
each time a .stex or .sex file changes. Changes are debounced
(watch.debounce, 300ms by default). Generated .tex files are removed on exit
unless --keep-tex or --preprocess-only is given.

Examples:
  semtex watch paper.stex        # Expand and typeset on every change
  semtex watch -E paper.stex     # Expand only`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := checkInput(args[0]); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := newSession(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	s.banner()

	root := args[0]
	ctx := cmd.Context()

	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.SourceFilter)
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(watcher.NoBackupFilter)

	fileWatcher.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		if cfg.Verbose {
			for _, event := range events {
				s.notice("%s: %s", event.Type, event.Path)
			}
		} else {
			fmt.Fprintf(s.out, "%d file(s) changed\n", len(events))
		}
		rebuild(ctx, s, root)
		return nil
	})

	dir := filepath.Dir(root)
	if err := fileWatcher.AddRecursive(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	rebuild(ctx, s, root)

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	fmt.Fprintf(s.out, "Watching %s for changes (press Ctrl+C to stop)\n", dir)

	<-ctx.Done()

	if !cfg.KeepGenerated() {
		s.cleanup(context.Background())
	}
	return nil
}

// rebuild runs one preprocess and typeset cycle. Errors were already
// printed, so they only decide whether the typesetter runs.
func rebuild(ctx context.Context, s *session, root string) {
	result, err := s.preprocess(ctx, root, false)
	if err != nil {
		if !errors.Is(err, errDiagnosed) {
			s.printer.Print(err)
		}
		if !s.cfg.PreprocessOnly {
			s.notice("Skipping %s due to errors", s.cfg.Typesetter.Command)
		}
		return
	}

	if s.cfg.PreprocessOnly {
		return
	}
	if err := s.typeset(ctx, result.RootOutput); err != nil {
		s.printer.Print(err)
	}
}
