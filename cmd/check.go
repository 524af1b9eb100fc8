package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a source file and its includes without writing output",
	Long: `Scan FILE and every source file it includes, reporting every macro
error. No .tex files are written and the typesetter is not run.

Examples:
  semtex check paper.stex
  semtex check --report check.yml paper.stex`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	result, err := s.preprocess(cmd.Context(), args[0], true)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d file(s) checked, no errors\n", args[0], result.Metrics.FilesProcessed)
	return nil
}
