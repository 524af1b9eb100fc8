// Package cmd provides the semtex command-line interface.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--verbose, --keep-tex, etc.) - highest priority
//	2. Individual environment variables (SEMTEX_VERBOSE, SEMTEX_PIPELINE_WORKERS, ...)
//	3. Configuration file (--config, SEMTEX_CONFIG_FILE, or .semtex.yml)
//	4. Built-in defaults - lowest priority
//
// Environment Variables:
//
//	SEMTEX_CONFIG_FILE: Path to custom configuration file
//	SEMTEX_TYPESETTER_COMMAND: Override the typesetter (pdflatex by default)
//	And others following the SEMTEX_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/semtex/internal/config"
	"github.com/conneroisu/semtex/internal/version"
)

var (
	cfgFile string
	// configReadErr is set when an explicitly named config file cannot be
	// read; a missing default .semtex.yml is not an error.
	configReadErr error
)

// errDiagnosed is returned when a run failed and its diagnostics were
// already printed.
var errDiagnosed = errors.New("preprocessing failed")

// configFlags maps viper keys to the persistent flags that override them.
var configFlags = map[string]string{
	"verbose":         "verbose",
	"keep_tex":        "keep-tex",
	"preprocess_only": "preprocess-only",
	"log_level":       "log-level",
	"report":          "report",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "semtex FILE",
	Short: version.Name,
	Long: `semtex expands SemTeX macros in a .stex (or .sex) file and every source
file it includes, writing a sibling .tex file for each, then typesets the
root output with pdflatex.

Included files are processed concurrently. Generated .tex files are removed
after typesetting unless --keep-tex or --preprocess-only is given.

Examples:
  semtex paper.stex              # Expand and typeset
  semtex -E paper.stex           # Expand only, keep the .tex files
  semtex -k -v paper.stex        # Verbose run, keep the .tex files
  semtex check paper.stex        # Validate the include tree
  semtex watch -E paper.stex     # Re-expand on every change`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Interrupts cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	reportError(err)
	return err
}

func reportError(err error) {
	if err == nil || errors.Is(err, errDiagnosed) {
		return
	}
	fmt.Fprintf(rootCmd.ErrOrStderr(), "semtex: %s\n", err)
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .semtex.yml, can also use SEMTEX_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.BoolP("verbose", "v", false, "print progress messages and debug logs")
	flags.BoolP("keep-tex", "k", false, "keep the generated .tex files")
	flags.BoolP("preprocess-only", "E", false, "only expand macros; do not run the typesetter (implies --keep-tex)")
	flags.String("report", "", "write a YAML run report to this file")
}

// initConfig initializes the configuration system.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. SEMTEX_CONFIG_FILE environment variable
//  3. .semtex.yml in the current directory
func initConfig() {
	configReadErr = nil
	explicit := true

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SEMTEX_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		explicit = false
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".semtex")
	}

	viper.SetEnvPrefix("SEMTEX")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, name := range configFlags {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name))
	}

	if err := viper.ReadInConfig(); err != nil {
		if explicit {
			configReadErr = fmt.Errorf("cannot read config file: %w", err)
		}
		return
	}
	if viper.GetBool("verbose") {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig returns the merged configuration for a command.
func loadConfig() (*config.Config, error) {
	if configReadErr != nil {
		return nil, configReadErr
	}
	return config.Load()
}

// runRoot expands FILE and its includes, then typesets the root output
// unless an error occurred or --preprocess-only was given.
func runRoot(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	result, runErr := s.preprocess(ctx, args[0], false)

	var typesetErr error
	if !cfg.PreprocessOnly {
		if runErr == nil {
			typesetErr = s.typeset(ctx, result.RootOutput)
		} else {
			s.notice("Skipping %s due to errors", cfg.Typesetter.Command)
		}
	}

	if !cfg.KeepGenerated() {
		s.cleanup(ctx)
	}

	if runErr != nil {
		return runErr
	}
	return typesetErr
}
