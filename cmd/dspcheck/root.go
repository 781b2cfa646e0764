package main

import (
	"fmt"
	"os"

	"github.com/npillmayer/dsp/config"
	"github.com/npillmayer/dsp/dom/dsp"
	"github.com/npillmayer/dsp/dom/dsp/console"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dspcheck",
	Short: "dspcheck - inspect and exercise DOM security policies",
	Long: `dspcheck loads DOM security policies and asks them about DOM mutations.

A DOM security policy is a list of CSS-selector-scoped rules deciding if
scripts may modify attributes of elements or attach shadow roots to them.
dspcheck parses a policy, evaluates mutations of elements of an HTML
document against it, and reports the decisions.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration file, if one is given. Otherwise a
// default configuration is returned, with the policy file taken from
// policyFile.
func loadConfig(policyFile string) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		c, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		cfg = config.Default()
	}
	if policyFile != "" {
		cfg.Policy.File = policyFile
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger creates a zap logger for a log level name.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	return zc.Build()
}

// consoleFor selects the execution context policies report to.
func consoleFor(cfg *config.Config, logger *zap.Logger) dsp.ExecutionContext {
	if cfg.Logging.Sink == "tracing" {
		return console.Tracing()
	}
	return console.Zap(logger)
}
