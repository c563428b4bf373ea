package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yiyanglaw/spam-email-backend/internal/config"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/di"
	"github.com/yiyanglaw/spam-email-backend/internal/logging"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

var (
	flags di.CLIFlags
	cfg   *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "spam-email-backend",
	Short: "Spam/ham email classifier and prediction service",
	Long: `spam-email-backend trains a TF-IDF + multinomial naive Bayes classifier on a
labelled email corpus and serves predictions over HTTP.

Run without a subcommand to train (or load a saved model) and serve, like 'serve'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.New(flags.ConfigFile)
		if err != nil {
			return err
		}
		if flags.Verbose {
			cfg.Set("logging.level", "debug")
		}
		if cmd.Flags().Changed("json-log") {
			format := "console"
			if flags.JSONLog {
				format = "json"
			}
			cfg.Set("logging.format", format)
		}
		return nil
	},
	RunE: runServe,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.ConfigFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")

	addServeFlags(rootCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(predictCmd)
}

// bindFlags maps command line flags onto configuration keys. Only flags set on
// the command line override the configuration.
func bindFlags(fs *pflag.FlagSet, bindings map[string]string) error {
	for name, key := range bindings {
		flag := fs.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if err := cfg.GetViper().BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// newCLIContainer builds the container of a one-shot command with a console logger
func newCLIContainer() (*dig.Container, *zap.Logger, error) {
	logger, err := logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	if err != nil {
		return nil, nil, err
	}
	container, err := di.BuildCLIContainer(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container, logger, nil
}

// printMetrics writes the evaluation summary
func printMetrics(w io.Writer, m *core.EvaluationMetrics) {
	fmt.Fprintf(w, "Accuracy: %.4f\n", m.Accuracy)
	fmt.Fprintf(w, "F1 Score: %.4f\n", m.F1)
}
