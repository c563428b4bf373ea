package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yiyanglaw/spam-email-backend/internal/adapters/cache"
	"github.com/yiyanglaw/spam-email-backend/internal/di"
	"github.com/yiyanglaw/spam-email-backend/internal/ports"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Train or load the model and serve predictions",
	Long: `Obtain a model, then serve POST /email/predict_spam.

A model saved at model.path is loaded; otherwise one is trained from the corpus
and its held-out accuracy and F1 score are printed before the server starts.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd.Flags())
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("listen", "", "HTTP listen address (default 0.0.0.0:10001)")
	fs.String("corpus", "", "Path to the labelled corpus CSV")
	fs.String("model", "", "Path of a saved model to load instead of training")
	fs.Bool("smtp", false, "Also run the SMTP content filter")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd.Flags(), map[string]string{
		"listen": "server.listen_address",
		"corpus": "corpus.path",
		"model":  "model.path",
		"smtp":   "smtp.enabled",
	}); err != nil {
		return err
	}

	container, err := di.BuildContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return container.Invoke(func(
		logger *zap.Logger,
		result *di.ModelResult,
		frontends []ports.Frontend,
		repo cache.Repository,
	) error {
		return run(ctx, cmd, logger, result, frontends, repo)
	})
}

// run is the main application function that gets all dependencies injected
func run(
	ctx context.Context,
	cmd *cobra.Command,
	logger *zap.Logger,
	result *di.ModelResult,
	frontends []ports.Frontend,
	repo cache.Repository,
) error {
	defer logger.Sync()

	if metrics := result.Model.TestMetrics; metrics != nil {
		printMetrics(cmd.OutOrStdout(), metrics)
	}
	logger.Info("Serving model",
		zap.String("model_id", result.Model.ID),
		zap.Stringer("params", result.Model.Params),
		zap.Bool("trained_at_startup", result.Training != nil))

	started := make([]ports.Frontend, 0, len(frontends))
	defer func() {
		// Stop in reverse start order
		for i := len(started) - 1; i >= 0; i-- {
			if err := started[i].Stop(); err != nil {
				logger.Error("Failed to stop frontend", zap.String("frontend", started[i].Name()), zap.Error(err))
			}
		}
		if repo != nil {
			repo.Stop()
		}
		logger.Info("Shutdown complete")
	}()

	for _, f := range frontends {
		if err := f.Start(); err != nil {
			return fmt.Errorf("failed to start %s frontend: %w", f.Name(), err)
		}
		started = append(started, f)
	}

	<-ctx.Done()
	logger.Info("Shutting down...")
	return nil
}
