package main

import (
	"github.com/spf13/cobra"
	"github.com/yiyanglaw/spam-email-backend/internal/factory"
	"go.uber.org/zap"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model on the corpus and report held-out scores",
	Long: `Load the corpus, hold out a test split, grid search the pipeline with
cross-validation and evaluate the winner on the held-out split.

With --model the fitted model is saved for 'serve', 'evaluate' and 'predict';
with --report a YAML summary of every grid candidate is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd.Flags(), map[string]string{
			"corpus":    "corpus.path",
			"model":     "model.path",
			"report":    "model.report_path",
			"seed":      "training.seed",
			"folds":     "training.folds",
			"workers":   "training.workers",
			"scoring":   "training.scoring",
			"normalize": "training.normalize_corpus",
		}); err != nil {
			return err
		}
		if cfg.GetString("model.path") != "" {
			cfg.Set("model.save", true)
		}

		container, logger, err := newCLIContainer()
		if err != nil {
			return err
		}
		defer logger.Sync()

		return container.Invoke(func(f *factory.ModelFactory) error {
			result, err := f.Train(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("Training complete",
				zap.String("model_id", result.Model.ID),
				zap.Stringer("best_params", result.Model.Params),
				zap.Float64("cv_score", result.Model.BestScore),
				zap.Int("train", result.TrainCount),
				zap.Int("test", result.TestCount),
				zap.Duration("duration", result.Duration))
			printMetrics(cmd.OutOrStdout(), result.Model.TestMetrics)
			return nil
		})
	},
}

func init() {
	trainCmd.Flags().String("corpus", "", "Path to the labelled corpus CSV")
	trainCmd.Flags().String("model", "", "Save the trained model to this path")
	trainCmd.Flags().String("report", "", "Write a YAML training report to this path")
	trainCmd.Flags().Uint64("seed", 42, "Seed of the train/test split")
	trainCmd.Flags().Int("folds", 5, "Cross-validation folds")
	trainCmd.Flags().Int("workers", 0, "Parallel grid search workers (0 = CPU count)")
	trainCmd.Flags().String("scoring", "f1", "Grid search metric: f1, accuracy, precision or recall")
	trainCmd.Flags().Bool("normalize", true, "Normalize the corpus before fitting")
}
