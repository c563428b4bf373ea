package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yiyanglaw/spam-email-backend/internal/factory"
	"go.uber.org/zap"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score a saved model against a labelled CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd.Flags(), map[string]string{
			"corpus": "corpus.path",
			"model":  "model.path",
		}); err != nil {
			return err
		}
		if cfg.GetString("model.path") == "" {
			return errors.New("no model to evaluate: set --model or model.path")
		}

		container, logger, err := newCLIContainer()
		if err != nil {
			return err
		}
		defer logger.Sync()

		return container.Invoke(func(f *factory.ModelFactory) error {
			model, err := f.CreateModelStore().Load(cmd.Context())
			if err != nil {
				return err
			}
			messages, err := f.CreateCorpusLoader().Load(cmd.Context())
			if err != nil {
				return err
			}
			evaluator, err := f.CreateEvaluator()
			if err != nil {
				return err
			}
			metrics, err := evaluator.Evaluate(cmd.Context(), model, messages)
			if err != nil {
				return err
			}

			logger.Debug("Confusion matrix",
				zap.Int("true_positives", metrics.Confusion.TruePositives),
				zap.Int("false_positives", metrics.Confusion.FalsePositives),
				zap.Int("true_negatives", metrics.Confusion.TrueNegatives),
				zap.Int("false_negatives", metrics.Confusion.FalseNegatives))

			out := cmd.OutOrStdout()
			printMetrics(out, metrics)
			fmt.Fprintf(out, "Precision: %.4f\n", metrics.Precision)
			fmt.Fprintf(out, "Recall: %.4f\n", metrics.Recall)
			return nil
		})
	},
}

func init() {
	evaluateCmd.Flags().String("corpus", "", "Path to the labelled CSV to score against")
	evaluateCmd.Flags().String("model", "", "Path of the saved model")
}
