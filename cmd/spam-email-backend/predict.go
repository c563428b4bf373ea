package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yiyanglaw/spam-email-backend/internal/adapters/filter"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"go.uber.org/zap"
)

var predictOpts struct {
	file  string
	email bool
}

var predictCmd = &cobra.Command{
	Use:   "predict [text]",
	Short: "Classify a single message",
	Long: `Classify a message given as an argument, read from --file, or read from
standard input. With --email the input is parsed as an RFC 5322 message and its
subject and text parts are classified.

The model is loaded from model.path, or trained from the corpus when none is saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd.Flags(), map[string]string{
			"corpus": "corpus.path",
			"model":  "model.path",
		}); err != nil {
			return err
		}

		input, err := readPredictInput(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		container, logger, err := newCLIContainer()
		if err != nil {
			return err
		}
		defer logger.Sync()

		return container.Invoke(func(service *core.ClassifierService) error {
			out := cmd.OutOrStdout()
			if predictOpts.email {
				email, _, err := filter.ParseEmail(bytes.NewReader(input), "", nil)
				if err != nil {
					return err
				}
				_, err = filter.NewCliFilter(service, logger, out, flags.Verbose).ProcessEmail(cmd.Context(), email)
				return err
			}

			pred, err := service.Predict(cmd.Context(), string(input))
			if err != nil {
				return err
			}
			logger.Debug("Prediction",
				zap.Bool("spam", pred.IsSpam()),
				zap.Float64("spam_probability", pred.SpamProbability),
				zap.String("cleaned_text", pred.CleanedText),
				zap.String("model_id", pred.ModelID))

			fmt.Fprintln(out, pred.Display)
			if flags.Verbose {
				fmt.Fprintf(out, "Spam probability: %.4f\n", pred.SpamProbability)
				fmt.Fprintf(out, "Cleaned text: %s\n", pred.CleanedText)
			}
			return nil
		})
	},
}

func init() {
	predictCmd.Flags().StringVarP(&predictOpts.file, "file", "f", "", "Read the message from this file")
	predictCmd.Flags().BoolVar(&predictOpts.email, "email", false, "Parse the input as an RFC 5322 email")
	predictCmd.Flags().String("corpus", "", "Path to the labelled corpus CSV")
	predictCmd.Flags().String("model", "", "Path of the saved model")
}

func readPredictInput(stdin io.Reader, args []string) ([]byte, error) {
	switch {
	case len(args) == 1 && predictOpts.file != "":
		return nil, errors.New("give either a text argument or --file, not both")
	case len(args) == 1:
		return []byte(args[0]), nil
	case predictOpts.file != "":
		data, err := os.ReadFile(predictOpts.file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", predictOpts.file, err)
		}
		return data, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read standard input: %w", err)
	}
	if !predictOpts.email {
		data = []byte(strings.TrimRight(string(data), "\r\n"))
	}
	return data, nil
}
