package filter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"go.uber.org/zap"
)

// CliFilter classifies a single email and prints a report
type CliFilter struct {
	service EmailClassifier
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCliFilter creates a new CLI filter writing to out
func NewCliFilter(service EmailClassifier, logger *zap.Logger, out io.Writer, verbose bool) *CliFilter {
	return &CliFilter{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// Name identifies the frontend
func (f *CliFilter) Name() string {
	return "cli"
}

// ProcessEmail classifies an email and displays the result
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.Prediction, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))

	if f.verbose {
		preview := []rune(email.Body)
		if len(preview) > 500 {
			preview = append(preview[:500], []rune("...")...)
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", string(preview))
	}

	start := time.Now()
	pred, err := f.service.ClassifyEmail(ctx, email)
	if err != nil {
		f.logger.Error("Failed to classify email", zap.Error(err))
		return nil, err
	}

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Result: %s\n", pred.Display)
	fmt.Fprintf(f.out, "Spam probability: %.4f\n", pred.SpamProbability)
	fmt.Fprintf(f.out, "Model: %s\n", pred.ModelID)
	if f.verbose {
		fmt.Fprintf(f.out, "Cleaned text: %s\n", pred.CleanedText)
		fmt.Fprintf(f.out, "Processing time: %v\n", time.Since(start))
	}
	return pred, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
