package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"go.uber.org/zap"
)

// ErrMissingColumn is returned when the header lacks a configured column
var ErrMissingColumn = errors.New("missing column")

const utf8BOM = "\ufeff"

// Options describes the layout of a labelled message CSV
type Options struct {
	Path        string
	TextColumn  string
	LabelColumn string
	SpamLabel   string
}

// DefaultOptions returns the layout of the SMS/email spam collection
func DefaultOptions() Options {
	return Options{
		Path:        "email_s.csv",
		TextColumn:  "Message",
		LabelColumn: "Category",
		SpamLabel:   "spam",
	}
}

// Loader reads labelled messages from a CSV file
type Loader struct {
	opts   Options
	logger *zap.Logger
}

// NewLoader creates a new Loader
func NewLoader(opts Options, logger *zap.Logger) *Loader {
	return &Loader{
		opts:   opts,
		logger: logger,
	}
}

// Load reads every record of the configured CSV file
func (l *Loader) Load(ctx context.Context) ([]core.Message, error) {
	f, err := os.Open(l.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	messages, err := Read(ctx, f, l.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", l.opts.Path, err)
	}

	spam := 0
	for _, m := range messages {
		if m.Label == core.Spam {
			spam++
		}
	}
	l.logger.Info("Corpus loaded",
		zap.String("path", l.opts.Path),
		zap.Int("messages", len(messages)),
		zap.Int("spam", spam),
		zap.Int("ham", len(messages)-spam))

	return messages, nil
}

// Read parses labelled messages from CSV data with a header row. A record equal to
// the spam label is class 1, anything else class 0. Short rows yield empty fields;
// rows with more fields than the header are an error.
func Read(ctx context.Context, r io.Reader, opts Options) ([]core.Message, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	textIdx, err := columnIndex(header, opts.TextColumn)
	if err != nil {
		return nil, err
	}
	labelIdx, err := columnIndex(header, opts.LabelColumn)
	if err != nil {
		return nil, err
	}

	var messages []core.Message
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(header), len(record))
		}

		label := core.Ham
		if field(record, labelIdx) == opts.SpamLabel {
			label = core.Spam
		}
		messages = append(messages, core.Message{Text: field(record, textIdx), Label: label})
	}

	return messages, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w %q in header %v", ErrMissingColumn, name, header)
}

func field(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}
