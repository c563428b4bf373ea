package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"go.uber.org/zap"
)

func TestRead(t *testing.T) {
	data := "Category,Message\n" +
		"ham,\"Go until jurong point, crazy..\"\n" +
		"spam,Free entry in 2 a wkly comp\n" +
		"Spam,case matters\n" +
		"ham,\n" +
		"spam\n"

	messages, err := Read(context.Background(), strings.NewReader(data), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []core.Message{
		{Text: "Go until jurong point, crazy..", Label: core.Ham},
		{Text: "Free entry in 2 a wkly comp", Label: core.Spam},
		{Text: "case matters", Label: core.Ham},
		{Text: "", Label: core.Ham},
		{Text: "", Label: core.Spam},
	}, messages)
}

func TestReadColumnOrderAndBOM(t *testing.T) {
	data := "\ufeffMessage,Extra,Category\nhello there,x,ham\nwin cash,y,spam\n"

	messages, err := Read(context.Background(), strings.NewReader(data), DefaultOptions())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, core.Message{Text: "hello there", Label: core.Ham}, messages[0])
	assert.Equal(t, core.Message{Text: "win cash", Label: core.Spam}, messages[1])
}

func TestReadCustomColumns(t *testing.T) {
	opts := Options{TextColumn: "body", LabelColumn: "class", SpamLabel: "1"}
	messages, err := Read(context.Background(), strings.NewReader("class,body\n1,buy now\n0,hi\n"), opts)
	require.NoError(t, err)
	assert.Equal(t, []core.Message{{Text: "buy now", Label: core.Spam}, {Text: "hi", Label: core.Ham}}, messages)
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Read(ctx, strings.NewReader("Category,Text\nham,hi\n"), DefaultOptions())
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Read(ctx, strings.NewReader(""), DefaultOptions())
	assert.Error(t, err)

	_, err = Read(ctx, strings.NewReader("Category,Message\nham,hi,extra\n"), DefaultOptions())
	assert.Error(t, err)

	_, err = Read(ctx, strings.NewReader("Category,Message\nham,\"unterminated\n"), DefaultOptions())
	assert.Error(t, err)
}

func TestLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email.csv")
	require.NoError(t, os.WriteFile(path, []byte("Category,Message\nham,hi\nspam,win\n"), 0o644))

	opts := DefaultOptions()
	opts.Path = path
	messages, err := NewLoader(opts, zap.NewNop()).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	opts.Path = filepath.Join(t.TempDir(), "missing.csv")
	_, err = NewLoader(opts, zap.NewNop()).Load(context.Background())
	assert.Error(t, err)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "email_s.csv", opts.Path)
	assert.Equal(t, "Message", opts.TextColumn)
	assert.Equal(t, "Category", opts.LabelColumn)
}
