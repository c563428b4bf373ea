package filter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"go.uber.org/zap"
)

// keywordClassifier flags anything mentioning "prize"
type keywordClassifier struct {
	err error
}

func (c keywordClassifier) ClassifyEmail(_ context.Context, email *core.Email) (*core.Prediction, error) {
	if c.err != nil {
		return nil, c.err
	}
	label := core.Ham
	prob := 0.1
	if strings.Contains(strings.ToLower(email.Subject+" "+email.Body), "prize") {
		label = core.Spam
		prob = 0.9
	}
	return &core.Prediction{Label: label, Display: core.DisplayLabel(label), SpamProbability: prob, ModelID: "kw"}, nil
}

type recordingForwarder struct {
	mu         sync.Mutex
	sender     string
	recipients []string
	data       []byte
	err        error
}

func (r *recordingForwarder) Forward(sender string, recipients []string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sender = sender
	r.recipients = recipients
	r.data = append([]byte(nil), data...)
	return r.err
}

func (r *recordingForwarder) message() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.data)
}

func testOptions() PostfixOptions {
	return PostfixOptions{
		ListenAddress: "127.0.0.1:0",
		SpamHeader:    "X-Spam-Status",
		ScoreHeader:   "X-Spam-Score",
		ReasonHeader:  "X-Spam-Reason",
		SubjectPrefix: "[SPAM] ",
	}
}

const plainMessage = "From: alice@example.com\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: Lunch\r\n" +
	"\r\n" +
	"See you at noon.\r\n"

const spamMessage = "From: promo@spam.test\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: You won a prize\r\n" +
	"X-Spam-Status: No\r\n" +
	"\r\n" +
	"Claim it now.\r\n"

func TestParseEmailPlain(t *testing.T) {
	email, _, err := ParseEmail(strings.NewReader(plainMessage), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email.From)
	assert.Equal(t, []string{"bob@example.org"}, email.To)
	assert.Equal(t, "Lunch", email.Subject)
	assert.Equal(t, "See you at noon.\r\n", email.Body)
}

func TestParseEmailEnvelopeOverrides(t *testing.T) {
	email, _, err := ParseEmail(strings.NewReader(plainMessage), "bounce@example.com", []string{"carol@example.org"})
	require.NoError(t, err)
	assert.Equal(t, "bounce@example.com", email.From)
	assert.Equal(t, []string{"carol@example.org"}, email.To)
}

func TestParseEmailEncodedSubject(t *testing.T) {
	raw := "Subject: =?UTF-8?B?R3LDvMOfZQ==?=\r\n\r\nbody\r\n"
	email, _, err := ParseEmail(strings.NewReader(raw), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Grüße", email.Subject)
}

func TestExtractTextMultipart(t *testing.T) {
	raw := "Subject: mixed\r\n" +
		"Content-Type: multipart/mixed; boundary=outer\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: multipart/alternative; boundary=inner\r\n" +
		"\r\n" +
		"--inner\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"caf=C3=A9 tomorrow\r\n" +
		"--inner\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<p>caf&eacute; tomorrow</p>\r\n" +
		"--inner--\r\n" +
		"--outer\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"c2Vjb25k\r\n" +
		"IHBhcnQ=\r\n" +
		"--outer\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-1.4\r\n" +
		"--outer--\r\n"

	email, _, err := ParseEmail(strings.NewReader(raw), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "café tomorrow\nsecond part", email.Body)
}

func TestExtractTextHTMLOnly(t *testing.T) {
	raw := "Content-Type: text/html\r\n\r\n<b>hi</b>\r\n"
	email, _, err := ParseEmail(strings.NewReader(raw), "", nil)
	require.NoError(t, err)
	assert.Empty(t, email.Body)
}

func TestFilterMessageHam(t *testing.T) {
	f := NewPostfixFilter(keywordClassifier{}, zap.NewNop(), testOptions(), &recordingForwarder{})

	out, err := f.filterMessage(context.Background(), "alice@example.com", []string{"bob@example.org"}, []byte(plainMessage))
	require.NoError(t, err)

	msg := string(out)
	assert.True(t, strings.HasPrefix(msg, "X-Spam-Status: No\r\nX-Spam-Score: 0.1000\r\n"))
	assert.Contains(t, msg, "Subject: Lunch\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nSee you at noon.\r\n"))
}

func TestFilterMessageSpamTagged(t *testing.T) {
	f := NewPostfixFilter(keywordClassifier{}, zap.NewNop(), testOptions(), &recordingForwarder{})

	out, err := f.filterMessage(context.Background(), "promo@spam.test", []string{"bob@example.org"}, []byte(spamMessage))
	require.NoError(t, err)

	msg := string(out)
	assert.Contains(t, msg, "X-Spam-Status: Yes\r\n")
	assert.Contains(t, msg, "X-Spam-Score: 0.9000\r\n")
	assert.Contains(t, msg, "Subject: [SPAM] You won a prize\r\n")
	assert.NotContains(t, msg, "Subject: You won a prize")
	assert.Equal(t, 1, strings.Count(msg, "X-Spam-Status:"), "upstream status header must be replaced")
}

func TestFilterMessageBlocksSpam(t *testing.T) {
	opts := testOptions()
	opts.BlockSpam = true
	f := NewPostfixFilter(keywordClassifier{}, zap.NewNop(), opts, &recordingForwarder{})

	_, err := f.filterMessage(context.Background(), "promo@spam.test", nil, []byte(spamMessage))
	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 550, smtpErr.Code)
}

func TestFilterMessageFailsOpen(t *testing.T) {
	opts := testOptions()
	opts.BlockSpam = true
	f := NewPostfixFilter(keywordClassifier{err: errors.New("model unavailable")}, zap.NewNop(), opts, &recordingForwarder{})

	out, err := f.filterMessage(context.Background(), "promo@spam.test", nil, []byte(spamMessage))
	require.NoError(t, err)
	assert.Contains(t, string(out), "X-Spam-Status: No\r\n")
	assert.Contains(t, string(out), "X-Spam-Analysis-Error: model unavailable\r\n")
}

// sendPlain delivers a message without STARTTLS, which the filter does not offer
func sendPlain(t *testing.T, addr, from string, to []string, msg string) error {
	t.Helper()
	c, err := smtp.Dial(addr)
	require.NoError(t, err)
	defer c.Close()
	return c.SendMail(from, to, strings.NewReader(msg))
}

func TestPostfixFilterSMTP(t *testing.T) {
	fwd := &recordingForwarder{}
	f := NewPostfixFilter(keywordClassifier{}, zap.NewNop(), testOptions(), fwd)
	require.NoError(t, f.Start())
	t.Cleanup(func() { _ = f.Stop() })

	err := sendPlain(t, f.Addr(), "promo@spam.test", []string{"bob@example.org"}, spamMessage)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return fwd.message() != "" }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, fwd.message(), "X-Spam-Status: Yes")
	fwd.mu.Lock()
	assert.Equal(t, "promo@spam.test", fwd.sender)
	assert.Equal(t, []string{"bob@example.org"}, fwd.recipients)
	fwd.mu.Unlock()
}

func TestPostfixFilterSMTPForwardFailure(t *testing.T) {
	fwd := &recordingForwarder{err: errors.New("postfix down")}
	f := NewPostfixFilter(keywordClassifier{}, zap.NewNop(), testOptions(), fwd)
	require.NoError(t, f.Start())
	t.Cleanup(func() { _ = f.Stop() })

	err := sendPlain(t, f.Addr(), "alice@example.com", []string{"bob@example.org"}, plainMessage)
	var smtpErr *smtp.SMTPError
	require.True(t, errors.As(err, &smtpErr))
	assert.Equal(t, 451, smtpErr.Code)
}

func TestCliFilter(t *testing.T) {
	var out bytes.Buffer
	f := NewCliFilter(keywordClassifier{}, zap.NewNop(), &out, true)

	email, _, err := ParseEmail(strings.NewReader(spamMessage), "", nil)
	require.NoError(t, err)

	pred, err := f.ProcessEmail(context.Background(), email)
	require.NoError(t, err)
	assert.True(t, pred.IsSpam())
	assert.Contains(t, out.String(), "Subject: You won a prize")
	assert.Contains(t, out.String(), "Result: Spam")
	assert.Contains(t, out.String(), "Body preview:")
	assert.NoError(t, f.Start())
	assert.NoError(t, f.Stop())
}
