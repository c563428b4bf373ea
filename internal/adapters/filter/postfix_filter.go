package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/utils"
	"go.uber.org/zap"
)

// EmailClassifier classifies a parsed email
type EmailClassifier interface {
	ClassifyEmail(ctx context.Context, email *core.Email) (*core.Prediction, error)
}

// Forwarder re-injects a processed message into the mail system
type Forwarder interface {
	Forward(sender string, recipients []string, data []byte) error
}

// PostfixOptions configure the content filter
type PostfixOptions struct {
	ListenAddress  string
	ForwardAddress string
	BlockSpam      bool
	SubjectPrefix  string
	SpamHeader     string
	ScoreHeader    string
	ReasonHeader   string
	MaxBodySize    int
}

// PostfixFilter implements a Postfix content filter: mail arrives over SMTP, is
// classified, tagged with headers and handed back to Postfix
type PostfixFilter struct {
	service   EmailClassifier
	logger    *zap.Logger
	opts      PostfixOptions
	forwarder Forwarder
	text      *utils.TextProcessor
	server    *smtp.Server
	addr      net.Addr
}

// NewPostfixFilter creates a new Postfix content filter. A nil forwarder sends
// mail to opts.ForwardAddress over SMTP.
func NewPostfixFilter(service EmailClassifier, logger *zap.Logger, opts PostfixOptions, forwarder Forwarder) *PostfixFilter {
	if forwarder == nil {
		forwarder = &smtpForwarder{address: opts.ForwardAddress, logger: logger}
	}
	return &PostfixFilter{
		service:   service,
		logger:    logger,
		opts:      opts,
		forwarder: forwarder,
		text:      utils.NewTextProcessor(logger),
	}
}

// Name identifies the frontend
func (f *PostfixFilter) Name() string {
	return "smtp"
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	ln, err := net.Listen("tcp", f.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddress, err)
	}

	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = f.opts.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true
	f.addr = ln.Addr()

	f.logger.Info("Postfix filter starting",
		zap.String("address", ln.Addr().String()),
		zap.String("forward_address", f.opts.ForwardAddress))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (f *PostfixFilter) Addr() string {
	if f.addr == nil {
		return ""
	}
	return f.addr.String()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server == nil {
		return nil
	}
	err := f.server.Close()
	f.server = nil
	if err != nil && !errors.Is(err, smtp.ErrServerClosed) {
		return err
	}
	return nil
}

// ProcessEmail classifies an email without going through SMTP
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.Prediction, error) {
	return f.service.ClassifyEmail(ctx, email)
}

// rejectionError is returned to the SMTP client when spam is blocked
func rejectionError(score float64) *smtp.SMTPError {
	return &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 7, 1},
		Message:      fmt.Sprintf("Rejected as spam (score: %.2f)", score),
	}
}

// filterMessage classifies raw message data and returns the rewritten message,
// or a rejection when the message is spam and blocking is enabled
func (f *PostfixFilter) filterMessage(ctx context.Context, sender string, recipients []string, raw []byte) ([]byte, error) {
	email, msg, err := ParseEmail(bytes.NewReader(raw), sender, recipients)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	email.Body = f.text.TruncateText(email.Body, f.opts.MaxBodySize)

	senderDomain := "unknown"
	if at := strings.LastIndex(email.From, "@"); at >= 0 {
		senderDomain = strings.Trim(email.From[at+1:], "<> ")
	}

	pred, analysisErr := f.service.ClassifyEmail(ctx, email)
	var reason string
	if analysisErr != nil {
		f.logger.Error("Failed to classify email",
			zap.Error(analysisErr),
			zap.String("sender", email.From),
			zap.String("sender_domain", senderDomain))
		// Fail open: deliver as ham
		pred = &core.Prediction{Label: core.Ham, Display: core.HamDisplay, ModelID: "error"}
		reason = fmt.Sprintf("Error during analysis: %v", analysisErr)
	} else {
		reason = fmt.Sprintf("%s (model %s)", pred.Display, pred.ModelID)
	}

	if pred.IsSpam() && f.opts.BlockSpam {
		f.logger.Info("Rejecting spam email",
			zap.String("from", email.From),
			zap.String("sender_domain", senderDomain),
			zap.Float64("score", pred.SpamProbability),
			zap.String("model", pred.ModelID))
		return nil, rejectionError(pred.SpamProbability)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "%s: %s\r\n", f.opts.SpamHeader, spamStatus(pred.IsSpam()))
	fmt.Fprintf(&out, "%s: %.4f\r\n", f.opts.ScoreHeader, pred.SpamProbability)
	fmt.Fprintf(&out, "%s: %s\r\n", f.opts.ReasonHeader, reason)
	if analysisErr != nil {
		fmt.Fprintf(&out, "X-Spam-Analysis-Error: %s\r\n", strings.ReplaceAll(analysisErr.Error(), "\n", " "))
	}

	rewriteSubject := pred.IsSpam() && f.opts.SubjectPrefix != "" &&
		!strings.HasPrefix(email.Subject, f.opts.SubjectPrefix)

	// Header order is not preserved by net/mail, so write them sorted for stable output
	keys := make([]string, 0, len(msg.Header))
	for key := range msg.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if isFilterHeader(key, f.opts) {
			continue
		}
		if rewriteSubject && strings.EqualFold(key, "Subject") {
			continue
		}
		for _, value := range msg.Header[key] {
			fmt.Fprintf(&out, "%s: %s\r\n", key, value)
		}
	}
	if rewriteSubject {
		fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", f.opts.SubjectPrefix+email.Subject))
	}
	out.WriteString("\r\n")
	out.Write(rawBody(raw))

	f.logger.Info("Processed email",
		zap.String("from", email.From),
		zap.String("sender_domain", senderDomain),
		zap.Bool("is_spam", pred.IsSpam()),
		zap.Float64("score", pred.SpamProbability),
		zap.String("model", pred.ModelID))

	return out.Bytes(), nil
}

func spamStatus(spam bool) string {
	if spam {
		return "Yes"
	}
	return "No"
}

// isFilterHeader reports whether key is one of the headers this filter sets,
// so stale values from upstream are dropped
func isFilterHeader(key string, opts PostfixOptions) bool {
	for _, h := range []string{opts.SpamHeader, opts.ScoreHeader, opts.ReasonHeader, "X-Spam-Analysis-Error"} {
		if h != "" && strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}

// rawBody returns the undecoded body so MIME parts and attachments survive
func rawBody(raw []byte) []byte {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return raw[crlf+4:]
	case lf >= 0:
		return raw[lf+2:]
	}
	return nil
}

// smtpForwarder sends processed mail back to Postfix using go-smtp
type smtpForwarder struct {
	address string
	logger  *zap.Logger
}

func (s *smtpForwarder) Forward(sender string, recipients []string, data []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", s.address, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	accepted := 0
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			s.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		accepted++
	}
	if accepted == 0 {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// Already delivered
		s.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data classifies the message and forwards it
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := s.filter.filterMessage(ctx, s.sender, s.recipients, raw)
	if err != nil {
		return err
	}

	if err := s.filter.forwarder.Forward(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", s.sender))
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary failure re-injecting message",
		}
	}
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
