package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
)

// maxMultipartDepth bounds recursion into nested multipart bodies
const maxMultipartDepth = 5

var headerDecoder = &mime.WordDecoder{}

// decodeEncodedHeader decodes RFC 2047 encoded words such as =?UTF-8?B?...?=
func decodeEncodedHeader(value string) (string, error) {
	return headerDecoder.DecodeHeader(value)
}

// ParseEmail reads an RFC 5322 message into an Email. envelopeFrom and
// envelopeTo override the header addresses when set.
func ParseEmail(r io.Reader, envelopeFrom string, envelopeTo []string) (*core.Email, *mail.Message, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, nil, err
	}

	body, err := extractTextFromMessage(msg)
	if err != nil {
		return nil, nil, err
	}

	email := &core.Email{
		From:    envelopeFrom,
		To:      envelopeTo,
		Body:    body,
		Headers: make(map[string][]string, len(msg.Header)),
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}
	email.Subject = subject

	if email.From == "" {
		email.From = msg.Header.Get("From")
	}
	if len(email.To) == 0 {
		if to := msg.Header.Get("To"); to != "" {
			for _, addr := range strings.Split(to, ",") {
				email.To = append(email.To, strings.TrimSpace(addr))
			}
		}
	}
	return email, msg, nil
}

// extractTextFromMessage returns the text/plain content of a message, decoding
// transfer encodings and walking nested multipart bodies
func extractTextFromMessage(msg *mail.Message) (string, error) {
	return extractPart(textproto.MIMEHeader(msg.Header), msg.Body, 0)
}

func extractPart(header textproto.MIMEHeader, body io.Reader, depth int) (string, error) {
	contentType := header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if contentType == "" || err != nil {
		// RFC 2045 default
		mediaType = "text/plain"
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		if mediaType != "text/plain" {
			return "", nil
		}
		data, err := io.ReadAll(decodeTransfer(header.Get("Content-Transfer-Encoding"), body))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	boundary := params["boundary"]
	if boundary == "" || depth >= maxMultipartDepth {
		return "", nil
	}

	var text bytes.Buffer
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep what was readable before the malformed part
			if text.Len() > 0 {
				return text.String(), nil
			}
			return "", err
		}

		partText, err := extractPart(part.Header, part, depth+1)
		if err != nil {
			continue
		}
		if partText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(partText)

		// multipart/alternative carries the same content in several forms
		if mediaType == "multipart/alternative" {
			break
		}
	}
	return text.String(), nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, &newlineStripper{r: r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// newlineStripper drops CR and LF so line-wrapped base64 decodes
type newlineStripper struct {
	r io.Reader
}

func (s *newlineStripper) Read(p []byte) (int, error) {
	for {
		n, err := s.r.Read(p)
		out := 0
		for _, b := range p[:n] {
			if b != '\r' && b != '\n' {
				p[out] = b
				out++
			}
		}
		if out > 0 || err != nil {
			return out, err
		}
	}
}
