package mailfile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
)

// EMLReader implements ports.MailReader for RFC 5322 (.eml) messages
type EMLReader struct{}

// NewEMLReader creates a new reader
func NewEMLReader() *EMLReader {
	return &EMLReader{}
}

// ReadFile reads and converts an .eml file
func (r *EMLReader) ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open message: %w", err)
	}
	defer f.Close()

	return r.ReadMessage(f)
}

// ReadMessage parses a MIME message into scanner text: From and Subject
// header lines, a blank line, the plain-text body and the attachment names.
// HTML-only bodies are converted to text with their links preserved.
func (r *EMLReader) ReadMessage(src io.Reader) (string, error) {
	env, err := enmime.ReadEnvelope(src)
	if err != nil {
		return "", fmt.Errorf("parse message: %w", err)
	}

	body := env.Text
	if strings.TrimSpace(body) == "" && env.HTML != "" {
		body, err = html2text.FromString(env.HTML)
		if err != nil {
			return "", fmt.Errorf("convert html body: %w", err)
		}
	}

	var b strings.Builder
	if from := env.GetHeader("From"); from != "" {
		fmt.Fprintf(&b, "From: %s\n", from)
	}
	if subject := env.GetHeader("Subject"); subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", subject)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")

	names := make([]string, 0, len(env.Attachments))
	for _, part := range env.Attachments {
		if part.FileName != "" {
			names = append(names, part.FileName)
		}
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "\nAttached file: %s\n", strings.Join(names, ", "))
	}

	return b.String(), nil
}
