// Package scan implements the document compliance pipeline: text
// extraction from an uploaded file, deterministic prompt assembly,
// and invocation plus strict validation of the external reasoning
// service.
package scan

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnreadableDocument is returned when an uploaded file cannot be
	// parsed as a document of the expected format. It is a per-document
	// failure, not a deployment problem.
	ErrUnreadableDocument = errors.New("unreadable document")
	// ErrNoExtractorAvailable is returned by NewExtractor when the
	// configured extractor kind resolves to nothing. It is a
	// configuration-level failure and should abort startup.
	ErrNoExtractorAvailable = errors.New("no document extractor available")
)

// TextExtractor converts an uploaded binary into plain text. The
// concrete adapter is resolved once at startup; there is no per-call
// capability probing.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// NewExtractor resolves the adapter for the given kind. An empty kind
// defaults to PDF. Unknown kinds fail with ErrNoExtractorAvailable so
// a misconfigured deployment dies at boot instead of per request.
func NewExtractor(kind string) (TextExtractor, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "pdf":
		return &pdfExtractor{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown extractor kind %q", ErrNoExtractorAvailable, kind)
	}
}

// pdfExtractor extracts plain text from PDF bytes.
type pdfExtractor struct{}

// Extract parses the PDF and concatenates its text content. The pdf
// library panics on some malformed inputs, so the recover maps any
// such blowup onto ErrUnreadableDocument instead of letting a raw
// panic escape to the handler.
func (e *pdfExtractor) Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadableDocument, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	return buf.String(), nil
}
