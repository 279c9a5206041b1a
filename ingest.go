package mcqgen

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"os/exec"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DocumentMIMEType is the only document type accepted for upload.
const DocumentMIMEType = "application/pdf"

// Extractor turns a binary document into plain text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, data []byte) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, data []byte) (string, error) {
	return f(ctx, data)
}

// IngestText accepts pasted text. The text is kept as given; only a blank
// input is rejected.
func IngestText(raw string) (ContentOrigin, error) {
	if strings.TrimSpace(raw) == "" {
		return ContentOrigin{}, ErrEmptyInput
	}
	return ContentOrigin{Content: raw, SourceType: SourceText}, nil
}

// Ingestor accepts uploaded documents and delegates text extraction.
type Ingestor struct {
	extractor Extractor
}

// NewIngestor creates an ingestor using extractor for documents
func NewIngestor(extractor Extractor) *Ingestor {
	return &Ingestor{extractor: extractor}
}

// IngestDocument validates the document type and extracts its text. An empty
// or generic mimeType means the caller did not know it; the type is then
// sniffed from the bytes.
func (in *Ingestor) IngestDocument(ctx context.Context, data []byte, mimeType string) (ContentOrigin, error) {
	detected := normalizeMIME(mimeType)
	if detected == "" || detected == genericMIMEType {
		detected = normalizeMIME(mimetype.Detect(data).String())
	}
	if detected != DocumentMIMEType {
		return ContentOrigin{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, detected)
	}

	VerboseLog("Extracting text from %d byte document", len(data))
	text, err := in.extractor.Extract(ctx, data)
	if err != nil {
		return ContentOrigin{}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return ContentOrigin{}, fmt.Errorf("%w: document contains no text", ErrExtraction)
	}
	return ContentOrigin{Content: text, SourceType: SourcePDF}, nil
}

const genericMIMEType = "application/octet-stream"

func normalizeMIME(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(s)
	if err != nil {
		return strings.ToLower(s)
	}
	return mediaType
}

// PdftotextExtractor shells out to poppler's pdftotext, reading the document
// from stdin.
type PdftotextExtractor struct {
	// Path is the pdftotext binary; empty means look it up on PATH.
	Path string
}

func (p PdftotextExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	bin := p.Path
	if bin == "" {
		bin = "pdftotext"
	}
	cmd := exec.CommandContext(ctx, bin, "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return string(output), nil
}
