package mcqgen

import (
	"context"
	"errors"
	"testing"
)

func TestIngestText(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr error
	}{
		{name: "plain text", raw: "The capital of France is Paris."},
		{name: "surrounding whitespace kept", raw: "  Paris  \n"},
		{name: "empty", raw: "", wantErr: ErrEmptyInput},
		{name: "only whitespace", raw: " \n\t ", wantErr: ErrEmptyInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IngestText(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("IngestText() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.Content != tt.raw || got.SourceType != SourceText {
				t.Errorf("IngestText() = %+v, want content %q from text", got, tt.raw)
			}
		})
	}
}

func TestIngestDocument(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n%%EOF\n")
	extractErr := errors.New("corrupt xref table")

	tests := []struct {
		name      string
		data      []byte
		mimeType  string
		extractor Extractor
		want      string
		wantErr   error
	}{
		{
			name:      "declared pdf",
			data:      pdfBytes,
			mimeType:  "application/pdf",
			extractor: staticExtractor("Some extracted text.", nil),
			want:      "Some extracted text.",
		},
		{
			name:      "declared pdf with parameters",
			data:      pdfBytes,
			mimeType:  "application/pdf; name=notes.pdf",
			extractor: staticExtractor("text", nil),
			want:      "text",
		},
		{
			name:      "sniffed pdf",
			data:      pdfBytes,
			extractor: staticExtractor("sniffed", nil),
			want:      "sniffed",
		},
		{
			name:      "generic type is sniffed",
			data:      pdfBytes,
			mimeType:  "application/octet-stream",
			extractor: staticExtractor("generic", nil),
			want:      "generic",
		},
		{
			name:      "declared word document",
			data:      pdfBytes,
			mimeType:  "application/msword",
			extractor: staticExtractor("unused", nil),
			wantErr:   ErrUnsupportedFormat,
		},
		{
			name:      "sniffed plain text",
			data:      []byte("just some text"),
			extractor: staticExtractor("unused", nil),
			wantErr:   ErrUnsupportedFormat,
		},
		{
			name:      "extractor fails",
			data:      pdfBytes,
			mimeType:  "application/pdf",
			extractor: staticExtractor("", extractErr),
			wantErr:   ErrExtraction,
		},
		{
			name:      "extractor finds no text",
			data:      pdfBytes,
			mimeType:  "application/pdf",
			extractor: staticExtractor("  \n ", nil),
			wantErr:   ErrExtraction,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewIngestor(tt.extractor)
			got, err := in.IngestDocument(context.Background(), tt.data, tt.mimeType)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("IngestDocument() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.Content != tt.want || got.SourceType != SourcePDF {
				t.Errorf("IngestDocument() = %+v, want %q from pdf", got, tt.want)
			}
		})
	}
}
