package mcqgen

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// ExportFilename is the name of the downloaded file.
	ExportFilename = "mcq-questions.csv"
	// ExportMIMEType is the content type of the exported file.
	ExportMIMEType = "text/csv; charset=utf-8"
)

var exportHeader = []string{"Question", "Option A", "Option B", "Option C", "Option D", "Correct Answer"}

// AnswerLetter maps a 0-based option index to A..D. Out of range indexes map
// to the empty string.
func AnswerLetter(index int) string {
	if index < 0 || index >= OptionCount {
		return ""
	}
	return string(rune('A' + index))
}

// WriteCSV writes the header row and one row per question. Fields containing
// a comma, quote or line break are quoted with inner quotes doubled.
func WriteCSV(w io.Writer, questions []Question) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}

	for _, q := range questions {
		row := make([]string, 0, len(exportHeader))
		row = append(row, q.Text)
		for i := 0; i < OptionCount; i++ {
			opt := ""
			if i < len(q.Options) {
				opt = q.Options[i]
			}
			row = append(row, opt)
		}
		row = append(row, AnswerLetter(q.CorrectAnswer))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("%w: %w", ErrExportIO, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	return nil
}

// ExportCSV returns the exported file contents.
func ExportCSV(questions []Question) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, questions); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFile writes ExportFilename into dir and returns its path.
func ExportFile(dir string, questions []Question) (string, error) {
	path := filepath.Join(dir, ExportFilename)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	if err := WriteCSV(f, questions); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExportIO, err)
	}
	return path, nil
}
