package mcqgen

import "errors"

var (
	// ErrEmptyInput is returned when pasted text is blank.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnsupportedFormat is returned for documents that are not PDFs.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction is returned when no text could be extracted from a document.
	ErrExtraction = errors.New("text extraction failed")
	// ErrNoContent is returned when generating without ingested content.
	ErrNoContent = errors.New("no content to generate from")
	// ErrGenerationService wraps any failure of the generation service call.
	ErrGenerationService = errors.New("generation service failed")
	// ErrNotFound is returned when a question id is not in the store.
	ErrNotFound = errors.New("question not found")
	// ErrExportIO wraps failures of the export writer.
	ErrExportIO = errors.New("export failed")
	// ErrInvalidKey is returned for blank or placeholder API keys.
	ErrInvalidKey = errors.New("invalid api key")

	ErrInvalidConfig  = errors.New("invalid generation config")
	ErrInvalidField   = errors.New("invalid draft field")
	ErrDraftDiscarded = errors.New("draft was discarded")
	// ErrSuperseded is returned when an async result arrives after a newer
	// request or a reset; the result is not applied.
	ErrSuperseded = errors.New("result superseded by a newer request")
	ErrPersist    = errors.New("failed to persist state")
)
