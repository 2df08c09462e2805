// internal/capabilities/contracts.go
package capabilities

import "context"

// OCRResult is stage 1 output: raw text plus model confidence in [0,1].
type OCRResult struct {
	Text       string
	Confidence float64
}

// TextExtractor is stage 1: image bytes -> text.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) (OCRResult, error)
}

// Entities is stage 2 output. Absent values are nil, never empty strings;
// a missing confidence is reported as 0.
type Entities struct {
	Department *string
	DatePhrase *string
	TimePhrase *string
	Confidence float64
}

// EntityExtractor is stage 2: raw text -> appointment phrases.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) (Entities, error)
}

// Normalized is stage 3 output: calendar date YYYY-MM-DD and 24-hour HH:mm.
type Normalized struct {
	Date       *string
	Time       *string
	Confidence float64
}

// Normalizer is stage 3: phrases -> concrete date/time, resolved against a
// reference date and timezone fixed at construction.
type Normalizer interface {
	Normalize(ctx context.Context, datePhrase, timePhrase *string) (Normalized, error)
}
