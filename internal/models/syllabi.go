package models

import (
	"time"

	"github.com/BerylCAtieno/syllabus-analyzer/internal/library"
	"github.com/BerylCAtieno/syllabus-analyzer/internal/syllabus"
)

// Syllabus is a registered upload. Extraction and matching results are
// computed on request and never stored.
type Syllabus struct {
	ID          string    `json:"id" db:"id"`
	Filename    string    `json:"filename" db:"filename"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	ContentType string    `json:"content_type" db:"content_type"`
	S3Key       string    `json:"s3_key" db:"s3_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type UploadRequest struct {
	File        []byte
	Filename    string
	ContentType string
}

type UploadResponse struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	Message     string    `json:"message"`
}

// ExtractionResponse carries the selected metadata fields; filename is
// always included.
type ExtractionResponse struct {
	ID          string         `json:"id"`
	Metadata    map[string]any `json:"metadata"`
	ExtractedAt time.Time      `json:"extracted_at"`
}

type AvailabilityResponse struct {
	ID     string                     `json:"id"`
	Report library.AvailabilityReport `json:"report"`
}

// AvailabilityRequest is the body of a batch availability check: metadata
// records as produced by extraction.
type AvailabilityRequest struct {
	Metadata []syllabus.Metadata `json:"metadata"`
}

type BatchAvailabilityResponse struct {
	Results []library.AvailabilityReport `json:"results"`
}

type FieldsResponse struct {
	Fields []syllabus.Field `json:"fields"`
}

type ListResponse struct {
	Syllabi []Syllabus `json:"syllabi"`
}
