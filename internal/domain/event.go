package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic. Value is
// the export file exactly as uploaded.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Filename returns the upload's file name from the message headers, if any.
func (r RawEvent) Filename() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers[HeaderFilename]
}

// Place is the geocoded location of the count circle.
type Place struct {
	Lat              float64 `json:"lat,omitempty"`
	Lon              float64 `json:"lon,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	Source           string  `json:"source"` // "forward", "reverse", "original", "failed"
}

// Report wraps one extraction with its provenance.
type Report struct {
	ID          string            `json:"id"`
	Filename    string            `json:"filename,omitempty"`
	Format      string            `json:"format"`
	Result      *ExtractionResult `json:"result"`
	Place       *Place            `json:"place,omitempty"`
	ExtractedAt time.Time         `json:"extracted_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Message header names shared by the source and sink topics.
const (
	HeaderFilename    = "filename"
	HeaderCountCode   = "count_code"
	HeaderExtractedAt = "extracted_at"
	HeaderYears       = "years"
)
