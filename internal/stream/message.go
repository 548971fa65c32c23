package stream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RishiKendai/textguard/internal/models"
)

// StreamMessage is a raw entry read from the submissions stream
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

var ErrMalformedMessage = errors.New("malformed stream message")

// ParseSubmission extracts a submission from the filename, content and optional documentId fields
func ParseSubmission(msg *StreamMessage) (*models.Submission, error) {
	filename := strings.TrimSpace(msg.Fields["filename"])
	if filename == "" {
		return nil, fmt.Errorf("%w %s: missing filename", ErrMalformedMessage, msg.ID)
	}
	content, ok := msg.Fields["content"]
	if !ok {
		return nil, fmt.Errorf("%w %s: missing content", ErrMalformedMessage, msg.ID)
	}

	return &models.Submission{
		DocumentID: strings.TrimSpace(msg.Fields["documentId"]),
		Filename:   filename,
		Content:    []byte(content),
		Source:     models.SourceStream,
	}, nil
}

func stringFields(values map[string]interface{}) map[string]string {
	fields := make(map[string]string, len(values))
	for key, val := range values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
	}
	return fields
}
