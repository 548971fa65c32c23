package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/RishiKendai/textguard/internal/metrics"
	"github.com/RishiKendai/textguard/internal/models"
	"github.com/RishiKendai/textguard/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const allowedExtension = ".txt"

// ErrInvalidSubmission marks a submission rejected before storage; retrying it cannot succeed
var ErrInvalidSubmission = errors.New("invalid submission")

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

type DocumentStore interface {
	InsertDocument(ctx context.Context, doc *models.Document) error
}

type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
}

type Service struct {
	cipher    Encrypter
	documents DocumentStore
	maxBytes  int64
}

func NewService(cipher Encrypter, documents DocumentStore, maxBytes int64) *Service {
	return &Service{
		cipher:    cipher,
		documents: documents,
		maxBytes:  maxBytes,
	}
}

// Ingest validates a submission, encrypts its content and stores it.
// A stream redelivery of an already stored documentId is not an error.
func (s *Service) Ingest(ctx context.Context, submission *models.Submission) (*models.Document, error) {
	filename, err := SanitizeFilename(submission.Filename)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(submission.Content)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidSubmission, filename, s.maxBytes)
	}
	if !utf8.Valid(submission.Content) {
		return nil, fmt.Errorf("%w: %s is not UTF-8 text", ErrInvalidSubmission, filename)
	}
	if strings.TrimSpace(string(submission.Content)) == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidSubmission, filename)
	}

	ciphertext, err := s.cipher.Encrypt(submission.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt %s: %w", filename, err)
	}

	id := submission.DocumentID
	if id == "" {
		id = uuid.NewString()
	}
	source := submission.Source
	if source == "" {
		source = models.SourceUpload
	}

	doc := &models.Document{
		ID:         id,
		Filename:   filename,
		Ciphertext: ciphertext,
		Size:       len(submission.Content),
		Source:     source,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.documents.InsertDocument(ctx, doc)
	if errors.Is(err, repository.ErrDuplicate) {
		log.Info().Str("documentId", id).Msg("Document already stored, skipping")
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	metrics.IngestedDocuments.WithLabelValues(source).Inc()
	log.Debug().
		Str("documentId", id).
		Str("filename", filename).
		Str("source", source).
		Int("size", doc.Size).
		Msg("Document ingested")

	return doc, nil
}

// SanitizeFilename reduces name to a safe base name and requires a .txt extension
func SanitizeFilename(name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if !strings.EqualFold(filepath.Ext(base), allowedExtension) {
		return "", fmt.Errorf("%w: invalid file type: %q", ErrInvalidSubmission, name)
	}

	base = strings.Join(strings.Fields(base), "_")
	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimLeft(base, "._")

	if base == "" || strings.EqualFold(base, allowedExtension[1:]) || !strings.EqualFold(filepath.Ext(base), allowedExtension) {
		return "", fmt.Errorf("%w: invalid filename: %q", ErrInvalidSubmission, name)
	}
	return base, nil
}
