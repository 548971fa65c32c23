package repository

import (
	"context"
	"fmt"

	"github.com/RishiKendai/textguard/internal/models"
)

// DocumentGetter fetches a stored document with its ciphertext
type DocumentGetter interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}

type Decrypter interface {
	Decrypt(blob []byte) ([]byte, error)
}

// DocumentLoader reads and decrypts stored documents for comparison
type DocumentLoader struct {
	docs   DocumentGetter
	cipher Decrypter
}

func NewDocumentLoader(docs DocumentGetter, cipher Decrypter) *DocumentLoader {
	return &DocumentLoader{docs: docs, cipher: cipher}
}

func (l *DocumentLoader) LoadText(ctx context.Context, id string) (string, error) {
	_, plain, err := l.LoadDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// LoadDocument returns the stored metadata together with the decrypted content
func (l *DocumentLoader) LoadDocument(ctx context.Context, id string) (*models.Document, []byte, error) {
	doc, err := l.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	plain, err := l.cipher.Decrypt(doc.Ciphertext)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt document %s: %w", id, err)
	}
	return doc, plain, nil
}
