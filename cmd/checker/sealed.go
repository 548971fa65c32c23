package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"

	"github.com/RishiKendai/textguard/internal/configs/env"
	"github.com/RishiKendai/textguard/internal/models"
	"github.com/RishiKendai/textguard/internal/plagiarism"
	"github.com/RishiKendai/textguard/internal/repository"
	"github.com/RishiKendai/textguard/internal/vault"
)

// sealedDocuments holds encrypted submissions for one checker run
type sealedDocuments map[string]*models.Document

func (s sealedDocuments) GetDocument(_ context.Context, id string) (*models.Document, error) {
	doc, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, repository.ErrNotFound)
	}
	return doc, nil
}

// compareSealed encrypts every text with the vault and compares what decrypts back,
// the same path stored uploads take on the server.
func compareSealed(ctx context.Context, comparator *plagiarism.Comparator, texts map[string]string, method plagiarism.Method, key []byte) (*plagiarism.Report, error) {
	cipher, err := vault.NewCipher(key)
	if err != nil {
		return nil, err
	}

	docs := make(sealedDocuments, len(texts))
	ids := make([]string, 0, len(texts))
	for name, text := range texts {
		blob, err := cipher.Encrypt([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt %s: %w", name, err)
		}
		docs[name] = &models.Document{ID: name, Filename: name, Ciphertext: blob, Size: len(text)}
		ids = append(ids, name)
	}
	sort.Strings(ids)

	return comparator.CompareFrom(ctx, repository.NewDocumentLoader(docs, cipher), ids, method)
}

// vaultKey uses ENCRYPTION_KEY when set, otherwise a random key for this run only
func vaultKey() ([]byte, error) {
	if key := env.GetEnv("ENCRYPTION_KEY", ""); key != "" {
		return []byte(key), nil
	}
	key := make([]byte, vault.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}
