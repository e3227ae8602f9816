package corpus

import (
	"context"
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// DocumentStore is a database holding documents by id. *postgres.Client
// satisfies it.
type DocumentStore interface {
	LoadDocuments(ctx context.Context) (map[string]string, error)
}

// StoreProvider loads the corpus from a DocumentStore.
type StoreProvider struct {
	Store DocumentStore
}

func (p StoreProvider) Load(ctx context.Context) (Corpus, error) {
	docs, err := p.Store.LoadDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w: %w", apperrors.ErrCorpusUnavailable, err)
	}
	return Corpus(docs), nil
}
