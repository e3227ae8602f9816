// Package corpus loads the documents the index is built from. A Provider
// returns a complete id -> text map; the engine always rebuilds from a full
// load, so providers never report deltas.
//
// Document ids follow the file-name convention: a file's base name, or for
// crawled pages the URL with its scheme and slashes removed plus ".txt".
package corpus

import (
	"context"
	"fmt"
	"maps"
	"strings"
)

// Corpus maps document id to full text.
type Corpus map[string]string

// Load returns a copy of c, so a literal Corpus can be used as a Provider.
func (c Corpus) Load(context.Context) (Corpus, error) {
	return maps.Clone(c), nil
}

// Provider loads a complete corpus.
type Provider interface {
	Load(ctx context.Context) (Corpus, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context) (Corpus, error)

func (f ProviderFunc) Load(ctx context.Context) (Corpus, error) {
	return f(ctx)
}

// SkipFunc is told about each document a provider could not read.
type SkipFunc func(id string, err error)

// Title is the display title for a document id: the id without its ".txt"
// suffix.
func Title(id string) string {
	return strings.TrimSuffix(id, ".txt")
}

// MultiProvider loads each provider in order and merges the results. When
// two providers return the same id the later one wins. Any provider error
// fails the whole load.
type MultiProvider []Provider

func (m MultiProvider) Load(ctx context.Context) (Corpus, error) {
	merged := make(Corpus)
	for i, p := range m {
		docs, err := p.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("corpus provider %d: %w", i, err)
		}
		maps.Copy(merged, docs)
	}
	return merged, nil
}
