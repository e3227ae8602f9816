package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bleve", cfg.Tokenizer.Segmenter)
	assert.Equal(t, 20, cfg.Search.ContextWindow)
	assert.Equal(t, []string{".txt"}, cfg.Corpus.Extensions)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
tokenizer:
  segmenter: uax29
  stem: true
corpus:
  dir: /srv/docs
  encoding: gbk
  debounce: 2s
search:
  contextWindow: 40
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	t.Setenv("DS_CORPUS_DIR", "/override")
	t.Setenv("DS_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "uax29", cfg.Tokenizer.Segmenter)
	assert.True(t, cfg.Tokenizer.Stem)
	assert.Equal(t, "/override", cfg.Corpus.Dir)
	assert.Equal(t, "gbk", cfg.Corpus.Encoding)
	assert.Equal(t, 2*time.Second, cfg.Corpus.Debounce)
	assert.Equal(t, 40, cfg.Search.ContextWindow)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep defaults
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoadRejectsUnknownSegmenter(t *testing.T) {
	t.Setenv("DS_TOKENIZER_SEGMENTER", "jieba")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokenizer.segmenter")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
