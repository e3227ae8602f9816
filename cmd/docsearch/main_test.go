package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCorpus writes docs into a temp corpus and a config file pointing at
// it.
func setupCorpus(t *testing.T, docs map[string]string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	corpusDir := filepath.Join(dir, "corpus")
	require.NoError(t, os.Mkdir(corpusDir, 0o755))
	for name, text := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(corpusDir, name), []byte(text), 0o644))
	}
	cfgPath := filepath.Join(dir, "docsearch.yaml")
	cfgYAML := fmt.Sprintf("corpus:\n  dir: %s\nlogging:\n  level: error\n", corpusDir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o644))
	return cfgPath, corpusDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		configPath, logLevel = "", ""
		searchLimit, searchWindow, searchJSON = 0, 0, false
		crawlSaveDir, crawlPostgres = "", false
		loadURL, loadConcurrency, loadDuration, loadQueries = "http://localhost:8080", 10, 30*time.Second, nil
	}()
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search <query>", searchCmd.Use)
	assert.NotNil(t, searchCmd.Flags().Lookup("limit"))
	assert.NotNil(t, searchCmd.Flags().Lookup("json"))
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	_, err := execute(t, "search")
	assert.Error(t, err)
}

func TestSearchCmd_PrintsRankedResults(t *testing.T) {
	cfgPath, _ := setupCorpus(t, map[string]string{
		"one.txt":   "fox and fox",
		"two.txt":   "a single fox",
		"three.txt": "nothing here",
	})

	out, err := execute(t, "search", "--config", cfgPath, "fox")
	require.NoError(t, err)
	assert.Contains(t, out, `Found 2 documents for "fox"`)
	assert.Contains(t, out, "1. one (one.txt) - 2 occurrences")
	assert.Contains(t, out, "2. two (two.txt) - 1 occurrences")
	assert.NotContains(t, out, "three.txt")
}

func TestSearchCmd_NoResults(t *testing.T) {
	cfgPath, _ := setupCorpus(t, map[string]string{"one.txt": "hello world"})

	out, err := execute(t, "search", "--config", cfgPath, "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_LimitAndJSON(t *testing.T) {
	cfgPath, _ := setupCorpus(t, map[string]string{
		"a.txt": "cat cat cat",
		"b.txt": "cat cat",
		"c.txt": "cat",
	})

	out, err := execute(t, "search", "--config", cfgPath, "--json", "-n", "2", "cat")
	require.NoError(t, err)

	var result struct {
		TotalHits int `json:"total_hits"`
		Results   []struct {
			DocID string `json:"doc_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.TotalHits)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "a.txt", result.Results[0].DocID)
	assert.Equal(t, "b.txt", result.Results[1].DocID)
}

func TestSearchCmd_MissingCorpus(t *testing.T) {
	cfgPath, corpusDir := setupCorpus(t, nil)
	require.NoError(t, os.RemoveAll(corpusDir))

	_, err := execute(t, "search", "--config", cfgPath, "fox")
	assert.Error(t, err)
}

func TestCrawlCmd_SavesIntoCorpus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "crawled page about otters")
	}))
	defer srv.Close()

	cfgPath, corpusDir := setupCorpus(t, nil)
	out, err := execute(t, "crawl", "--config", cfgPath, srv.URL+"/otters")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 pages fetched")

	entries, err := os.ReadDir(corpusDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	out, err = execute(t, "search", "--config", cfgPath, "otters")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 documents")
}

func TestLoadtestCmd_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results":[]}`)
	}))
	defer srv.Close()

	out, err := execute(t, "loadtest", "--url", srv.URL, "-c", "2", "-d", "100ms", "-q", "fox")
	require.NoError(t, err)
	assert.Contains(t, out, "=== Results ===")
	assert.Contains(t, out, "200: ")
}
