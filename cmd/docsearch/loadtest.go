package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/loadtest"
)

var (
	loadURL         string
	loadConcurrency int
	loadDuration    time.Duration
	loadQueries     []string
)

var defaultLoadQueries = []string{
	"search",
	"index",
	"document",
	"query",
	"inverted index",
	"full text search",
	"ranking",
	"context",
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Send concurrent searches to a running server and report latency",
	Args:  cobra.NoArgs,
	RunE:  runLoadtest,
}

func init() {
	loadtestCmd.Flags().StringVar(&loadURL, "url", "http://localhost:8080", "base URL of the search service")
	loadtestCmd.Flags().IntVarP(&loadConcurrency, "concurrency", "c", 10, "number of concurrent workers")
	loadtestCmd.Flags().DurationVarP(&loadDuration, "duration", "d", 30*time.Second, "test duration")
	loadtestCmd.Flags().StringArrayVarP(&loadQueries, "query", "q", nil, "query to send (repeatable)")
	rootCmd.AddCommand(loadtestCmd)
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	queries := loadQueries
	if len(queries) == 0 {
		queries = defaultLoadQueries
	}
	cmd.Printf("Target:      %s\n", loadURL)
	cmd.Printf("Concurrency: %d\n", loadConcurrency)
	cmd.Printf("Duration:    %s\n\n", loadDuration)

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        loadConcurrency * 2,
			MaxIdleConnsPerHost: loadConcurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	report, err := loadtest.Run(cmd.Context(), client, loadtest.Config{
		BaseURL:     loadURL,
		Concurrency: loadConcurrency,
		Duration:    loadDuration,
		Queries:     queries,
	})
	if err != nil {
		return err
	}
	report.Write(cmd.OutOrStdout())
	if report.Success == 0 {
		return errors.New("no request succeeded; is the service running?")
	}
	return nil
}
