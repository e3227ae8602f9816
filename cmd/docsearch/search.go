package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/app"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
)

var (
	searchLimit  int
	searchWindow int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the corpus once and print the ranked results",
	Long: `Builds the index from the configured corpus, runs one query and prints
each matching document with the text around every occurrence. Documents
are ordered by how often the query terms appear in them.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of documents (default search.defaultLimit)")
	searchCmd.Flags().IntVarP(&searchWindow, "window", "w", 0, "characters of context on each side of a match")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Redis.Enabled = false
	cfg.Kafka.Enabled = false
	cfg.Corpus.Watch = false

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Rebuild(ctx); err != nil {
		return err
	}
	result, err := a.Engine.Search(ctx, args[0], indexer.SearchOptions{
		Limit:  searchLimit,
		Window: searchWindow,
	})
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(result.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	cmd.Printf("Found %d documents for %q\n\n", result.TotalHits, result.Query)
	for i, r := range result.Results {
		cmd.Printf("%d. %s (%s) - %d occurrences\n", i+1, r.Title, r.DocID, r.TotalFrequency)
		for _, s := range r.Snippets {
			cmd.Printf("   ...%s...\n", oneLine(s.Text))
		}
		cmd.Println()
	}
	if shown := len(result.Results); shown < result.TotalHits {
		cmd.Printf("Showing %d of %d. Use --limit for more.\n", shown, result.TotalHits)
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
