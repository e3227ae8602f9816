package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/app"
)

var (
	crawlSaveDir  string
	crawlPostgres bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl <url>...",
	Short: "Fetch web pages and store their text as documents",
	Long: `Fetches each URL, extracts the visible text and saves it as a document
named after the URL. By default pages go to the corpus directory so the
next index build picks them up.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCrawl,
}

func init() {
	crawlCmd.Flags().StringVarP(&crawlSaveDir, "out", "o", "", "directory to save pages in (default corpus.dir)")
	crawlCmd.Flags().BoolVar(&crawlPostgres, "postgres", false, "also upsert pages into the postgres documents table")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	saveDir := crawlSaveDir
	if saveDir == "" {
		saveDir = cfg.Corpus.Dir
	}

	pages, err := app.Crawl(cmd.Context(), cfg, args, app.CrawlOptions{
		SaveDir:  saveDir,
		Postgres: crawlPostgres,
	})
	if err != nil {
		return err
	}
	for _, id := range pages.IDs() {
		cmd.Printf("saved %s\n", id)
	}
	cmd.Printf("%d of %d pages fetched\n", len(pages), len(args))
	return nil
}
