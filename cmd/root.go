// Package cmd wires the crawler's command line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "availability-crawler",
		Short: "Scrapes escape-room reservation sites into the availability store.",
		Long: `availability-crawler sweeps the configured reservation sites over a
rolling date window, resolves the scraped theme labels against the canonical
catalog, and upserts per-date availability records with a freshness TTL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute runs the CLI. Startup failures (config, catalog, store) exit
// non-zero; a crawl that started is best-effort and exits zero.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
