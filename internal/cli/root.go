package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sitemirror",
	Short: "Mirror a JavaScript-rendered website to local disk",
	Long: `sitemirror clones a reachable subset of a website: pages are rendered
through headless Chrome, internal links and assets are rewritten to local
paths, and crawl progress is tracked in a SQLite ledger so interrupted
mirrors resume where they left off.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(mirrorCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
}
