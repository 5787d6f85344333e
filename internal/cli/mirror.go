package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BenjaminSRussell/sitemirror/internal/assets"
	"github.com/BenjaminSRussell/sitemirror/internal/crawler"
	"github.com/BenjaminSRussell/sitemirror/internal/fetch"
	"github.com/BenjaminSRussell/sitemirror/internal/ledger"
	"github.com/BenjaminSRussell/sitemirror/internal/renderer"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
	"github.com/BenjaminSRussell/sitemirror/internal/urlutil"
)

const ledgerFile = "mirror_state.db"

var (
	baseURL      string
	outputDir    string
	cookiesPath  string
	maxPages     int
	ignoreLinks  []string
	headless     bool
	ignoreRobots bool
	maxAttempts  int
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Start (or continue) mirroring a website",
	Long: `Mirror a website into a local directory. With --max-pages 0 the whole
reachable page set is discovered first, then downloaded. Re-running against
the same output directory continues where the previous run stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := types.Config{
			BaseURL:      baseURL,
			OutputDir:    outputDir,
			CookiesPath:  cookiesPath,
			MaxPages:     maxPages,
			IgnoreLinks:  ignoreLinks,
			Headless:     headless,
			IgnoreRobots: ignoreRobots,
			MaxAttempts:  maxAttempts,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runMirror(ctx, config, false)
	},
}

func init() {
	mirrorCmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL to start crawling (required)")
	mirrorCmd.Flags().StringVar(&outputDir, "output", "", "Output directory for the mirrored site (required)")
	mirrorCmd.Flags().StringVar(&cookiesPath, "cookies", "", "Path to a cookies JSON file")
	mirrorCmd.Flags().IntVar(&maxPages, "max-pages", 0, "Maximum pages to download (0 = all discovered pages)")
	mirrorCmd.Flags().StringArrayVar(&ignoreLinks, "ignore-link", nil, "Substring of links to ignore (repeatable)")
	mirrorCmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	mirrorCmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "Skip robots.txt checks during discovery")
	mirrorCmd.Flags().IntVar(&maxAttempts, "max-attempts", 3, "Attempts per page before it is parked as errored")

	mirrorCmd.MarkFlagRequired("base-url")
	mirrorCmd.MarkFlagRequired("output")
}

// runMirror wires the collaborators together and executes a crawl
func runMirror(ctx context.Context, config types.Config, retryErrored bool) error {
	config.BaseURL = urlutil.NormalizeBase(config.BaseURL)
	config.ApplyDefaults()

	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := assets.EnsureDirs(config.OutputDir); err != nil {
		return err
	}

	led, err := ledger.Open(filepath.Join(config.OutputDir, ledgerFile))
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer led.Close()

	if retryErrored {
		n, err := led.RequeueErrored()
		if err != nil {
			return err
		}
		logrus.WithField("pages", n).Info("requeued errored pages")
	}

	if err := ledger.SaveConfig(config.OutputDir, config); err != nil {
		return err
	}

	rend, err := renderer.NewChromeRenderer(config.Headless)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer rend.Close()

	if config.CookiesPath != "" {
		cookies, err := renderer.LoadCookies(config.CookiesPath)
		if err != nil {
			logrus.WithError(err).Warn("failed to load cookies, crawling unauthenticated")
		} else if err := rend.SetCookies(cookies); err != nil {
			logrus.WithError(err).Warn("failed to inject cookies, crawling unauthenticated")
		} else {
			logrus.WithField("cookies", len(cookies)).Info("session cookies loaded")
		}
	} else {
		logrus.Info("no cookies file provided, crawling unauthenticated")
	}

	client := fetch.NewClient()
	cache := assets.New(client, config.OutputDir, config.FetchTimeout, led)

	entries, err := led.LoadResources()
	if err != nil {
		return err
	}
	cache.Seed(entries)

	m, err := crawler.New(config, led, rend, cache, client)
	if err != nil {
		return err
	}

	summary, err := m.Run(ctx)
	if err != nil {
		return fmt.Errorf("mirror failed: %w", err)
	}

	printSummary(config, summary)
	return nil
}

func printSummary(config types.Config, summary *types.Summary) {
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("MIRROR RUN COMPLETE")
	fmt.Println("============================================================")
	fmt.Printf("Location: %s\n", config.OutputDir)
	fmt.Printf("\nPages downloaded: %d\n", summary.PagesDownloaded)
	if summary.PagesFailed > 0 {
		fmt.Printf("Pages failed:     %d\n", summary.PagesFailed)
	}
	if summary.PagesQueued > 0 {
		fmt.Printf("Pages still queued for a future run: %d\n", summary.PagesQueued)
	}
	fmt.Println("\nResources downloaded:")
	for _, kind := range types.Kinds {
		fmt.Printf("  %-7s %d\n", kind.Subdir()+":", summary.Resources[kind])
	}
	fmt.Printf("\nOpen %s to view the mirrored website\n", filepath.Join(config.OutputDir, "index.html"))
	fmt.Println("============================================================")
}
