package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BenjaminSRussell/sitemirror/internal/ledger"
)

var (
	resumeOutputDir string
	retryErrored    bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a previous mirror run",
	Long: `Resume mirroring using the configuration and ledger saved in the output
directory. Pages already downloaded are never re-fetched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := ledger.LoadConfig(resumeOutputDir)
		if err != nil {
			return fmt.Errorf("failed to load saved run config: %w", err)
		}
		config.OutputDir = resumeOutputDir

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runMirror(ctx, config, retryErrored)
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeOutputDir, "output", "", "Output directory of the run to resume (required)")
	resumeCmd.Flags().BoolVar(&retryErrored, "retry-errored", false, "Give terminally errored pages a fresh attempt budget")

	resumeCmd.MarkFlagRequired("output")
}
