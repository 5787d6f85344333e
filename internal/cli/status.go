package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BenjaminSRussell/sitemirror/internal/ledger"
	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

var statusOutputDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger status for a mirror directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		led, err := ledger.Open(filepath.Join(statusOutputDir, ledgerFile))
		if err != nil {
			return fmt.Errorf("failed to open ledger: %w", err)
		}
		defer led.Close()

		counts, err := led.Counts()
		if err != nil {
			return err
		}

		resources, err := led.LoadResources()
		if err != nil {
			return err
		}

		fmt.Printf("Ledger: %s\n", filepath.Join(statusOutputDir, ledgerFile))
		for _, status := range []types.PageStatus{
			types.StatusDownloaded, types.StatusQueued, types.StatusInProgress, types.StatusErrored,
		} {
			fmt.Printf("  %-12s %d\n", status.String()+":", counts[status])
		}
		fmt.Printf("  %-12s %d\n", "resources:", len(resources))

		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusOutputDir, "output", "", "Output directory of the mirror (required)")
	statusCmd.MarkFlagRequired("output")
}
