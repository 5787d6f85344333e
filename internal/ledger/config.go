package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BenjaminSRussell/sitemirror/internal/types"
)

const configFile = "mirror.json"

// SaveConfig persists the run configuration beside the ledger so a
// resume needs only the output directory.
func SaveConfig(outputDir string, config types.Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(outputDir, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// LoadConfig reads a previously saved run configuration
func LoadConfig(outputDir string) (types.Config, error) {
	path := filepath.Join(outputDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return types.Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var config types.Config
	if err := json.Unmarshal(data, &config); err != nil {
		return types.Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}
