package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"shortreel/internal/logging"
)

// CleanAbandoned removes run directories that never reached the terminal
// artifact. Completed runs are left untouched; a fresh run starts alongside
// them. Returns the number of directories purged.
func CleanAbandoned(outputRoot string, logger *logging.Logger) (int, error) {
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output root: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		runDir := filepath.Join(outputRoot, entry.Name())
		artifact := filepath.Join(runDir, FinalArtifactName)

		if _, err := os.Stat(artifact); err == nil {
			continue // Completed run
		}

		if err := os.RemoveAll(runDir); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", runDir, err)
		}
		logger.Infof("purged abandoned run: %s", entry.Name())
		removed++
	}

	return removed, nil
}
