package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultPresetsDir is the default directory for argument preset files
const DefaultPresetsDir = "./presets"

// GetPresetArgs reads the pg_restore arguments stored for a preset in
// {presetsDir}/{name}.args: one argument per line, blank lines and lines
// starting with # ignored. If presetsDir is empty, uses DefaultPresetsDir.
func GetPresetArgs(name, presetsDir string) ([]string, error) {
	if presetsDir == "" {
		presetsDir = DefaultPresetsDir
	}

	// Sanitize preset name for file path
	safeName := strings.ReplaceAll(name, "/", "_")

	path := filepath.Join(presetsDir, safeName+".args")

	content, err := os.ReadFile(path) // #nosec G304 -- path is constructed from sanitized preset name and configured directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("preset '%s' not found (expected %s): %w", name, path, err)
		}
		return nil, fmt.Errorf("failed to read preset from %s: %w", path, err)
	}

	var args []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args = append(args, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}

	return args, nil
}
