package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadSettingsFile reads KEY=VALUE lines from path into c.Settings.
// Blank lines and lines beginning with '#' are ignored. This exists so a
// driver can seed scanner knobs from a file without hand-parsing one
// line at a time, covering the same ground as a dotenv loader without
// the dependency (see DESIGN.md).
func (c *Config) LoadSettingsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: load settings %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("config: malformed settings line %q in %s", line, path)
		}
		c.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: load settings %s: %w", path, err)
	}
	return nil
}
