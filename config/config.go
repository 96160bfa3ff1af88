// Package config holds the configuration a driver assembles before
// constructing a scanner set: input/output paths, the hash algorithm,
// scanner-defined knobs, and enable/disable commands.
package config

import (
	"fmt"
	"strings"
)

// NoOutdir suppresses file creation and disables every recorder in the
// feature recorder set built from this configuration.
const NoOutdir = ""

// AllScanners is the distinguished command target meaning "every
// registered scanner except those flagged no_all".
const AllScanners = "ALL_SCANNERS"

// HashAlgorithm names the digest used for hash_algorithm-sensitive
// operations: carve content-hashing and the feature file's declared
// algorithm. It is distinct from the fixed SHA1 the scanner set uses
// internally for its seen-set.
type HashAlgorithm string

const (
	MD5    HashAlgorithm = "md5"
	SHA1   HashAlgorithm = "sha1"
	SHA256 HashAlgorithm = "sha256"
)

// ParseHashAlgorithm accepts the algorithm name case-insensitively, with
// or without a hyphen (e.g. "SHA-256", "sha256", "Sha1" all parse).
func ParseHashAlgorithm(s string) (HashAlgorithm, error) {
	norm := strings.ToLower(strings.ReplaceAll(s, "-", ""))
	switch norm {
	case "md5":
		return MD5, nil
	case "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	default:
		return "", fmt.Errorf("config: unknown hash algorithm %q", s)
	}
}

// Command is one queued enable/disable instruction, resolved in order by
// the scanner set during apply_scanner_commands.
type Command struct {
	Scanner string // a registered scanner's name, or AllScanners
	Enable  bool
}

// Config is the complete set of knobs a driver assembles before
// constructing a scanner set and feature recorder set.
type Config struct {
	InputFname string
	Outdir     string

	HashAlgorithm        HashAlgorithm
	ContextWindowDefault int
	MaxDepth             int
	MaxNgramSize         int
	DupDataAlerts        bool

	// SQLDataSourceName, when non-empty, selects the SQL feature-recorder
	// backend (C10) instead of the default file backend for every
	// recorder in the set created from this configuration.
	SQLDataSourceName string

	// Settings holds scanner-defined knobs as flat name/value pairs.
	Settings map[string]string

	// Commands are enable/disable instructions in the order they were
	// specified; applied in order by the scanner set.
	Commands []Command

	Debug DebugFlags
}

// New returns a Config with the spec's defaults: sha1 hashing, a 16-byte
// context window, unlimited-ish recursion bounded at a sane default.
func New(inputFname, outdir string) *Config {
	return &Config{
		InputFname:           inputFname,
		Outdir:               outdir,
		HashAlgorithm:        SHA1,
		ContextWindowDefault: 16,
		MaxDepth:             7,
		MaxNgramSize:         64,
		Settings:             map[string]string{},
		Debug:                LoadDebugFlags(),
	}
}

// Enable queues an enable command for name (or AllScanners).
func (c *Config) Enable(name string) { c.Commands = append(c.Commands, Command{Scanner: name, Enable: true}) }

// Disable queues a disable command for name (or AllScanners).
func (c *Config) Disable(name string) {
	c.Commands = append(c.Commands, Command{Scanner: name, Enable: false})
}

// Set records a scanner-defined knob.
func (c *Config) Set(key, value string) {
	if c.Settings == nil {
		c.Settings = map[string]string{}
	}
	c.Settings[key] = value
}

// Get returns a scanner-defined knob, or "" if unset.
func (c *Config) Get(key string) string { return c.Settings[key] }
