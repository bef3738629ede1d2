package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

const configFileName = "refaudit.toml"

type fileConfig struct {
	Audit auditConfig `toml:"audit"`
}

type auditConfig struct {
	Dir         string   `toml:"dir"`
	Manifest    string   `toml:"manifest"`
	Marker      string   `toml:"marker"`
	Suppress    []string `toml:"suppress"`
	AllowUnsafe bool     `toml:"allow_unsafe"`
	Include     []string `toml:"include"`
	Exclude     []string `toml:"exclude"`
	Jobs        int      `toml:"jobs"`
	Lenient     bool     `toml:"lenient"`
}

// loadedConfig is a parsed refaudit.toml. Dir and Manifest are absolute.
type loadedConfig struct {
	Path  string
	Root  string
	Audit auditConfig
	meta  toml.MetaData
}

// defined reports whether [audit].key was present in the file.
func (c *loadedConfig) defined(key string) bool {
	return c != nil && c.meta.IsDefined("audit", key)
}

func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadConfig(path string) (*loadedConfig, error) {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("audit") {
		return nil, fmt.Errorf("%s: missing [audit]", path)
	}
	if !meta.IsDefined("audit", "dir") || strings.TrimSpace(cfg.Audit.Dir) == "" {
		return nil, fmt.Errorf("%s: missing [audit].dir", path)
	}
	if !meta.IsDefined("audit", "manifest") || strings.TrimSpace(cfg.Audit.Manifest) == "" {
		return nil, fmt.Errorf("%s: missing [audit].manifest", path)
	}
	if cfg.Audit.Jobs < 0 {
		return nil, fmt.Errorf("%s: [audit].jobs must not be negative", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	root := filepath.Dir(abs)
	cfg.Audit.Dir = resolveAgainst(root, cfg.Audit.Dir)
	cfg.Audit.Manifest = resolveAgainst(root, cfg.Audit.Manifest)
	return &loadedConfig{Path: abs, Root: root, Audit: cfg.Audit, meta: meta}, nil
}

func resolveAgainst(root, p string) string {
	p = filepath.FromSlash(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// configFor loads the file named by --config, or the nearest refaudit.toml
// above the working directory. A missing file is not an error unless it was
// named explicitly.
func configFor(cmd *cobra.Command) (*loadedConfig, error) {
	explicit, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if explicit != "" {
		return loadConfig(explicit)
	}
	path, ok, err := findConfig(".")
	if err != nil || !ok {
		return nil, err
	}
	logger.Debug("using config " + path)
	return loadConfig(path)
}
