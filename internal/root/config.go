package root

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/jotter/internal/apperr"
)

// SupportedVersion is the only jotter_version accepted in .jotter/config.
const SupportedVersion = "0"

// Config is the content of <root>/.jotter/config.
type Config struct {
	Version string
	// Links are the linked tree roots in declaration order, as written.
	Links []string
}

// ConfigPath returns the config file location for a tree root.
func ConfigPath(rootDir string) string {
	return filepath.Join(rootDir, MarkerDir, "config")
}

// LoadConfig reads the config of rootDir. A missing file yields an empty
// config with the supported version.
func LoadConfig(rootDir string) (*Config, error) {
	f, err := os.Open(ConfigPath(rootDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{Version: SupportedVersion}, nil
		}
		return nil, fmt.Errorf("root: open config: %w", err)
	}
	defer f.Close()

	cfg, err := ParseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigPath(rootDir), err)
	}
	return cfg, nil
}

// ParseConfig parses whitespace separated "key value" directives.
// Blank lines and lines starting with '#' are ignored.
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line too short: %q", apperr.ErrMalformedConfig, line)
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
		switch fields[0] {
		case "jotter_version":
			cfg.Version = value
		case "link":
			cfg.Links = append(cfg.Links, value)
		default:
			return nil, fmt.Errorf("%w: unknown key %q", apperr.ErrMalformedConfig, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("root: read config: %w", err)
	}
	switch {
	case cfg.Version == "":
		return nil, fmt.Errorf("%w: no jotter_version", apperr.ErrMalformedConfig)
	case cfg.Version != SupportedVersion:
		return nil, fmt.Errorf("%w: unsupported jotter_version %q", apperr.ErrMalformedConfig, cfg.Version)
	}
	return cfg, nil
}

// LinkedRoots resolves cfg.Links against rootDir into absolute paths.
func (c *Config) LinkedRoots(rootDir string) []string {
	out := make([]string, 0, len(c.Links))
	for _, l := range c.Links {
		if !filepath.IsAbs(l) {
			l = filepath.Join(rootDir, l)
		}
		out = append(out, filepath.Clean(l))
	}
	return out
}

// Write serialises the config in the canonical layout.
func (c *Config) Write(w io.Writer) error {
	version := c.Version
	if version == "" {
		version = SupportedVersion
	}
	if _, err := fmt.Fprintf(w, "jotter_version  %s\n\n", version); err != nil {
		return err
	}
	for _, l := range c.Links {
		if _, err := fmt.Fprintf(w, "link    %s\n", l); err != nil {
			return err
		}
	}
	return nil
}
