// Package config loads SkauTan's JSON settings file, grounded on
// client/config.go's os.Open + json.Decoder load pattern.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the settings a SkauTan instance is launched with.
type Config struct {
	// LibraryRoot is the directory walked for audio files.
	LibraryRoot string `json:"libraryRoot"`
	// DatabasePath is the SQLite file holding the song library, filters,
	// templates, history, and votes.
	DatabasePath string `json:"databasePath"`
	// VoteServerAddr is the address the vote HTTP server listens on, e.g.
	// ":8080". Empty disables the vote server.
	VoteServerAddr string `json:"voteServerAddr"`
	// VoteServerStaticDir serves static assets (the voting page's JS/CSS)
	// under /static/ when non-empty.
	VoteServerStaticDir string `json:"voteServerStaticDir"`
	// BackupDir, if set, is where daily database backups are written.
	BackupDir string `json:"backupDir"`
	// TempoDetectorWorkers is parsed but not read anywhere: tempo analysis
	// runs on the taskpool.New() pool, which is always sized to
	// runtime.GOMAXPROCS(0).
	TempoDetectorWorkers int `json:"tempoDetectorWorkers"`
}

// Load reads and parses the JSON config file at path. Unknown fields are
// rejected, matching the strict-decode convention used across the example
// corpus's config loaders so a typo in a settings file fails loudly
// instead of silently doing nothing.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	d := json.NewDecoder(f)
	d.DisallowUnknownFields()
	if err := d.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LibraryRoot == "" {
		return fmt.Errorf("libraryRoot not set")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("databasePath not set")
	}
	return nil
}
