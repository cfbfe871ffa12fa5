// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Submit   SubmitConfig   `toml:"submit"`
	Analysis AnalysisConfig `toml:"analysis"`
	Log      LogConfig      `toml:"log"`
}

// SubmitConfig maps batch-submission settings.
type SubmitConfig struct {
	MaxEvents      *int    `toml:"max-events"`
	Tarball        *string `toml:"tarball"`
	CMSSWDir       *string `toml:"cmssw-dir"`
	LogDir         *string `toml:"log-dir"`
	Executable     *string `toml:"executable"`
	Image          *string `toml:"image"`
	Redirector     *string `toml:"redirector"`
	StoreBase      *string `toml:"store-base"`
	DirPrefix      *string `toml:"dir-prefix"`
	SubmitCommand  *string `toml:"submit-command"`
	StorageCommand *string `toml:"storage-command"`
	ArchiveCommand *string `toml:"archive-command"`
	MetricsFile    *string `toml:"metrics-file"`
}

// AnalysisConfig maps analysis settings.
type AnalysisConfig struct {
	Hits       *string  `toml:"hits"`
	EnergyCut  *float64 `toml:"energy-cut"`
	GluinoMass *float64 `toml:"gluino-mass"`
}

// LogConfig maps logger settings.
type LogConfig struct {
	Level      *string `toml:"level"`
	Format     *string `toml:"format"`
	File       *string `toml:"file"`
	MaxSizeMB  *int    `toml:"max-size-mb"`
	MaxBackups *int    `toml:"max-backups"`
	MaxAgeDays *int    `toml:"max-age-days"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
