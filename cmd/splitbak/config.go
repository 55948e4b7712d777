package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gingerrexayers/splitbak-go/internal/splitbak/storage"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SPLITBAK"

// Configuration keys.
const (
	cfgLoggerLevel        = "logger.level"
	cfgBackupMaxPartSize  = "backup.max_part_size"
	cfgBackupReport       = "backup.report"
	cfgBackupReportFormat = "backup.report_format"
	cfgBackupHash         = "backup.hash"
	cfgChunkSize          = "io.chunk_size"
)

// flagKeys maps command-line flags to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":     cfgLoggerLevel,
	"max-part-size": cfgBackupMaxPartSize,
	"report":        cfgBackupReport,
	"report-format": cfgBackupReportFormat,
	"format":        cfgBackupReportFormat,
	"hash":          cfgBackupHash,
	"chunk-size":    cfgChunkSize,
}

// defaultConfigFile is looked up in the home directory when --config is unset.
const defaultConfigFile = ".config/splitbak.yml"

// resolveConfigPath expands a leading ~ in an explicit path. Without one it
// falls back to the default file in the home directory, if that file exists.
func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return homedir.Expand(path)
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", nil
	}
	candidate := filepath.Join(home, filepath.FromSlash(defaultConfigFile))
	if _, err := os.Stat(candidate); err != nil {
		return "", nil
	}
	return candidate, nil
}

func newConfig(path string) (*viper.Viper, error) {
	var (
		err error
		v   = viper.New()
	)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaultConfiguration(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yml")
		err = v.ReadInConfig()
	}

	return v, err
}

func defaultConfiguration(cfg *viper.Viper) {
	cfg.SetDefault(cfgLoggerLevel, "info")

	cfg.SetDefault(cfgBackupMaxPartSize, "512MiB")
	cfg.SetDefault(cfgBackupReport, true)
	cfg.SetDefault(cfgBackupReportFormat, "json")
	cfg.SetDefault(cfgBackupHash, "sha256")

	cfg.SetDefault(cfgChunkSize, "1MiB")
}

// bindFlags binds every known flag of cmd, local or inherited, to its key.
func bindFlags(cfg *viper.Viper, cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		err = cfg.BindPFlag(key, f)
	})
	return err
}

// getSize reads a human-readable byte size such as "512MiB", "1GB" or "4096".
func getSize(cfg *viper.Viper, key string) (int64, error) {
	raw := cfg.GetString(key)
	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if size == 0 || size > 1<<62 {
		return 0, fmt.Errorf("invalid %s %q: must be between 1 byte and 4 EiB", key, raw)
	}
	return int64(size), nil
}

// getChunkSize reads the copy buffer size, which is allocated up front and
// so is held to storage.MaxChunkSize.
func getChunkSize(cfg *viper.Viper) (int, error) {
	size, err := getSize(cfg, cfgChunkSize)
	if err != nil {
		return 0, err
	}
	if size > storage.MaxChunkSize {
		return 0, fmt.Errorf("invalid %s %q: must not exceed %s", cfgChunkSize,
			cfg.GetString(cfgChunkSize), humanize.IBytes(storage.MaxChunkSize))
	}
	return int(size), nil
}
