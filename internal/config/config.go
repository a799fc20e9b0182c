// Package config loads devhub process configuration with viper.
//
// Values are resolved in this order: command-line overrides, DEVHUB_*
// environment variables, devhub.yaml, built-in defaults. The file lives in
// the data directory unless an explicit path is given.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devhub-tools/devhub/internal/autosync"
	"github.com/devhub-tools/devhub/internal/enrich"
)

const (
	configFileName = "devhub"
	configFileType = "yaml"
	envPrefix      = "DEVHUB"

	KeyDataDir       = "data_dir"
	KeyDBPath        = "db_path"
	KeySettingsPath  = "settings_path"
	KeyDashboardPort = "dashboard.port"
	KeySyncDebounce  = "sync.debounce"
	KeySyncTimeout   = "sync.timeout"
	KeyStoreWatch    = "store.watch"
	KeyLogFile       = "log_file"
	KeyAPIKey        = "anthropic.api_key"
	KeyModel         = "anthropic.model"
	KeySheetAddr     = "sheet.addr"
	KeySheetFile     = "sheet.file"
)

const defaultConfigYAML = `# devhub configuration

# dashboard:
#   port: 8080

# sync:
#   debounce: 2s
#   timeout: 30s

# store:
#   watch: true

# log_file: devhub.log

# anthropic:
#   api_key: ""
#   model: claude-sonnet-4-5-20250929

# sheet:
#   addr: 127.0.0.1:8787
#   file: sheet.yaml
`

// Config is the resolved process configuration. Relative paths have been
// joined onto DataDir.
type Config struct {
	// File is the config file that was read, or "" if none was found.
	File string

	DataDir       string
	DBPath        string
	SettingsPath  string
	DashboardPort int
	SyncDebounce  time.Duration
	SyncTimeout   time.Duration
	StoreWatch    bool
	LogFile       string

	AnthropicAPIKey string
	AnthropicModel  string

	SheetAddr string
	SheetFile string
}

// Options override file and environment values.
type Options struct {
	// ConfigFile is an explicit config path. It must exist when set.
	ConfigFile string
	// DataDir overrides data_dir.
	DataDir string
}

// DefaultDataDir returns ~/.devhub, or .devhub in the working directory when
// the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devhub"
	}
	return filepath.Join(home, ".devhub")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyDBPath, "devhub.db")
	v.SetDefault(KeySettingsPath, "settings.toml")
	v.SetDefault(KeyDashboardPort, 8080)
	v.SetDefault(KeySyncDebounce, autosync.DefaultDebounce)
	v.SetDefault(KeySyncTimeout, 30*time.Second)
	v.SetDefault(KeyStoreWatch, true)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyModel, enrich.DefaultModel)
	v.SetDefault(KeySheetAddr, "127.0.0.1:8787")
	v.SetDefault(KeySheetFile, "sheet.yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. A missing devhub.yaml in the data
// directory is not an error.
func Load(opts Options) (*Config, error) {
	v := newViper()
	if opts.DataDir != "" {
		v.Set(KeyDataDir, opts.DataDir)
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(v.GetString(KeyDataDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	dataDir := v.GetString(KeyDataDir)
	cfg := &Config{
		File:            v.ConfigFileUsed(),
		DataDir:         dataDir,
		DBPath:          resolvePath(dataDir, v.GetString(KeyDBPath)),
		SettingsPath:    resolvePath(dataDir, v.GetString(KeySettingsPath)),
		DashboardPort:   v.GetInt(KeyDashboardPort),
		SyncDebounce:    v.GetDuration(KeySyncDebounce),
		SyncTimeout:     v.GetDuration(KeySyncTimeout),
		StoreWatch:      v.GetBool(KeyStoreWatch),
		LogFile:         resolvePath(dataDir, v.GetString(KeyLogFile)),
		AnthropicAPIKey: v.GetString(KeyAPIKey),
		AnthropicModel:  v.GetString(KeyModel),
		SheetAddr:       v.GetString(KeySheetAddr),
		SheetFile:       resolvePath(dataDir, v.GetString(KeySheetFile)),
	}
	if cfg.AnthropicAPIKey == "" {
		cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SyncDebounce <= 0 {
		return fmt.Errorf("invalid %s: must be positive, got %s", KeySyncDebounce, c.SyncDebounce)
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("invalid %s: must be positive, got %s", KeySyncTimeout, c.SyncTimeout)
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("invalid %s: %d", KeyDashboardPort, c.DashboardPort)
	}
	return nil
}

// EnsureDataDir creates the data directory and writes a commented default
// devhub.yaml if none exists.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	path := filepath.Join(c.DataDir, configFileName+"."+configFileType)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
