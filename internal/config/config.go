// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/autobrr/cleango/internal/buildinfo"
	"github.com/autobrr/cleango/internal/domain"
)

const (
	EnvPrefix          = "CLEANGO__"
	ConfigFileName     = "config.toml"
	DatabaseFileName   = "cleango.db"
	defaultConfigDirFn = "cleango"
)

// legacy variable names still honoured for the qBittorrent connection
var legacyEnv = map[string]string{
	"qbittorrentHost":     "QBITTORRENT_HOST",
	"qbittorrentUsername": "QBITTORRENT_USERNAME",
	"qbittorrentPassword": "QBITTORRENT_PASSWORD",
}

type AppConfig struct {
	Config *domain.Config

	viper      *viper.Viper
	configPath string

	mu         sync.Mutex
	logManager *LogManager
}

// New loads configuration from configPath, which may name a file or a
// directory. An empty path uses GetDefaultConfigDir. A missing config file
// is generated with defaults when its directory is writable.
func New(configPath string) (*AppConfig, error) {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := WriteDefaultConfig(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not create default config file, continuing with defaults")
		} else {
			log.Info().Str("path", path).Msg("Created default config file")
		}
	}

	c := &AppConfig{
		Config:     &domain.Config{},
		viper:      viper.New(),
		configPath: path,
	}

	c.defaults()
	if err := c.bindEnv(); err != nil {
		return nil, err
	}

	c.viper.SetConfigFile(path)
	c.viper.SetConfigType("toml")
	if err := c.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	return c, nil
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath == "" {
		return filepath.Join(GetDefaultConfigDir(), ConfigFileName), nil
	}

	if info, err := os.Stat(configPath); err == nil && info.IsDir() {
		return filepath.Join(configPath, ConfigFileName), nil
	}

	if filepath.Ext(configPath) == "" {
		return filepath.Join(configPath, ConfigFileName), nil
	}

	return configPath, nil
}

func (c *AppConfig) defaults() {
	v := c.viper
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5000)
	v.SetDefault("baseUrl", "/")
	v.SetDefault("logLevel", "INFO")
	v.SetDefault("logPath", "")
	v.SetDefault("logMaxSize", defaultLogMaxSize)
	v.SetDefault("logMaxBackups", defaultLogMaxBackups)
	v.SetDefault("databasePath", "")
	v.SetDefault("timezone", "")
	v.SetDefault("corsAllowedOrigins", []string{})

	v.SetDefault("qbittorrentHost", "")
	v.SetDefault("qbittorrentUsername", "")
	v.SetDefault("qbittorrentPassword", "")
	v.SetDefault("qbittorrentBasicUser", "")
	v.SetDefault("qbittorrentBasicPass", "")
	v.SetDefault("qbittorrentTlsSkipVerify", false)
	v.SetDefault("requestTimeout", 30)

	v.SetDefault("cleanSchedule", "@every 1h")
	v.SetDefault("runOnStartup", true)
	v.SetDefault("unwantedTerms", []string{"unregistered", "trump"})
	v.SetDefault("deleteFiles", true)

	v.SetDefault("pprofEnabled", false)
	v.SetDefault("pprofHost", "127.0.0.1")
	v.SetDefault("pprofPort", 6060)
	v.SetDefault("metricsEnabled", false)
	v.SetDefault("metricsHost", "127.0.0.1")
	v.SetDefault("metricsPort", 9074)
	v.SetDefault("metricsBasicAuthUsers", "")
}

// configKeys lists every key with its camelCase spelling. viper lower-cases
// keys internally, so env names are derived from this list.
var configKeys = []string{
	"host", "port", "baseUrl", "logLevel", "logPath", "logMaxSize", "logMaxBackups",
	"databasePath", "timezone", "corsAllowedOrigins",
	"qbittorrentHost", "qbittorrentUsername", "qbittorrentPassword",
	"qbittorrentBasicUser", "qbittorrentBasicPass", "qbittorrentTlsSkipVerify", "requestTimeout",
	"cleanSchedule", "runOnStartup", "unwantedTerms", "deleteFiles",
	"pprofEnabled", "pprofHost", "pprofPort",
	"metricsEnabled", "metricsHost", "metricsPort", "metricsBasicAuthUsers",
}

// bindEnv maps every key to CLEANGO__UPPER_SNAKE, for example
// databasePath -> CLEANGO__DATABASE_PATH.
func (c *AppConfig) bindEnv() error {
	for _, key := range configKeys {
		names := []string{key, EnvName(key)}
		if legacy, ok := legacyEnv[key]; ok {
			names = append(names, legacy)
		}
		if err := c.viper.BindEnv(names...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}

// EnvName returns the environment variable bound to a camelCase config key.
func EnvName(key string) string {
	return EnvPrefix + toUpperSnake(key)
}

func toUpperSnake(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func (c *AppConfig) load() error {
	var cfg domain.Config
	if err := c.viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Version = buildinfo.Version

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.mu.Lock()
	c.Config = &cfg
	c.mu.Unlock()
	return nil
}

// Current returns the active configuration. Reloads replace it, they never
// mutate it in place.
func (c *AppConfig) Current() *domain.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Config
}

// ConfigPath is the file the configuration was read from.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// ConfigDir is the directory holding the config file.
func (c *AppConfig) ConfigDir() string {
	return filepath.Dir(c.configPath)
}

// GetDatabasePath returns databasePath, resolved against the config
// directory when relative. Unset means cleango.db next to the config file.
func (c *AppConfig) GetDatabasePath() string {
	path := strings.TrimSpace(c.Current().DatabasePath)
	if path == "" {
		return filepath.Join(c.ConfigDir(), DatabaseFileName)
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ConfigDir(), path)
}

// ApplyLogConfig applies the current log settings to lm and keeps lm for
// reloads triggered by Watch.
func (c *AppConfig) ApplyLogConfig(lm *LogManager) error {
	c.mu.Lock()
	c.logManager = lm
	cfg := c.Config
	c.mu.Unlock()

	return lm.Apply(cfg.LogLevel, c.resolveLogPath(cfg.LogPath), cfg.LogMaxSize, cfg.LogMaxBackups)
}

func (c *AppConfig) resolveLogPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ConfigDir(), p)
}

// Watch reloads the config file on change. Log settings apply immediately;
// anything else needs a restart.
func (c *AppConfig) Watch() {
	c.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		previous := c.Current()
		if err := c.load(); err != nil {
			log.Error().Err(err).Str("path", e.Name).Msg("Config reload failed, keeping previous configuration")
			return
		}

		c.mu.Lock()
		lm := c.logManager
		current := c.Config
		c.mu.Unlock()

		if lm != nil {
			if err := lm.Apply(current.LogLevel, c.resolveLogPath(current.LogPath), current.LogMaxSize, current.LogMaxBackups); err != nil {
				log.Error().Err(err).Msg("Failed to apply reloaded log settings")
			}
		}

		if restartRequired(previous, current) {
			log.Warn().Str("path", e.Name).Msg("Config changed, restart cleango to apply settings other than logging")
		} else {
			log.Info().Str("path", e.Name).Msg("Config reloaded")
		}
	})
	c.viper.WatchConfig()
}

func restartRequired(prev, next *domain.Config) bool {
	if prev == nil || next == nil {
		return false
	}
	a, b := *prev, *next
	a.LogLevel, a.LogPath, a.LogMaxSize, a.LogMaxBackups = "", "", 0, 0
	b.LogLevel, b.LogPath, b.LogMaxSize, b.LogMaxBackups = "", "", 0, 0
	return fmt.Sprintf("%+v", a) != fmt.Sprintf("%+v", b)
}

// GetDefaultConfigDir returns the directory config.toml lives in when no
// --config-dir is given.
func GetDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		// docker images set XDG_CONFIG_HOME=/config and mount it directly
		if filepath.Clean(xdg) == "/config" {
			return "/config"
		}
		return filepath.Join(xdg, defaultConfigDirFn)
	}

	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, defaultConfigDirFn)
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", defaultConfigDirFn)
	}
	return filepath.Join(home, ".config", defaultConfigDirFn)
}
