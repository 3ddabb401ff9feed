/*
 * Copyright (c) 2025 by TRYAM193 and the Design Studio contributors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the operator-editable configuration persisted to a YAML file in the user scope.
// Environment variables (optionally seeded from a .env file) are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Store         StoreConfig   `yaml:"store"`
	Blobs         BlobsConfig   `yaml:"blobs"`
	Render        RenderConfig  `yaml:"render"`
	Redis         RedisConfig   `yaml:"redis"`
	Server        ServerConfig  `yaml:"server"`
	Worker        WorkerConfig  `yaml:"worker"`
	Catalog       CatalogConfig `yaml:"catalog"`
	Logging       LoggingConfig `yaml:"logging"`
}

// StoreConfig selects the document store backend.
// The DSN may contain a "<password>" placeholder, replaced with the keychain secret at runtime.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // sqlite | postgres | mongo | files | memory
	DSN      string `yaml:"dsn"`
	Database string `yaml:"database"` // mongo database name
	Root     string `yaml:"root"`     // files driver root directory
}

type BlobsConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

type RenderConfig struct {
	TargetWidth      int    `yaml:"target_width"`
	FontDir          string `yaml:"font_dir"`
	AssetRoot        string `yaml:"asset_root"`
	DefaultPrintW    int    `yaml:"default_print_width"`
	DefaultPrintH    int    `yaml:"default_print_height"`
	MarkerDir        string `yaml:"marker_dir"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	AllowRemoteFetch bool   `yaml:"allow_remote_fetch"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Store:         StoreConfig{Driver: "sqlite", DSN: "designstudio.db", Database: "designstudio", Root: "designs"},
		Blobs:         BlobsConfig{Root: "blobs", BaseURL: "http://localhost:8080/blobs"},
		Render: RenderConfig{
			TargetWidth:    2400,
			DefaultPrintW:  4500,
			DefaultPrintH:  5400,
			MarkerDir:      "ready",
			TimeoutSeconds: 60,
		},
		Redis:   RedisConfig{Addr: "127.0.0.1:6379"},
		Server:  ServerConfig{Addr: ":8080"},
		Worker:  WorkerConfig{Concurrency: 4},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath   = "DSTUDIO_CONFIG"
	EnvStoreDriver  = "DSTUDIO_STORE_DRIVER"
	EnvStoreDSN     = "DSTUDIO_STORE_DSN"
	EnvStoreDB      = "DSTUDIO_STORE_DATABASE"
	EnvStoreRoot    = "DSTUDIO_STORE_ROOT"
	EnvBlobsRoot    = "DSTUDIO_BLOBS_ROOT"
	EnvBlobsURL     = "DSTUDIO_BLOBS_BASE_URL"
	EnvTargetWidth  = "DSTUDIO_RENDER_TARGET_WIDTH"
	EnvFontDir      = "DSTUDIO_RENDER_FONT_DIR"
	EnvAssetRoot    = "DSTUDIO_RENDER_ASSET_ROOT"
	EnvMarkerDir    = "DSTUDIO_RENDER_MARKER_DIR"
	EnvRemoteFetch  = "DSTUDIO_RENDER_ALLOW_REMOTE"
	EnvRedisAddr    = "DSTUDIO_REDIS_ADDR"
	EnvRedisDB      = "DSTUDIO_REDIS_DB"
	EnvServerAddr   = "DSTUDIO_SERVER_ADDR"
	EnvConcurrency  = "DSTUDIO_WORKER_CONCURRENCY"
	EnvCatalogPath  = "DSTUDIO_CATALOG_PATH"
	EnvStorePasswd  = "DSTUDIO_STORE_PASSWORD"
	EnvLogLevel     = "DSTUDIO_LOG_LEVEL"
	EnvLogFormat    = "DSTUDIO_LOG_FORMAT"
	EnvLogSource    = "DSTUDIO_LOG_SOURCE"
	EnvLogFile      = "DSTUDIO_LOG_FILE"
	passwordMarker  = "<password>"
	keyringService  = "DesignStudio"
	keyringStoreKey = "store_password"
)

// TokenStore abstracts the OS keychain so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path, or DSTUDIO_CONFIG when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "DesignStudio")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "DesignStudio")
	default:
		home := os.Getenv("HOME")
		if home == "" {
			return "", errors.New("cannot resolve config directory")
		}
		base = filepath.Join(home, ".config", "designstudio")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file (if present), applies defaults, loads .env files from the
// working directory and merges environment overrides. The returned string is the store
// password from the keychain (or DSTUDIO_STORE_PASSWORD), empty when none is stored.
func Load() (AppConfig, string, error) {
	// .env is optional; existing process env wins over it.
	_ = godotenv.Load()

	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", &FileError{Path: path, Err: err}
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)

	secret := strings.TrimSpace(os.Getenv(EnvStorePasswd))
	if secret == "" {
		secret, _ = tokenStore.Get(keyringService, keyringStoreKey)
	}
	return cfg, secret, nil
}

// FileError reports a config file that exists but cannot be parsed.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return "config: parse " + e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Save writes the config YAML and stores the secret in the OS keychain (if non-empty).
func Save(cfg AppConfig, secret string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if secret != "" {
		return tokenStore.Set(keyringService, keyringStoreKey, secret)
	}
	return nil
}

// ResolveDSN substitutes the "<password>" placeholder in the store DSN.
func (s StoreConfig) ResolveDSN(secret string) string {
	if secret == "" || !strings.Contains(s.DSN, passwordMarker) {
		return s.DSN
	}
	return strings.ReplaceAll(s.DSN, passwordMarker, secret)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	setStr(&dst.Store.Driver, strings.ToLower(src.Store.Driver))
	setStr(&dst.Store.DSN, src.Store.DSN)
	setStr(&dst.Store.Database, src.Store.Database)
	setStr(&dst.Store.Root, src.Store.Root)
	setStr(&dst.Blobs.Root, src.Blobs.Root)
	setStr(&dst.Blobs.BaseURL, src.Blobs.BaseURL)
	setInt(&dst.Render.TargetWidth, src.Render.TargetWidth)
	setStr(&dst.Render.FontDir, src.Render.FontDir)
	setStr(&dst.Render.AssetRoot, src.Render.AssetRoot)
	setInt(&dst.Render.DefaultPrintW, src.Render.DefaultPrintW)
	setInt(&dst.Render.DefaultPrintH, src.Render.DefaultPrintH)
	setStr(&dst.Render.MarkerDir, src.Render.MarkerDir)
	setInt(&dst.Render.TimeoutSeconds, src.Render.TimeoutSeconds)
	dst.Render.AllowRemoteFetch = src.Render.AllowRemoteFetch
	setStr(&dst.Redis.Addr, src.Redis.Addr)
	setInt(&dst.Redis.DB, src.Redis.DB)
	setStr(&dst.Server.Addr, src.Server.Addr)
	setInt(&dst.Worker.Concurrency, src.Worker.Concurrency)
	setStr(&dst.Catalog.Path, src.Catalog.Path)
	setStr(&dst.Logging.Level, strings.ToLower(src.Logging.Level))
	setStr(&dst.Logging.Format, strings.ToLower(src.Logging.Format))
	dst.Logging.Source = src.Logging.Source
	setStr(&dst.Logging.File, src.Logging.File)
}

func setStr(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func envBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	strs := map[string]*string{
		EnvStoreDriver: &cfg.Store.Driver,
		EnvStoreDSN:    &cfg.Store.DSN,
		EnvStoreDB:     &cfg.Store.Database,
		EnvStoreRoot:   &cfg.Store.Root,
		EnvBlobsRoot:   &cfg.Blobs.Root,
		EnvBlobsURL:    &cfg.Blobs.BaseURL,
		EnvFontDir:     &cfg.Render.FontDir,
		EnvAssetRoot:   &cfg.Render.AssetRoot,
		EnvMarkerDir:   &cfg.Render.MarkerDir,
		EnvRedisAddr:   &cfg.Redis.Addr,
		EnvServerAddr:  &cfg.Server.Addr,
		EnvCatalogPath: &cfg.Catalog.Path,
		EnvLogFile:     &cfg.Logging.File,
	}
	for k, dst := range strs {
		setStr(dst, os.Getenv(k))
	}
	ints := map[string]*int{
		EnvTargetWidth: &cfg.Render.TargetWidth,
		EnvRedisDB:     &cfg.Redis.DB,
		EnvConcurrency: &cfg.Worker.Concurrency,
	}
	for k, dst := range ints {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRemoteFetch)); v != "" {
		cfg.Render.AllowRemoteFetch = envBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	cfg.Store.Driver = strings.ToLower(cfg.Store.Driver)
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"store.driver":        EnvStoreDriver,
		"store.dsn":           EnvStoreDSN,
		"store.database":      EnvStoreDB,
		"store.root":          EnvStoreRoot,
		"blobs.root":          EnvBlobsRoot,
		"blobs.base_url":      EnvBlobsURL,
		"render.target_width": EnvTargetWidth,
		"render.font_dir":     EnvFontDir,
		"render.asset_root":   EnvAssetRoot,
		"render.marker_dir":   EnvMarkerDir,
		"render.allow_remote": EnvRemoteFetch,
		"redis.addr":          EnvRedisAddr,
		"redis.db":            EnvRedisDB,
		"server.addr":         EnvServerAddr,
		"worker.concurrency":  EnvConcurrency,
		"catalog.path":        EnvCatalogPath,
		"logging.level":       EnvLogLevel,
		"logging.format":      EnvLogFormat,
		"logging.source":      EnvLogSource,
		"logging.file":        EnvLogFile,
	}
	name, ok := names[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
