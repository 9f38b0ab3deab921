// Package config provides configuration management for the PDF translator application.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "pdf-translator-config.json"
	// EnvBackendURL is the environment variable name for the backend base URL
	EnvBackendURL = "PDF_TRANSLATOR_BACKEND_URL"
	// DefaultBackendURL is the default document backend base URL
	DefaultBackendURL = "http://127.0.0.1:8000/api/v1"
	// DefaultSourceLang is the default source language tag
	DefaultSourceLang = "en"
	// DefaultTargetLang is the default target language tag
	DefaultTargetLang = "es"
	// DefaultHTTPTimeoutSeconds is the default backend request timeout
	DefaultHTTPTimeoutSeconds = 120
)

// Config 应用配置
type Config struct {
	BackendBaseURL     string `json:"backend_base_url"`
	SourceLang         string `json:"source_lang"` // 默认源语言
	TargetLang         string `json:"target_lang"` // 默认目标语言
	HTTPTimeoutSeconds int    `json:"http_timeout_seconds"`
	WorkDirectory      string `json:"work_directory"`
	LibraryDirectory   string `json:"library_directory"` // 翻译库存储目录
	LastInput          string `json:"last_input"`        // 最后一次输入的文件路径或 URL
}

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "pdf-translator", DefaultConfigFileName)
	}

	logger.Info("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values
func defaultConfig() *Config {
	return &Config{
		BackendBaseURL:     DefaultBackendURL,
		SourceLang:         DefaultSourceLang,
		TargetLang:         DefaultTargetLang,
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
		WorkDirectory:      "",
		LibraryDirectory:   "",
	}
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values.
// The PDF_TRANSLATOR_BACKEND_URL environment variable takes precedence
// over the configured backend URL.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &Config{}
		if err := json.Unmarshal(data, config); err != nil {
			// Invalid JSON, use defaults
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			m.config = config
			m.applyDefaults()
		}
	}

	// Environment variable override for the backend URL
	if envURL := os.Getenv(EnvBackendURL); envURL != "" {
		logger.Debug("backend URL overridden from environment", logger.String("url", envURL))
		m.config.BackendBaseURL = envURL
	}

	return nil
}

// applyDefaults fills zero-valued fields with defaults after loading
func (m *ConfigManager) applyDefaults() {
	if m.config.BackendBaseURL == "" {
		m.config.BackendBaseURL = DefaultBackendURL
	}
	if m.config.SourceLang == "" {
		m.config.SourceLang = DefaultSourceLang
	}
	if m.config.TargetLang == "" {
		m.config.TargetLang = DefaultTargetLang
	}
	if m.config.HTTPTimeoutSeconds <= 0 {
		m.config.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
}

// Save writes the current configuration to the config file.
func (m *ConfigManager) Save() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to serialize config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Debug("configuration saved", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration
func (m *ConfigManager) GetConfig() *Config {
	return m.config
}

// GetConfigPath returns the configuration file path
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetBackendBaseURL returns the backend base URL
func (m *ConfigManager) GetBackendBaseURL() string {
	return m.config.BackendBaseURL
}

// GetSourceLang returns the default source language
func (m *ConfigManager) GetSourceLang() string {
	return m.config.SourceLang
}

// GetTargetLang returns the default target language
func (m *ConfigManager) GetTargetLang() string {
	return m.config.TargetLang
}

// GetHTTPTimeout returns the backend request timeout as a duration
func (m *ConfigManager) GetHTTPTimeout() time.Duration {
	return time.Duration(m.config.HTTPTimeoutSeconds) * time.Second
}

// GetWorkDirectory returns the configured work directory (may be empty)
func (m *ConfigManager) GetWorkDirectory() string {
	return m.config.WorkDirectory
}

// GetLibraryDirectory returns the configured library directory (may be empty)
func (m *ConfigManager) GetLibraryDirectory() string {
	return m.config.LibraryDirectory
}

// UpdateConfig updates the configuration values and persists them.
func (m *ConfigManager) UpdateConfig(backendURL, sourceLang, targetLang string, httpTimeoutSeconds int, workDir string) error {
	m.config.BackendBaseURL = backendURL
	m.config.SourceLang = sourceLang
	m.config.TargetLang = targetLang
	m.config.HTTPTimeoutSeconds = httpTimeoutSeconds
	m.config.WorkDirectory = workDir
	m.applyDefaults()
	return m.Save()
}

// SetLastInput records the most recent upload input and persists it.
func (m *ConfigManager) SetLastInput(input string) error {
	m.config.LastInput = input
	return m.Save()
}

// GetLastInput returns the most recent upload input.
func (m *ConfigManager) GetLastInput() string {
	return m.config.LastInput
}
