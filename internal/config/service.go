package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConfigSource records where the currently active configuration came
// from, surfaced by the status command.
type ConfigSource string

const (
	ConfigSourceFile     ConfigSource = "file"
	ConfigSourceEnv      ConfigSource = "env"
	ConfigSourceDefaults ConfigSource = "defaults"
)

// GetConfigOptions controls a get_option export.
type GetConfigOptions struct {
	Sanitize bool
	Sections []string
}

// ConfigResponse is a snapshot of the active configuration as
// exported over the control channel.
type ConfigResponse struct {
	Version        string                 `json:"version"`
	Source         ConfigSource           `json:"source"`
	LoadedAt       time.Time              `json:"loaded_at"`
	ConfigFilePath string                 `json:"config_file_path,omitempty"`
	Config         map[string]interface{} `json:"config"`
}

// ConfigService is the control channel's handle onto the active
// configuration: full export for status/get_option with a dotted
// field path, and set_option for the narrow set of fields spec.md's
// original allows to change without a full reload.
type ConfigService interface {
	GetConfig(ctx context.Context, opts GetConfigOptions) (*ConfigResponse, error)
	GetOption(path string) (interface{}, bool)
	SetOption(path, value string) error
	GetConfigVersion() string
	GetConfigSource() ConfigSource
	Current() *Config
}

// mutableFields is the whitelist set_option may write without going
// through the fast-reload pipeline: generalized scalar accessors,
// grounded in the resolver's real runtime-settable options (log
// level and rate limits only — everything else, including zone data,
// requires the reload pipeline so caches and trees stay consistent).
var mutableFields = map[string]func(cfg *Config, value string) error{
	"log.level": func(cfg *Config, value string) error {
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "error":
			cfg.Log.Level = strings.ToLower(value)
			return nil
		default:
			return fmt.Errorf("invalid log level %q", value)
		}
	},
	"ratelimit.qps": func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid ratelimit.qps %q", value)
		}
		cfg.RateLimit.QPS = n
		return nil
	},
	"ratelimit.burst": func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid ratelimit.burst %q", value)
		}
		cfg.RateLimit.Burst = n
		return nil
	},
	"ratelimit.ip_qps": func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid ratelimit.ip_qps %q", value)
		}
		cfg.RateLimit.IPQPS = n
		return nil
	},
	"ratelimit.ip_burst": func(cfg *Config, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid ratelimit.ip_burst %q", value)
		}
		cfg.RateLimit.IPBurst = n
		return nil
	},
}

// DefaultConfigService implements ConfigService.
type DefaultConfigService struct {
	mu         sync.RWMutex
	config     *Config
	configPath string
	loadedAt   time.Time
	source     ConfigSource
	sanitizer  ConfigSanitizer
}

// NewConfigService wraps cfg for control-channel access.
func NewConfigService(cfg *Config, configPath string, loadedAt time.Time, source ConfigSource) ConfigService {
	return &DefaultConfigService{
		config:     cfg,
		configPath: configPath,
		loadedAt:   loadedAt,
		source:     source,
		sanitizer:  NewDefaultConfigSanitizer(),
	}
}

func (s *DefaultConfigService) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *DefaultConfigService) GetConfig(_ context.Context, opts GetConfigOptions) (*ConfigResponse, error) {
	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	if opts.Sanitize {
		cfg = s.sanitizer.Sanitize(cfg)
	}

	asMap, err := configToFilteredMap(cfg, opts.Sections)
	if err != nil {
		return nil, fmt.Errorf("export config: %w", err)
	}

	return &ConfigResponse{
		Version:        s.GetConfigVersion(),
		Source:         s.source,
		LoadedAt:       s.loadedAt,
		ConfigFilePath: s.configPath,
		Config:         asMap,
	}, nil
}

// GetOption resolves a dotted field path (e.g. "ratelimit.qps")
// against the sanitized active configuration. Returns ok=false if the
// path does not exist.
func (s *DefaultConfigService) GetOption(path string) (interface{}, bool) {
	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	sanitized := s.sanitizer.Sanitize(cfg)
	asMap, err := configToFilteredMap(sanitized, nil)
	if err != nil {
		return nil, false
	}

	cur := interface{}(asMap)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetOption writes one of the whitelisted runtime-mutable scalar
// fields in place, without going through the fast-reload pipeline.
func (s *DefaultConfigService) SetOption(path, value string) error {
	setter, ok := mutableFields[path]
	if !ok {
		return fmt.Errorf("%q is not a runtime-settable option (use reload)", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return setter(s.config, value)
}

func (s *DefaultConfigService) GetConfigVersion() string {
	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	raw, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

func (s *DefaultConfigService) GetConfigSource() ConfigSource {
	return s.source
}

func configToFilteredMap(cfg *Config, sections []string) (map[string]interface{}, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return m, nil
	}
	filtered := make(map[string]interface{}, len(sections))
	for _, section := range sections {
		if v, ok := m[section]; ok {
			filtered[section] = v
		}
	}
	return filtered, nil
}
