// Package config loads, validates, diffs, and sanitizes the
// resolver's configuration: the views, forward/stub zones, local
// zones, trust anchors, RPZ zones and rate-limit settings that the
// fast-reload pipeline rebuilds from, and the control channel's own
// TLS and listener settings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolver's full configuration tree.
type Config struct {
	Server      ServerConfig        `mapstructure:"server" json:"server"`
	Control     ControlConfig       `mapstructure:"control" json:"control"`
	Log         LogConfig           `mapstructure:"log" json:"log"`
	Views       []ViewConfig        `mapstructure:"views" json:"views,omitempty"`
	Forwards    []ForwardZoneConfig `mapstructure:"forward_zones" json:"forward_zones,omitempty"`
	Stubs       []StubZoneConfig    `mapstructure:"stub_zones" json:"stub_zones,omitempty"`
	Locals      []LocalZoneConfig   `mapstructure:"local_zones" json:"local_zones,omitempty"`
	Anchors     []TrustAnchorConfig `mapstructure:"trust_anchors" json:"trust_anchors,omitempty"`
	RPZ         []string            `mapstructure:"rpz_zones" json:"rpz_zones,omitempty"`
	RateLimit   RateLimitConfig     `mapstructure:"ratelimit" json:"ratelimit"`
	Cache       CacheConfig         `mapstructure:"cache" json:"cache"`
	ClusterLock ClusterLockConfig   `mapstructure:"cluster_lock" json:"cluster_lock"`
	AuditLog    AuditLogConfig      `mapstructure:"audit_log" json:"audit_log"`
	Metrics     MetricsConfig       `mapstructure:"metrics" json:"metrics"`
}

// ServerConfig holds the resolver's own listener configuration
// (unrelated to the control channel, which has its own section).
type ServerConfig struct {
	Interfaces []string `mapstructure:"interfaces" json:"interfaces"`
	Port       int      `mapstructure:"port" json:"port"`
	// NumWorkers is the number of resolver worker goroutines, one per
	// event loop per spec.md §5. Distributed control commands and the
	// fast-reload publish step fan out to NumWorkers-1 secondary
	// workers; the control session itself is always handled by the
	// primary worker.
	NumWorkers int `mapstructure:"num_workers" json:"num_workers"`
}

// ControlConfig holds remote-control channel configuration: the
// listener address and the mutual-TLS material securing it.
type ControlConfig struct {
	Enabled          bool          `mapstructure:"enabled" json:"enabled"`
	Interface        string        `mapstructure:"interface" json:"interface"`
	Port             int           `mapstructure:"port" json:"port"`
	UseTLS           bool          `mapstructure:"use_tls" json:"use_tls"`
	CertFile         string        `mapstructure:"cert_file" json:"cert_file,omitempty"`
	KeyFile          string        `mapstructure:"key_file" json:"key_file,omitempty"`
	CAFile           string        `mapstructure:"ca_file" json:"ca_file,omitempty"`
	K8sSecretName    string        `mapstructure:"k8s_secret_name" json:"k8s_secret_name,omitempty"`
	K8sNamespace     string        `mapstructure:"k8s_namespace" json:"k8s_namespace,omitempty"`
	SocketPath       string        `mapstructure:"socket_path" json:"socket_path,omitempty"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" json:"handshake_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	Format     string `mapstructure:"format" json:"format"`
	Output     string `mapstructure:"output" json:"output"`
	Filename   string `mapstructure:"filename" json:"filename,omitempty"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// ViewConfig describes one named view and the local zones layered
// into it.
type ViewConfig struct {
	Name       string            `mapstructure:"name" json:"name"`
	LocalZones []LocalZoneConfig `mapstructure:"local_zones" json:"local_zones,omitempty"`
}

// ForwardZoneConfig mirrors a forward-zone clause.
type ForwardZoneConfig struct {
	Zone     string   `mapstructure:"zone" json:"zone"`
	Insecure bool     `mapstructure:"insecure" json:"insecure"`
	TLS      bool     `mapstructure:"tls" json:"tls"`
	Servers  []string `mapstructure:"servers" json:"servers"`
}

// StubZoneConfig mirrors a stub-zone clause.
type StubZoneConfig struct {
	Zone     string   `mapstructure:"zone" json:"zone"`
	Insecure bool     `mapstructure:"insecure" json:"insecure"`
	TLS      bool     `mapstructure:"tls" json:"tls"`
	Prime    bool     `mapstructure:"prime" json:"prime"`
	Servers  []string `mapstructure:"servers" json:"servers"`
}

// LocalZoneConfig mirrors a local-zone clause.
type LocalZoneConfig struct {
	Name string   `mapstructure:"name" json:"name"`
	Type string   `mapstructure:"type" json:"type"`
	Data []string `mapstructure:"data" json:"data,omitempty"`
}

// TrustAnchorConfig mirrors a static trust-anchor clause.
type TrustAnchorConfig struct {
	Zone   string `mapstructure:"zone" json:"zone"`
	Anchor string `mapstructure:"anchor" json:"anchor"`
}

// RateLimitConfig configures the global and per-IP query rate
// limiters the control channel reports and tunes.
type RateLimitConfig struct {
	QPS     int `mapstructure:"qps" json:"qps"`
	Burst   int `mapstructure:"burst" json:"burst"`
	IPQPS   int `mapstructure:"ip_qps" json:"ip_qps"`
	IPBurst int `mapstructure:"ip_burst" json:"ip_burst"`
}

// CacheConfig bounds the resolver's cache collaborator sizes.
type CacheConfig struct {
	RRsetCapacity   int `mapstructure:"rrset_capacity" json:"rrset_capacity"`
	MessageCapacity int `mapstructure:"message_capacity" json:"message_capacity"`
	InfraCapacity   int `mapstructure:"infra_capacity" json:"infra_capacity"`
	KeyCapacity     int `mapstructure:"key_capacity" json:"key_capacity"`
}

// ClusterLockConfig configures the optional Redis-backed cluster-wide
// reload lock.
type ClusterLockConfig struct {
	Enabled        bool          `mapstructure:"enabled" json:"enabled"`
	RedisAddr      string        `mapstructure:"redis_addr" json:"redis_addr,omitempty"`
	RedisPassword  string        `mapstructure:"redis_password" json:"redis_password,omitempty"`
	RedisDB        int           `mapstructure:"redis_db" json:"redis_db"`
	TTL            time.Duration `mapstructure:"ttl" json:"ttl"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" json:"acquire_timeout"`
	RetryInterval  time.Duration `mapstructure:"retry_interval" json:"retry_interval"`
}

// AuditLogConfig configures the control-command audit trail.
type AuditLogConfig struct {
	Backend string `mapstructure:"backend" json:"backend"` // "sqlite" or "postgres"
	DSN     string `mapstructure:"dsn" json:"dsn,omitempty"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr"`
	Path    string `mapstructure:"path" json:"path"`
}

// LoadConfig loads configuration from configPath (if non-empty) and
// environment variables, applying defaults for anything unset.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("resolverd")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validator := NewConfigValidator()
	if err := validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 53)
	v.SetDefault("server.interfaces", []string{"0.0.0.0"})
	v.SetDefault("server.num_workers", 4)

	v.SetDefault("control.enabled", true)
	v.SetDefault("control.interface", "127.0.0.1")
	v.SetDefault("control.port", 8953)
	v.SetDefault("control.use_tls", true)
	v.SetDefault("control.cert_file", "resolverd_server.pem")
	v.SetDefault("control.key_file", "resolverd_server.key")
	v.SetDefault("control.ca_file", "resolverd_control.pem")
	v.SetDefault("control.idle_timeout", "120s")
	v.SetDefault("control.handshake_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetDefault("ratelimit.qps", 0)
	v.SetDefault("ratelimit.burst", 0)
	v.SetDefault("ratelimit.ip_qps", 0)
	v.SetDefault("ratelimit.ip_burst", 0)

	v.SetDefault("cache.rrset_capacity", 100000)
	v.SetDefault("cache.message_capacity", 50000)
	v.SetDefault("cache.infra_capacity", 10000)
	v.SetDefault("cache.key_capacity", 10000)

	v.SetDefault("cluster_lock.enabled", false)
	v.SetDefault("cluster_lock.ttl", "30s")
	v.SetDefault("cluster_lock.acquire_timeout", "5s")
	v.SetDefault("cluster_lock.retry_interval", "100ms")

	v.SetDefault("audit_log.backend", "sqlite")
	v.SetDefault("audit_log.dsn", "resolverd-audit.db")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9953")
	v.SetDefault("metrics.path", "/metrics")
}
