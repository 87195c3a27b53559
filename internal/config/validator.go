package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ConfigValidator performs structural and cross-field validation of
// a loaded Config before it is accepted, either at startup or during
// the fast-reload pipeline's validate phase.
type ConfigValidator interface {
	Validate(cfg *Config) error
}

// DefaultConfigValidator validates field shape with validator/v10 and
// then layers on the DNS-specific and cross-field checks that tags
// alone cannot express.
type DefaultConfigValidator struct {
	v *validator.Validate
}

// NewConfigValidator returns the standard validator.
func NewConfigValidator() ConfigValidator {
	return &DefaultConfigValidator{v: validator.New()}
}

// validatable mirrors the fields of Config that carry validator tags,
// since Config itself holds slices of loosely-typed zone config that
// benefit from name-format checks applied by hand below.
type validatable struct {
	Port        int    `validate:"min=1,max=65535"`
	ControlPort int    `validate:"min=1,max=65535"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	NumWorkers  int    `validate:"min=1"`
}

func (d *DefaultConfigValidator) Validate(cfg *Config) error {
	shape := validatable{
		Port:        cfg.Server.Port,
		ControlPort: cfg.Control.Port,
		LogLevel:    strings.ToLower(cfg.Log.Level),
		NumWorkers:  cfg.Server.NumWorkers,
	}
	if err := d.v.Struct(shape); err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if cfg.Control.Enabled && cfg.Control.UseTLS {
		if cfg.Control.CertFile == "" && cfg.Control.K8sSecretName == "" {
			return fmt.Errorf("control.use_tls requires control.cert_file or control.k8s_secret_name")
		}
	}

	for _, zone := range cfg.Forwards {
		if err := validateZoneName(zone.Zone); err != nil {
			return fmt.Errorf("forward_zones: %w", err)
		}
		if len(zone.Servers) == 0 {
			return fmt.Errorf("forward_zones: zone %q has no servers", zone.Zone)
		}
	}

	for _, zone := range cfg.Stubs {
		if err := validateZoneName(zone.Zone); err != nil {
			return fmt.Errorf("stub_zones: %w", err)
		}
		if len(zone.Servers) == 0 {
			return fmt.Errorf("stub_zones: zone %q has no servers", zone.Zone)
		}
	}

	for _, zone := range cfg.Locals {
		if err := validateZoneName(zone.Name); err != nil {
			return fmt.Errorf("local_zones: %w", err)
		}
		if !validLocalZoneType(zone.Type) {
			return fmt.Errorf("local_zones: zone %q has invalid type %q", zone.Name, zone.Type)
		}
	}

	for _, view := range cfg.Views {
		if view.Name == "" {
			return fmt.Errorf("views: view name cannot be empty")
		}
	}

	for _, anchor := range cfg.Anchors {
		if err := validateZoneName(anchor.Zone); err != nil {
			return fmt.Errorf("trust_anchors: %w", err)
		}
	}

	if cfg.RateLimit.QPS < 0 || cfg.RateLimit.Burst < 0 || cfg.RateLimit.IPQPS < 0 || cfg.RateLimit.IPBurst < 0 {
		return fmt.Errorf("ratelimit: values cannot be negative")
	}

	if cfg.AuditLog.Backend != "sqlite" && cfg.AuditLog.Backend != "postgres" && cfg.AuditLog.Backend != "" {
		return fmt.Errorf("audit_log.backend must be \"sqlite\" or \"postgres\", got %q", cfg.AuditLog.Backend)
	}

	return nil
}

func validLocalZoneType(t string) bool {
	switch t {
	case "deny", "refuse", "static", "transparent", "redirect", "nodefault", "typetransparent", "always_transparent", "always_refuse", "always_nxdomain", "noview":
		return true
	default:
		return false
	}
}

// validateZoneName applies the minimal structural checks a DNS owner
// name must satisfy: non-empty, no internal whitespace, and no label
// longer than 63 octets.
func validateZoneName(name string) error {
	if name == "" {
		return fmt.Errorf("zone name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\r\n") {
		return fmt.Errorf("zone name %q contains whitespace", name)
	}
	for _, label := range strings.Split(strings.TrimSuffix(name, "."), ".") {
		if len(label) > 63 {
			return fmt.Errorf("zone name %q has a label longer than 63 octets", name)
		}
	}
	return nil
}
