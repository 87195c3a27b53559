package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// ConfigDiff is a structured diff between two configuration trees,
// the input the fast-reload pipeline's diff phase produces for the
// apply phase to act on and for get_option/status-style reporting to
// render.
type ConfigDiff struct {
	Added      map[string]interface{} `json:"added,omitempty"`
	Modified   map[string]DiffEntry   `json:"modified,omitempty"`
	Deleted    []string               `json:"deleted,omitempty"`
	Affected   []string               `json:"affected_components,omitempty"`
	IsCritical bool                   `json:"is_critical"`
	Summary    string                 `json:"summary"`
}

// DiffEntry is a single field's before/after value.
type DiffEntry struct {
	OldValue interface{} `json:"old_value"`
	NewValue interface{} `json:"new_value"`
	Type     string      `json:"type,omitempty"`
}

// NewConfigDiff returns an empty diff ready to be populated.
func NewConfigDiff() *ConfigDiff {
	return &ConfigDiff{
		Added:    make(map[string]interface{}),
		Modified: make(map[string]DiffEntry),
		Deleted:  make([]string, 0),
		Affected: make([]string, 0),
	}
}

// GenerateSummary renders a one-line human-readable summary.
func (d *ConfigDiff) GenerateSummary() string {
	return fmt.Sprintf("%d added, %d modified, %d deleted", len(d.Added), len(d.Modified), len(d.Deleted))
}

// IsEmpty reports whether the diff carries no changes at all.
func (d *ConfigDiff) IsEmpty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}

// ConfigComparator computes the structured diff between two
// configuration trees, deciding which components a change affects
// and whether it touches one of the critical fields.
type ConfigComparator interface {
	Compare(oldCfg, newCfg *Config) (*ConfigDiff, error)
	IdentifyAffectedComponents(diff *ConfigDiff) []string
	IsCriticalChange(diff *ConfigDiff) bool
}

// DefaultConfigComparator implements ConfigComparator via a
// JSON-round-trip-then-recursive-map-diff, the same approach the
// reload coordinator's diff phase uses to avoid hand-maintained
// per-field comparison code as the config tree grows.
type DefaultConfigComparator struct{}

// NewConfigComparator returns the standard comparator.
func NewConfigComparator() *DefaultConfigComparator {
	return &DefaultConfigComparator{}
}

func (cc *DefaultConfigComparator) Compare(oldCfg, newCfg *Config) (*ConfigDiff, error) {
	diff := NewConfigDiff()

	oldMap, err := cc.configToMap(oldCfg)
	if err != nil {
		return nil, fmt.Errorf("convert old config: %w", err)
	}
	newMap, err := cc.configToMap(newCfg)
	if err != nil {
		return nil, fmt.Errorf("convert new config: %w", err)
	}

	cc.compareRecursive(oldMap, newMap, "", diff)

	diff.Affected = cc.IdentifyAffectedComponents(diff)
	diff.IsCritical = cc.IsCriticalChange(diff)
	diff.Summary = diff.GenerateSummary()

	return diff, nil
}

func (cc *DefaultConfigComparator) compareRecursive(oldMap, newMap map[string]interface{}, prefix string, diff *ConfigDiff) {
	for key, newValue := range newMap {
		fieldPath := buildFieldPath(prefix, key)
		oldValue, existed := oldMap[key]

		if !existed {
			diff.Added[fieldPath] = sanitizeFieldValue(fieldPath, newValue)
			continue
		}
		if !reflect.DeepEqual(oldValue, newValue) {
			oldMapVal, oldIsMap := oldValue.(map[string]interface{})
			newMapVal, newIsMap := newValue.(map[string]interface{})
			if oldIsMap && newIsMap {
				cc.compareRecursive(oldMapVal, newMapVal, fieldPath, diff)
				continue
			}
			diff.Modified[fieldPath] = DiffEntry{
				OldValue: sanitizeFieldValue(fieldPath, oldValue),
				NewValue: sanitizeFieldValue(fieldPath, newValue),
				Type:     detectType(newValue),
			}
		}
	}

	for key := range oldMap {
		fieldPath := buildFieldPath(prefix, key)
		if _, exists := newMap[key]; !exists {
			diff.Deleted = append(diff.Deleted, fieldPath)
		}
	}
}

// criticalFields names the fields whose modification sets
// ConfigDiff.IsCritical. The fast-reload pipeline does not read
// IsCritical: it picks paused or no-pause publication with
// RequiresPause, over the field set in excluded.go.
var criticalFields = map[string]bool{
	"control.port":      true,
	"control.use_tls":   true,
	"control.cert_file": true,
	"control.ca_file":   true,
	"server.port":       true,
}

func (cc *DefaultConfigComparator) IsCriticalChange(diff *ConfigDiff) bool {
	for field := range diff.Modified {
		if criticalFields[field] {
			return true
		}
	}
	for _, field := range diff.Deleted {
		if criticalFields[field] {
			return true
		}
	}
	return false
}

func (cc *DefaultConfigComparator) IdentifyAffectedComponents(diff *ConfigDiff) []string {
	seen := make(map[string]bool)
	add := func(field string) {
		if c := fieldToComponent(field); c != "" {
			seen[c] = true
		}
	}
	for field := range diff.Added {
		add(field)
	}
	for field := range diff.Modified {
		add(field)
	}
	for _, field := range diff.Deleted {
		add(field)
	}

	components := make([]string, 0, len(seen))
	for c := range seen {
		components = append(components, c)
	}
	return components
}

func (cc *DefaultConfigComparator) configToMap(cfg *Config) (map[string]interface{}, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

var componentBySection = map[string]string{
	"server":       "server",
	"control":      "control",
	"log":          "logger",
	"views":        "resolver",
	"forward_zones": "resolver",
	"stub_zones":   "resolver",
	"local_zones":  "resolver",
	"trust_anchors": "resolver",
	"rpz_zones":    "resolver",
	"ratelimit":    "ratelimit",
	"cache":        "resolver",
	"cluster_lock": "clusterlock",
	"audit_log":    "auditlog",
	"metrics":      "metrics",
}

func fieldToComponent(field string) string {
	parts := strings.SplitN(field, ".", 2)
	if len(parts) == 0 {
		return ""
	}
	if c, ok := componentBySection[parts[0]]; ok {
		return c
	}
	return parts[0]
}

func buildFieldPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func sanitizeFieldValue(fieldPath string, value interface{}) interface{} {
	lower := strings.ToLower(fieldPath)
	for _, keyword := range []string{"password", "secret", "dsn", "token"} {
		if strings.Contains(lower, keyword) {
			return "***REDACTED***"
		}
	}
	return value
}

func detectType(value interface{}) string {
	switch value.(type) {
	case int, int32, int64, uint, uint32, uint64, float64:
		return "number"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		return "unknown"
	}
}

// CalculateDiff is a convenience wrapper around the standard
// comparator.
func CalculateDiff(oldCfg, newCfg *Config) (*ConfigDiff, error) {
	return NewConfigComparator().Compare(oldCfg, newCfg)
}
