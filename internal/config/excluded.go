package config

// noPauseExcludedFields lists the configuration fields that cannot be
// safely hot-swapped without pausing query processing first: changing
// them while workers hold pointers into the old construct would leave
// some workers using mismatched state (a worker mid-validation with
// the old trust anchor set but the new RPZ tree, for instance).
// Everything else uses the default no-pause swap per spec.md §8.
var noPauseExcludedFields = map[string]bool{
	"control.port":      true,
	"control.use_tls":   true,
	"control.cert_file": true,
	"control.key_file":  true,
	"control.ca_file":   true,
	"server.interfaces": true,
	"server.port":       true,
}

// NoPauseExcludedFields returns the field paths that force a paused
// swap during fast-reload, regardless of how small their change is.
func NoPauseExcludedFields() map[string]bool {
	out := make(map[string]bool, len(noPauseExcludedFields))
	for k, v := range noPauseExcludedFields {
		out[k] = v
	}
	return out
}

// RequiresPause reports whether diff touches any field that forces a
// paused swap.
func RequiresPause(diff *ConfigDiff) bool {
	excluded := noPauseExcludedFields
	for field := range diff.Modified {
		if excluded[field] {
			return true
		}
	}
	for _, field := range diff.Deleted {
		if excluded[field] {
			return true
		}
	}
	for field := range diff.Added {
		if excluded[field] {
			return true
		}
	}
	return false
}
