package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	return cfg
}

func TestCalculateDiffDetectsModification(t *testing.T) {
	oldCfg := baseConfig(t)
	newCfg := baseConfig(t)
	newCfg.RateLimit.QPS = 500

	diff, err := CalculateDiff(oldCfg, newCfg)
	require.NoError(t, err)
	require.Contains(t, diff.Modified, "ratelimit.qps")
	require.False(t, diff.IsEmpty())
}

func TestCalculateDiffIdentifiesCriticalChange(t *testing.T) {
	oldCfg := baseConfig(t)
	newCfg := baseConfig(t)
	newCfg.Control.Port = 9999

	diff, err := CalculateDiff(oldCfg, newCfg)
	require.NoError(t, err)
	require.True(t, diff.IsCritical)
	require.Contains(t, diff.Affected, "control")
}

func TestCalculateDiffSanitizesSecretFields(t *testing.T) {
	oldCfg := baseConfig(t)
	newCfg := baseConfig(t)
	newCfg.ClusterLock.RedisPassword = "hunter2"

	diff, err := CalculateDiff(oldCfg, newCfg)
	require.NoError(t, err)
	entry, ok := diff.Added["cluster_lock.redis_password"]
	if !ok {
		entry, ok = diff.Modified["cluster_lock.redis_password"].NewValue, true
	}
	require.True(t, ok)
	require.Equal(t, "***REDACTED***", entry)
}

func TestRequiresPauseOnExcludedField(t *testing.T) {
	oldCfg := baseConfig(t)
	newCfg := baseConfig(t)
	newCfg.Server.Port = 5353

	diff, err := CalculateDiff(oldCfg, newCfg)
	require.NoError(t, err)
	require.True(t, RequiresPause(diff))
}

func TestRequiresPauseFalseForOrdinaryChange(t *testing.T) {
	oldCfg := baseConfig(t)
	newCfg := baseConfig(t)
	newCfg.RateLimit.QPS = 42

	diff, err := CalculateDiff(oldCfg, newCfg)
	require.NoError(t, err)
	require.False(t, RequiresPause(diff))
}
