package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16000, cfg.TargetSampleRate)
	assert.Equal(t, "whisper_large", cfg.STTPrimary)
	assert.Equal(t, []string{"whisper_base"}, cfg.STTFallbacks)
	assert.Equal(t, 0.95, cfg.QualityThreshold)
	assert.Equal(t, "ko-KR", cfg.Language)
	assert.Equal(t, 3600*1e9, float64(cfg.CacheTTL()))
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tonebridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quality_threshold: 0.8\nstt_primary: google_cloud\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.QualityThreshold)
	assert.Equal(t, "google_cloud", cfg.STTPrimary)
	// untouched fields keep their defaults
	assert.Equal(t, 16000, cfg.TargetSampleRate)
}

func TestLoadEnvOverridesFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tonebridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quality_threshold: 0.8\n"), 0o644))

	t.Setenv("TONEBRIDGE_QUALITY_THRESHOLD", "0.6")
	t.Setenv("TONEBRIDGE_CACHE_DIR", "/tmp/tonebridge-cache")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.QualityThreshold)
	assert.Equal(t, "/tmp/tonebridge-cache", cfg.CacheDir)
}

func TestLoadRejectsUnreadableConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
