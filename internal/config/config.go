// Package config builds the resolved SessionConfig for a tonebridge run by
// layering hard defaults, an optional tonebridge.yaml/tonebridge.json file,
// and TONEBRIDGE_* environment variables, generalizing the teacher's
// cmd/gateway/config.go hand-rolled env-var loading with spf13/viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/env"
)

// SessionConfig is every option named in the spec's §6 Configuration table,
// plus the ambient fields (cache dir, postgres DSN, listen address) this
// module's expansion adds.
type SessionConfig struct {
	TargetSampleRate     int     `mapstructure:"target_sample_rate"`
	TargetDBFS           float64 `mapstructure:"target_dbfs"`
	SilenceThresholdDB   float64 `mapstructure:"silence_threshold_db"`
	PitchFloor           float64 `mapstructure:"pitch_floor"`
	PitchCeiling         float64 `mapstructure:"pitch_ceiling"`
	TimeStep             float64 `mapstructure:"time_step"`
	STTPrimary           string  `mapstructure:"stt_primary"`
	STTFallbacks         []string `mapstructure:"stt_fallbacks"`
	EnableMultiEngine    bool    `mapstructure:"enable_multi_engine"`
	ConsensusThreshold   int     `mapstructure:"consensus_threshold"`
	ConfidenceThreshold  float64 `mapstructure:"confidence_threshold"`
	QualityThreshold     float64 `mapstructure:"quality_threshold"`
	MaxReprocessAttempts int     `mapstructure:"max_reprocess_attempts"`
	CacheTTLSeconds      int     `mapstructure:"cache_ttl_seconds"`
	Language             string  `mapstructure:"language"`

	CacheDir    string `mapstructure:"cache_dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	ListenAddr  string `mapstructure:"listen_addr"`
}

// CacheTTL returns CacheTTLSeconds as a time.Duration.
func (c SessionConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func defaults() SessionConfig {
	return SessionConfig{
		TargetSampleRate:     16000,
		TargetDBFS:           -20.0,
		SilenceThresholdDB:   -40.0,
		PitchFloor:           75.0,
		PitchCeiling:         600.0,
		TimeStep:             0.01,
		STTPrimary:           "whisper_large",
		STTFallbacks:         []string{"whisper_base"},
		EnableMultiEngine:    false,
		ConsensusThreshold:   2,
		ConfidenceThreshold:  0.85,
		QualityThreshold:     0.95,
		MaxReprocessAttempts: 3,
		CacheTTLSeconds:      3600,
		Language:             "ko-KR",
		CacheDir:             "",
		PostgresDSN:          "",
		ListenAddr:           "",
	}
}

// Load builds a SessionConfig by merging, in increasing priority: hard
// defaults, an optional config file at configPath (yaml or json, detected by
// extension; "" skips this layer), and TONEBRIDGE_* environment variables.
func Load(configPath string) (SessionConfig, error) {
	v := viper.New()
	d := defaults()

	v.SetDefault("target_sample_rate", d.TargetSampleRate)
	v.SetDefault("target_dbfs", d.TargetDBFS)
	v.SetDefault("silence_threshold_db", d.SilenceThresholdDB)
	v.SetDefault("pitch_floor", d.PitchFloor)
	v.SetDefault("pitch_ceiling", d.PitchCeiling)
	v.SetDefault("time_step", d.TimeStep)
	v.SetDefault("stt_primary", d.STTPrimary)
	v.SetDefault("stt_fallbacks", d.STTFallbacks)
	v.SetDefault("enable_multi_engine", d.EnableMultiEngine)
	v.SetDefault("consensus_threshold", d.ConsensusThreshold)
	v.SetDefault("confidence_threshold", d.ConfidenceThreshold)
	v.SetDefault("quality_threshold", d.QualityThreshold)
	v.SetDefault("max_reprocess_attempts", d.MaxReprocessAttempts)
	v.SetDefault("cache_ttl_seconds", d.CacheTTLSeconds)
	v.SetDefault("language", d.Language)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("postgres_dsn", d.PostgresDSN)
	v.SetDefault("listen_addr", d.ListenAddr)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return SessionConfig{}, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	v.SetEnvPrefix("TONEBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"target_sample_rate", "target_dbfs", "silence_threshold_db", "pitch_floor",
		"pitch_ceiling", "time_step", "stt_primary", "stt_fallbacks", "enable_multi_engine",
		"consensus_threshold", "confidence_threshold", "quality_threshold",
		"max_reprocess_attempts", "cache_ttl_seconds", "language", "cache_dir",
		"postgres_dsn", "listen_addr",
	} {
		_ = v.BindEnv(key)
	}

	var cfg SessionConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	// Scalar overrides env.go still covers for fields viper's struct tags
	// can't reach cleanly (a single simple string with no file-layer need).
	cfg.CacheDir = env.Str("TONEBRIDGE_CACHE_DIR", cfg.CacheDir)

	return cfg, nil
}
