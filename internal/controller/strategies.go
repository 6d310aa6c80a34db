package controller

import "github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"

// Strategy names, ported from quality_validator.py's
// _init_reprocessing_strategies (Korean names kept as comments for
// traceability to the source constants).
const (
	StrategyEnhancedDenoise       = "enhanced_denoise"       // 고급_노이즈_제거
	StrategyKoreanConsonantBoost  = "korean_consonant_boost"  // 한국어_자음_강화
	StrategyProsodyNormalization  = "prosody_normalization"   // 운율_정규화_강화
	StrategyWhisperLargePrecision = "whisper_large_precision" // Whisper_Large_정밀모드
	StrategyMultiEngineConsensus  = "multi_engine_consensus"  // 다중엔진_강화_합의
	StrategyKoreanPostProcessing  = "korean_post_processing"  // 한국어_특화_후처리
)

// allStrategies is the full registry of reprocessing strategies with their
// priority and expected improvement, exactly as original_source's
// _init_reprocessing_strategies.
func allStrategies() map[string]model.ReprocessingStrategy {
	return map[string]model.ReprocessingStrategy{
		StrategyEnhancedDenoise: {
			Name:                StrategyEnhancedDenoise,
			AudioAdjustments:    map[string]any{"noise_beta": 2.5},
			Priority:            1,
			ExpectedImprovement: 0.15,
		},
		StrategyKoreanConsonantBoost: {
			Name:                StrategyKoreanConsonantBoost,
			AudioAdjustments:    map[string]any{"eq_band_gain_db": 6.0, "eq_low_hz": 2000.0, "eq_high_hz": 5000.0},
			Priority:            2,
			ExpectedImprovement: 0.20,
		},
		StrategyProsodyNormalization: {
			Name:                StrategyProsodyNormalization,
			AudioAdjustments:    map[string]any{"compressor_ratio": 4.0},
			Priority:            3,
			ExpectedImprovement: 0.12,
		},
		StrategyWhisperLargePrecision: {
			Name:                StrategyWhisperLargePrecision,
			STTParameters:       map[string]any{"temperature": 0.0, "beam_size": 10},
			Priority:            1,
			ExpectedImprovement: 0.25,
		},
		StrategyMultiEngineConsensus: {
			Name:                StrategyMultiEngineConsensus,
			STTParameters:       map[string]any{"require_consensus": true},
			Priority:            2,
			ExpectedImprovement: 0.18,
		},
		StrategyKoreanPostProcessing: {
			Name:                StrategyKoreanPostProcessing,
			STTParameters:       map[string]any{"korean_postprocess": true},
			Priority:            3,
			ExpectedImprovement: 0.10,
		},
	}
}

// hintCandidates maps a quality strategy hint to its candidate strategy
// names, per _suggest_reprocessing_strategies; list order carries no
// meaning, since selectStrategy ranks candidates by priority and then name.
var hintCandidates = map[string][]string{
	"syllable_accuracy":   {StrategyKoreanConsonantBoost, StrategyWhisperLargePrecision},
	"confidence_score":    {StrategyMultiEngineConsensus, StrategyEnhancedDenoise},
	"phonetic_similarity": {StrategyProsodyNormalization, StrategyKoreanPostProcessing},
	"duration_alignment":  {StrategyEnhancedDenoise, StrategyProsodyNormalization},
	"korean_text_quality": {StrategyKoreanPostProcessing, StrategyKoreanConsonantBoost},
}

// selectStrategy picks the highest-priority candidate strategy for hint
// that hasn't been tried yet this run. Ties are broken by a total order on
// strategy name for idempotence, per spec §4.12.
func selectStrategy(hint string, tried map[string]bool) (model.ReprocessingStrategy, bool) {
	registry := allStrategies()
	candidates := hintCandidates[hint]
	var best model.ReprocessingStrategy
	found := false
	for _, name := range candidates {
		if tried[name] {
			continue
		}
		s := registry[name]
		if !found || s.Priority < best.Priority || (s.Priority == best.Priority && s.Name < best.Name) {
			best = s
			found = true
		}
	}
	return best, found
}
