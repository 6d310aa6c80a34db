// Package enhance implements the C3 audio-enhancement pipeline: pre-emphasis,
// spectral-subtraction noise reduction, a piecewise-linear EQ curve, and a
// hard-knee compressor. Each step is independently toggleable via Config.
package enhance

import (
	"math"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/dsp"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// Config toggles and parameterizes the enhancement steps.
type Config struct {
	PreEmphasis      bool
	PreEmphasisAlpha float64 // default 0.97

	NoiseReduction   bool
	NoiseBeta        float64 // spectral-subtraction over-subtraction factor, 1.5-2.5
	NoiseProfileMS   float64 // leading window used to estimate the noise floor, default 500ms
	SpectralFloor    float64 // fraction of original magnitude retained as a floor, default 0.1

	EQ               bool
	EQLowHz, EQHighHz float64 // Korean-speech preset band, default 300-3400
	EQBandGainDB     float64 // gain applied inside the band, default +3dB

	Compressor        bool
	CompressorThreshDB float64 // default -20
	CompressorRatio    float64 // default 3 (3:1)
}

// DefaultConfig returns the spec's default enhancement settings with every
// step enabled.
func DefaultConfig() Config {
	return Config{
		PreEmphasis:      true,
		PreEmphasisAlpha: 0.97,
		NoiseReduction:   true,
		NoiseBeta:        2.0,
		NoiseProfileMS:   500,
		SpectralFloor:    0.1,
		EQ:               true,
		EQLowHz:          300,
		EQHighHz:         3400,
		EQBandGainDB:     3,
		Compressor:       true,
		CompressorThreshDB: -20,
		CompressorRatio:    3,
	}
}

// Enhance runs the enabled steps over buf in order: pre-emphasis, noise
// reduction, EQ, compression. Sample rate is preserved; output length
// equals input length.
func Enhance(buf model.AudioBuffer, cfg Config) model.AudioBuffer {
	samples := append([]float32(nil), buf.Samples...)

	if cfg.PreEmphasis {
		samples = preEmphasis(samples, cfg.PreEmphasisAlpha)
	}
	if cfg.NoiseReduction {
		samples = spectralSubtract(samples, buf.SampleRate, cfg)
	}
	if cfg.EQ {
		samples = equalize(samples, buf.SampleRate, cfg)
	}
	if cfg.Compressor {
		samples = compress(samples, cfg)
	}

	return model.AudioBuffer{Samples: samples, SampleRate: buf.SampleRate, Channels: buf.Channels}
}

// preEmphasis applies y[n] = x[n] - alpha*x[n-1].
func preEmphasis(x []float32, alpha float64) []float32 {
	out := make([]float32, len(x))
	var prev float32
	a := float32(alpha)
	for i, s := range x {
		out[i] = s - a*prev
		prev = s
	}
	return out
}

const frameSize = 1024

// spectralSubtract estimates a noise magnitude profile from the leading
// NoiseProfileMS of audio and subtracts beta*noise from every frame's
// magnitude spectrum, floored at SpectralFloor*original magnitude.
func spectralSubtract(x []float32, sampleRate int, cfg Config) []float32 {
	if len(x) == 0 || sampleRate <= 0 {
		return x
	}
	hop := frameSize / 2
	window := dsp.HannWindow(frameSize)

	profileFrames := int(cfg.NoiseProfileMS / 1000 * float64(sampleRate) / float64(hop))
	if profileFrames < 1 {
		profileFrames = 1
	}

	frames := dsp.Frame(x, frameSize, hop)
	noiseProfile := make([]float64, frameSize)
	profileCount := 0
	for i, frame := range frames {
		if i >= profileFrames {
			break
		}
		windowed := append([]float32(nil), frame...)
		dsp.ApplyWindow(windowed, window)
		spec := toComplex(windowed)
		dsp.FFT(spec)
		for k, c := range spec {
			noiseProfile[k] += dsp.Magnitude(c)
		}
		profileCount++
	}
	if profileCount > 0 {
		for k := range noiseProfile {
			noiseProfile[k] /= float64(profileCount)
		}
	}

	out := make([]float32, len(x))
	for i, frame := range frames {
		windowed := append([]float32(nil), frame...)
		dsp.ApplyWindow(windowed, window)
		spec := toComplex(windowed)
		dsp.FFT(spec)
		for k, c := range spec {
			mag := dsp.Magnitude(c)
			floor := cfg.SpectralFloor * mag
			newMag := mag - cfg.NoiseBeta*noiseProfile[k]
			if newMag < floor {
				newMag = floor
			}
			if mag > 0 {
				scale := newMag / mag
				spec[k] = dsp.Complex{Re: c.Re * scale, Im: c.Im * scale}
			}
		}
		dsp.IFFT(spec)
		start := i * hop
		for n := 0; n < frameSize && start+n < len(out); n++ {
			out[start+n] += float32(spec[n].Re)
		}
	}
	return out
}

func toComplex(samples []float32) []dsp.Complex {
	out := make([]dsp.Complex, len(samples))
	for i, s := range samples {
		out[i].Re = float64(s)
	}
	return out
}

// equalize applies a piecewise-linear gain curve: +EQBandGainDB inside
// [EQLowHz, EQHighHz], unity outside, via a single FFT/IFFT pass over the
// whole zero-padded signal.
func equalize(x []float32, sampleRate int, cfg Config) []float32 {
	if len(x) == 0 || sampleRate <= 0 {
		return x
	}
	padded := dsp.ZeroPad(x)
	n := len(padded)
	dsp.FFT(padded)

	bandGain := math.Pow(10, cfg.EQBandGainDB/20)
	for k := range padded {
		freq := float64(k) * float64(sampleRate) / float64(n)
		if freq > float64(sampleRate)/2 {
			freq = float64(sampleRate) - freq
		}
		gain := 1.0
		if freq >= cfg.EQLowHz && freq <= cfg.EQHighHz {
			gain = bandGain
		}
		padded[k] = dsp.Complex{Re: padded[k].Re * gain, Im: padded[k].Im * gain}
	}
	dsp.IFFT(padded)

	out := make([]float32, len(x))
	for i := range out {
		out[i] = float32(padded[i].Re)
	}
	return out
}

// compress applies a hard-knee compressor with ratio CompressorRatio:1:
// samples at or below CompressorThreshDB pass unchanged and the level above
// it is divided by the ratio, with no gradual knee region around the
// threshold. The result is peak-normalized afterward.
func compress(x []float32, cfg Config) []float32 {
	threshLinear := math.Pow(10, cfg.CompressorThreshDB/20)
	out := make([]float32, len(x))
	peak := 0.0
	for i, s := range x {
		abs := math.Abs(float64(s))
		if abs > threshLinear {
			excessDB := 20 * math.Log10(abs/threshLinear)
			compressedDB := excessDB / cfg.CompressorRatio
			newAbs := threshLinear * math.Pow(10, compressedDB/20)
			sign := 1.0
			if s < 0 {
				sign = -1.0
			}
			out[i] = float32(sign * newAbs)
		} else {
			out[i] = s
		}
		if a := math.Abs(float64(out[i])); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		gain := float32(1.0 / peak)
		for i := range out {
			out[i] *= gain
		}
	}
	return out
}
