// Package formant implements the C5 formant analyzer: Burg-method LPC
// coefficient estimation, polynomial root solving for candidate formant
// frequencies, and the vowel-space convex-hull area over voiced (F1,F2)
// pairs.
package formant

import (
	"math"
	"math/cmplx"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/dsp"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Config parameterizes formant tracking.
type Config struct {
	MaxFormants  int
	WindowMS     float64
	PreEmphHz    float64
	MaxFreqHz    float64
	TimeStep     float64
}

// DefaultConfig returns the spec's default formant-tracker configuration.
func DefaultConfig() Config {
	return Config{MaxFormants: 4, WindowMS: 25, PreEmphHz: 50, MaxFreqHz: 5500, TimeStep: 0.01}
}

// Analyze computes the formant contour and vowel-space area for buf.
func Analyze(buf model.AudioBuffer, cfg Config) model.FormantContour {
	if buf.SampleRate <= 0 {
		return model.FormantContour{}
	}
	windowLen := int(cfg.WindowMS / 1000 * float64(buf.SampleRate))
	hop := int(cfg.TimeStep * float64(buf.SampleRate))
	if windowLen <= 0 || hop <= 0 {
		return model.FormantContour{}
	}

	emphasized := preEmphasize(buf.Samples, cfg.PreEmphHz, buf.SampleRate)
	frames := dsp.Frame(emphasized, windowLen, hop)
	order := 2*cfg.MaxFormants + 2

	points := make([]model.FormantPoint, 0, len(frames))
	var voicedF1F2 [][2]float64
	window := dsp.HannWindow(windowLen)

	for i, frame := range frames {
		windowed := append([]float32(nil), frame...)
		dsp.ApplyWindow(windowed, window)
		coeffs, ok := burgLPC(windowed, order)
		t := float64(i) * cfg.TimeStep
		if !ok {
			points = append(points, model.FormantPoint{Time: t})
			continue
		}
		freqs := rootsToFormants(coeffs, buf.SampleRate, cfg.MaxFreqHz)
		fp := model.FormantPoint{Time: t}
		if len(freqs) > 0 {
			fp.F1 = freqs[0]
		}
		if len(freqs) > 1 {
			fp.F2 = freqs[1]
		}
		if len(freqs) > 2 {
			fp.F3 = freqs[2]
		}
		if len(freqs) > 3 {
			fp.F4 = freqs[3]
		}
		points = append(points, fp)
		if fp.F1 > 0 && fp.F2 > 0 {
			voicedF1F2 = append(voicedF1F2, [2]float64{fp.F1, fp.F2})
		}
	}

	return model.FormantContour{
		Points:         points,
		VowelSpaceArea: convexHullArea(voicedF1F2),
	}
}

func preEmphasize(x []float32, cutoffHz float64, sampleRate int) []float32 {
	alpha := float32(math.Exp(-2 * math.Pi * cutoffHz / float64(sampleRate)))
	out := make([]float32, len(x))
	var prev float32
	for i, s := range x {
		out[i] = s - alpha*prev
		prev = s
	}
	return out
}

// burgLPC estimates order LPC coefficients a[1..order] (a[0]==1 implicit)
// via the Burg method, which minimizes forward+backward prediction error
// directly from the samples rather than the autocorrelation.
func burgLPC(x []float32, order int) ([]float64, bool) {
	n := len(x)
	if n <= order+1 {
		return nil, false
	}
	f := make([]float64, n)
	b := make([]float64, n)
	for i, s := range x {
		f[i] = float64(s)
		b[i] = float64(s)
	}
	a := make([]float64, order+1)
	a[0] = 1

	dk := 0.0
	for i := 0; i < n; i++ {
		dk += 2 * f[i] * f[i]
	}
	dk -= f[0]*f[0] + b[n-1]*b[n-1]

	for k := 0; k < order; k++ {
		if dk <= 0 {
			return nil, false
		}
		num := 0.0
		for i := k + 1; i < n; i++ {
			num += f[i] * b[i-1]
		}
		kReflect := 2 * num / dk

		newF := make([]float64, n)
		newB := make([]float64, n)
		copy(newF, f)
		copy(newB, b)
		for i := k + 1; i < n; i++ {
			newF[i] = f[i] - kReflect*b[i-1]
			newB[i] = b[i-1] - kReflect*f[i]
		}
		f, b = newF, newB

		newA := make([]float64, order+1)
		copy(newA, a)
		for i := 1; i <= k+1; i++ {
			newA[i] = a[i] - kReflect*a[k+1-i]
		}
		a = newA

		dk = (1-kReflect*kReflect)*dk - f[k+1]*f[k+1] - b[n-1]*b[n-1]
	}
	return a, true
}

// rootsToFormants finds the roots of the LPC polynomial, converts angle to
// frequency, keeps roots with magnitude in [0.7, 1.0] and positive angle
// whose frequency lies strictly between 90 Hz and maxFreqHz, and returns
// those frequencies sorted ascending.
func rootsToFormants(coeffs []float64, sampleRate int, maxFreqHz float64) []float64 {
	roots := polyRoots(coeffs)
	var freqs []float64
	for _, r := range roots {
		if cmplx.Abs(r) < 0.7 || cmplx.Abs(r) > 1.0 {
			continue
		}
		angle := cmplx.Phase(r)
		if angle <= 0 {
			continue
		}
		freq := angle * float64(sampleRate) / (2 * math.Pi)
		if freq > 90 && freq < maxFreqHz {
			freqs = append(freqs, freq)
		}
	}
	for i := 1; i < len(freqs); i++ {
		for j := i; j > 0 && freqs[j-1] > freqs[j]; j-- {
			freqs[j-1], freqs[j] = freqs[j], freqs[j-1]
		}
	}
	return freqs
}

// polyRoots finds the roots of 1 + a[1]z^-1 + ... + a[n]z^-n via the
// companion-matrix eigenvalues of the equivalent polynomial in z.
func polyRoots(coeffs []float64) []complex128 {
	n := len(coeffs) - 1
	if n <= 0 {
		return nil
	}
	companion := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		companion.Set(0, i, -coeffs[i+1]/coeffs[0])
	}
	for i := 1; i < n; i++ {
		companion.Set(i, i-1, 1)
	}
	var eig mat.Eigen
	if !eig.Factorize(companion, mat.EigenRight) {
		return nil
	}
	values := eig.Values(nil)
	out := make([]complex128, len(values))
	for i, v := range values {
		out[i] = complex(real(v), imag(v))
	}
	return out
}

// convexHullArea computes the area of the 2D convex hull over points via
// Andrew's monotone-chain algorithm and the shoelace formula.
func convexHullArea(points [][2]float64) float64 {
	if len(points) < 3 {
		return 0
	}
	pts := append([][2]float64(nil), points...)
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && less(pts[j], pts[j-1]); j-- {
			pts[j], pts[j-1] = pts[j-1], pts[j]
		}
	}
	pts = dedup(pts)
	if len(pts) < 3 {
		return 0
	}

	var lower, upper [][2]float64
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	return shoelaceArea(hull)
}

func less(a, b [2]float64) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

func dedup(pts [][2]float64) [][2]float64 {
	out := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			out = append(out, p)
		}
	}
	return out
}

func cross(o, a, b [2]float64) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func shoelaceArea(hull [][2]float64) float64 {
	n := len(hull)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += hull[i][0]*hull[j][1] - hull[j][0]*hull[i][1]
	}
	return math.Abs(sum) / 2
}
