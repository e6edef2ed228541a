// Package tempo estimates the tempo and first-beat offset of decoded audio.
package tempo

import (
	"context"
	"math"

	"BeatStudio/core/audio"
	"BeatStudio/core/editorerr"
)

// Result is a detected tempo.
type Result struct {
	BPM      float64 `json:"bpm"`
	OffsetMs float64 `json:"offsetMs"`
}

const (
	hopMs      = 5.0 // onset envelope resolution
	minBeats   = 4   // envelope must span this many beats at the slowest tempo
	ctxCheckEv = 4096
)

// Detector finds the dominant beat period by autocorrelating an onset
// envelope within [MinBPM, MaxBPM].
type Detector struct {
	MinBPM float64
	MaxBPM float64
}

// NewDetector 创建节拍检测器
func NewDetector(minBPM, maxBPM float64) *Detector {
	if minBPM <= 0 {
		minBPM = 70
	}
	if maxBPM <= minBPM {
		maxBPM = minBPM * 2
	}
	return &Detector{MinBPM: minBPM, MaxBPM: maxBPM}
}

// Detect is compute bound; callers run it off the session loop.
func (d *Detector) Detect(ctx context.Context, buf *audio.Buffer) (Result, error) {
	if buf == nil || buf.SampleRate <= 0 || buf.Len() == 0 {
		return Result{}, editorerr.New(editorerr.KindDetection, "tempo: empty buffer",
			"Tempo detection needs decoded audio.")
	}

	env, err := onsetEnvelope(ctx, buf.Mono(), buf.SampleRate)
	if err != nil {
		return Result{}, err
	}

	fps := 1000.0 / hopMs
	minLag := int(math.Floor(60 * fps / d.MaxBPM))
	maxLag := int(math.Ceil(60 * fps / d.MinBPM))
	if minLag < 1 {
		minLag = 1
	}
	if len(env) < maxLag*minBeats {
		return Result{}, editorerr.New(editorerr.KindDetection, "tempo: audio too short",
			"The song is too short to detect its tempo.")
	}

	acf := make([]float64, maxLag+2)
	for lag := minLag - 1; lag <= maxLag+1; lag++ {
		if lag < 1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, editorerr.Canceled(err)
		}
		var sum float64
		for i := lag; i < len(env); i++ {
			sum += env[i] * env[i-lag]
		}
		acf[lag] = sum / float64(len(env)-lag)
	}

	best := -1
	for lag := minLag; lag <= maxLag; lag++ {
		if best < 0 || acf[lag] > acf[best] {
			best = lag
		}
	}
	if best < 0 || acf[best] <= 0 {
		return Result{}, editorerr.New(editorerr.KindDetection, "tempo: no periodicity",
			"No steady beat was found in this song.")
	}

	period := float64(best) + parabolicShift(acf[best-1], acf[best], acf[best+1])
	bpm := 60 * fps / period
	if bpm < d.MinBPM || bpm > d.MaxBPM {
		bpm = 60 * fps / float64(best)
	}

	phase := bestPhase(env, 60*fps/bpm)
	offsetMs := math.Mod(float64(phase)*hopMs, 60000/bpm)

	return Result{BPM: round2(bpm), OffsetMs: round2(offsetMs)}, nil
}

// onsetEnvelope returns the half-wave rectified energy flux per hop.
func onsetEnvelope(ctx context.Context, mono []float32, sampleRate int) ([]float64, error) {
	hop := int(float64(sampleRate) * hopMs / 1000)
	if hop < 1 {
		hop = 1
	}
	frames := len(mono) / hop
	env := make([]float64, frames)

	var prev, peak float64
	for f := 0; f < frames; f++ {
		if f%ctxCheckEv == 0 {
			if err := ctx.Err(); err != nil {
				return nil, editorerr.Canceled(err)
			}
		}
		var e float64
		for _, s := range mono[f*hop : (f+1)*hop] {
			e += float64(s) * float64(s)
		}
		e /= float64(hop)
		if flux := e - prev; flux > 0 {
			env[f] = flux
		}
		prev = e
		if env[f] > peak {
			peak = env[f]
		}
	}
	if peak == 0 {
		return nil, editorerr.New(editorerr.KindDetection, "tempo: silent audio",
			"The song appears to be silent, so its tempo could not be detected.")
	}
	return env, nil
}

// parabolicShift fits a parabola through three neighbouring values and
// returns the peak's offset from the centre, in [-0.5, 0.5].
func parabolicShift(a, b, c float64) float64 {
	den := a - 2*b + c
	if den == 0 {
		return 0
	}
	shift := 0.5 * (a - c) / den
	return math.Max(-0.5, math.Min(0.5, shift))
}

// bestPhase picks the frame offset in [0, period) whose comb of onsets is
// strongest.
func bestPhase(env []float64, period float64) int {
	best, bestSum := 0, -1.0
	for p := 0; float64(p) < period; p++ {
		var sum float64
		for k := 0; ; k++ {
			i := int(math.Round(float64(p) + float64(k)*period))
			if i >= len(env) {
				break
			}
			sum += env[i]
		}
		if sum > bestSum {
			best, bestSum = p, sum
		}
	}
	return best
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
