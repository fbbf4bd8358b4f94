package audio

import "math"

const (
	// below this RMS a clip is treated as silence and left alone
	silenceFloorDBFS = -70.0
	fullScale        = 32768.0
)

// Level is a loudness measurement in dBFS
type Level struct {
	PeakDBFS float64
	RMSDBFS  float64
}

// Measure computes peak and RMS level over the whole buffer
func Measure(b *Buffer) Level {
	if b == nil || len(b.Samples) == 0 {
		return Level{PeakDBFS: math.Inf(-1), RMSDBFS: math.Inf(-1)}
	}

	var (
		peak  float64
		sumSq float64
	)
	for _, s := range b.Samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
		sumSq += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSq / float64(len(b.Samples)))

	return Level{PeakDBFS: toDBFS(peak), RMSDBFS: toDBFS(rms)}
}

func toDBFS(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v/fullScale)
}

// Normalize scales b in place so its RMS reaches targetDBFS, limited so the
// peak stays at or below ceilingDBFS. It returns the gain applied in dB.
// Near-silent buffers are not touched.
func Normalize(b *Buffer, targetDBFS, ceilingDBFS float64) float64 {
	lvl := Measure(b)
	if math.IsInf(lvl.RMSDBFS, -1) || lvl.RMSDBFS < silenceFloorDBFS {
		return 0
	}

	gain := targetDBFS - lvl.RMSDBFS
	if headroom := ceilingDBFS - lvl.PeakDBFS; gain > headroom {
		gain = headroom
	}
	ApplyGain(b, gain)
	return gain
}

// ApplyGain scales every sample by gainDB decibels with clipping
func ApplyGain(b *Buffer, gainDB float64) {
	if gainDB == 0 {
		return
	}
	factor := math.Pow(10, gainDB/20)
	for i, s := range b.Samples {
		b.Samples[i] = clampSample(float64(s) * factor)
	}
}
