package audio

import "fmt"

// Conform converts b to the requested sample rate and channel count.
// A trailing partial frame is dropped. The input is not modified.
func Conform(b *Buffer, sampleRate, channels int) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid target format %d Hz/%d ch", sampleRate, channels)
	}
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return nil, fmt.Errorf("invalid source format %d Hz/%d ch", b.SampleRate, b.Channels)
	}

	if len(b.Samples)%b.Channels != 0 {
		b = &Buffer{Samples: wholeFrames(b.Samples, b.Channels), SampleRate: b.SampleRate, Channels: b.Channels}
	}

	out := remix(b, channels)
	if out.SampleRate != sampleRate {
		out = resample(out, sampleRate)
	}
	return out, nil
}

// remix converts between channel layouts. Downmixing averages the source
// channels; upmixing duplicates a mono signal or the first channels.
func remix(b *Buffer, channels int) *Buffer {
	if b.Channels == channels {
		return b.Clone()
	}

	frames := b.Frames()
	out := make([]int16, frames*channels)
	for f := 0; f < frames; f++ {
		src := b.Samples[f*b.Channels : (f+1)*b.Channels]
		if channels == 1 {
			var sum int
			for _, s := range src {
				sum += int(s)
			}
			out[f] = int16(sum / len(src))
			continue
		}
		for c := 0; c < channels; c++ {
			out[f*channels+c] = src[c%len(src)]
		}
	}
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: channels}
}

// resample uses linear interpolation between neighbouring frames
func resample(b *Buffer, sampleRate int) *Buffer {
	srcFrames := b.Frames()
	if srcFrames == 0 {
		return &Buffer{SampleRate: sampleRate, Channels: b.Channels}
	}

	dstFrames := int(int64(srcFrames) * int64(sampleRate) / int64(b.SampleRate))
	ch := b.Channels
	out := make([]int16, dstFrames*ch)
	ratio := float64(b.SampleRate) / float64(sampleRate)

	for f := 0; f < dstFrames; f++ {
		pos := float64(f) * ratio
		i := int(pos)
		frac := pos - float64(i)
		j := i + 1
		if j >= srcFrames {
			j = srcFrames - 1
		}
		for c := 0; c < ch; c++ {
			a := float64(b.Samples[i*ch+c])
			z := float64(b.Samples[j*ch+c])
			out[f*ch+c] = clampSample(a + (z-a)*frac)
		}
	}
	return &Buffer{Samples: out, SampleRate: sampleRate, Channels: ch}
}

func clampSample(v float64) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	case v >= 0:
		return int16(v + 0.5)
	default:
		return int16(v - 0.5)
	}
}
