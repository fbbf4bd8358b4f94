// Package playback plays a rendered dialogue on the default output device.
package playback

import (
	"context"
	"fmt"
	"sync"

	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/pkg/wav"
	"github.com/gen2brain/malgo"
)

// Play blocks until buf has been played or ctx is done
func Play(ctx context.Context, buf *audio.Buffer) error {
	if buf == nil || buf.Frames() == 0 {
		return nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("error initializing audio context: %w", err)
	}
	defer func() {
		mctx.Uninit()
		mctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(buf.Channels)
	deviceConfig.SampleRate = uint32(buf.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	f := newFeeder(wav.SamplesToBytes(buf.Samples))

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(outputBuffer, _ []byte, _ uint32) {
			f.fill(outputBuffer)
		},
	})
	if err != nil {
		return fmt.Errorf("error initializing playback device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("error starting playback: %w", err)
	}
	logger.Infof("🔊 Playing %s of audio...", buf.Duration())

	select {
	case <-f.done:
		logger.Debugf("Playback completed")
		return nil
	case <-ctx.Done():
		device.Stop()
		return ctx.Err()
	}
}

// feeder hands out PCM bytes to the device callback and closes done once
// everything has been handed out
type feeder struct {
	mu   sync.Mutex
	data []byte
	pos  int
	done chan struct{}
	once sync.Once
}

func newFeeder(data []byte) *feeder {
	return &feeder{data: data, done: make(chan struct{})}
}

// fill copies the next chunk into out and zero-fills the remainder
func (f *feeder) fill(out []byte) {
	f.mu.Lock()
	n := copy(out, f.data[f.pos:])
	f.pos += n
	finished := f.pos >= len(f.data)
	f.mu.Unlock()

	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if finished {
		f.once.Do(func() { close(f.done) })
	}
}
