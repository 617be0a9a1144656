package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"voxsh/internal/fault"
	"voxsh/pkg/audioconv"
)

// ALSA's "default" device often advertises dozens of input channels.
const maxChannels = 2

type Recorder struct {
	framesPerBuffer int
}

func NewRecorder() *Recorder { return &Recorder{framesPerBuffer: 1024} }

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fault.New(fault.IO, "init audio", err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures seconds of audio from the default input device at its
// native rate and writes it to path as 16-bit PCM WAV.
func (r *Recorder) Record(ctx context.Context, seconds int, path string) error {
	if seconds <= 0 {
		return fault.Newf(fault.IO, "record", "invalid duration %ds", seconds)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return fault.New(fault.IO, "open input device", err)
	}

	channels := min(max(dev.MaxInputChannels, 1), maxChannels)
	rate := int(dev.DefaultSampleRate)

	log.Debug("Opening input", "device", dev.Name, "rate", rate, "channels", channels)

	var buf sampleBuffer
	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(rate), r.framesPerBuffer,
		func(in []float32) { buf.Append(in) })
	if err != nil {
		return fault.New(fault.IO, "open input stream", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fault.New(fault.IO, "start input stream", err)
	}

	select {
	case <-time.After(time.Duration(seconds) * time.Second):
	case <-ctx.Done():
		stream.Stop()
		return ctx.Err()
	}

	if err := stream.Stop(); err != nil {
		return fault.New(fault.IO, "stop input stream", err)
	}

	samples := buf.Snapshot()
	if len(samples) == 0 {
		return fault.New(fault.IO, "record", errors.New("no audio recorded"))
	}

	log.Debug("Captured", "samples", len(samples))

	if err := WriteWAV(path, audioconv.ToInt16(samples), rate, channels); err != nil {
		return fault.New(fault.IO, "record", fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// sampleBuffer collects samples pushed from the audio callback thread.
type sampleBuffer struct {
	mu      sync.Mutex
	samples []float32
}

func (b *sampleBuffer) Append(in []float32) {
	b.mu.Lock()
	b.samples = append(b.samples, in...)
	b.mu.Unlock()
}

func (b *sampleBuffer) Snapshot() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]float32(nil), b.samples...)
}
