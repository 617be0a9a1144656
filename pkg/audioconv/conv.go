package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// Clip is interleaved float32 audio in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return len(c.Samples)
	}
	return len(c.Samples) / c.Channels
}

func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// Mono averages all channels of each frame.
func (c Clip) Mono() Clip {
	if c.Channels <= 1 {
		c.Channels = 1
		return c
	}
	n := c.Frames()
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float64
		frame := c.Samples[i*c.Channels : (i+1)*c.Channels]
		for _, s := range frame {
			sum += float64(s)
		}
		out[i] = float32(sum / float64(c.Channels))
	}
	return Clip{Samples: out, SampleRate: c.SampleRate, Channels: 1}
}

// Resample converts a mono clip to rate with linear interpolation.
func (c Clip) Resample(rate int) Clip {
	if c.SampleRate == rate || len(c.Samples) == 0 || c.SampleRate <= 0 {
		c.SampleRate = rate
		return c
	}
	n := int(math.Ceil(float64(len(c.Samples)) * float64(rate) / float64(c.SampleRate)))
	out := make([]float32, n)
	last := len(c.Samples) - 1
	step := float64(c.SampleRate) / float64(rate)
	for i := range out {
		pos := float64(i) * step
		i0 := int(pos)
		if i0 >= last {
			out[i] = c.Samples[last]
			continue
		}
		frac := float32(pos - float64(i0))
		out[i] = c.Samples[i0]*(1-frac) + c.Samples[i0+1]*frac
	}
	return Clip{Samples: out, SampleRate: rate, Channels: c.Channels}
}

// WhisperRate is the input rate whisper models expect.
const WhisperRate = 16000

// DecodeFile16kMono decodes path and returns mono samples at WhisperRate.
func DecodeFile16kMono(path string) ([]float32, error) {
	c, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return c.Mono().Resample(WhisperRate).Samples, nil
}

// DecodeFile picks a decoder from the extension, falling back to sniffing
// the first bytes for files without a known one.
func DecodeFile(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga", ".opus":
		return decodeOgg(f)
	}

	magic, _ := bufio.NewReader(f).Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Clip{}, err
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	}
	if bytes.HasPrefix(magic, []byte("ID3")) {
		return decodeMP3(f)
	}
	return Clip{}, fmt.Errorf("unsupported audio format: %s", path)
}

func decodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Clip{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(clamp(float64(v) * scale))
	}

	c := Clip{Samples: samples, SampleRate: int(dec.SampleRate), Channels: int(dec.NumChans)}
	if buf.Format != nil {
		c.SampleRate = buf.Format.SampleRate
		c.Channels = buf.Format.NumChannels
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
	return c, nil
}

func decodeMP3(r io.Reader) (Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Clip{}, fmt.Errorf("open mp3: %w", err)
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("read mp3: %w", err)
	}
	pcm := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(pcm)*2]), binary.LittleEndian, pcm); err != nil {
		return Clip{}, fmt.Errorf("read mp3: %w", err)
	}
	// go-mp3 always yields 16-bit stereo
	return Clip{Samples: FromInt16(pcm), SampleRate: dec.SampleRate(), Channels: 2}, nil
}

func decodeOgg(f io.ReadSeeker) (Clip, error) {
	c, verr := decodeVorbis(f)
	if verr == nil {
		return c, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Clip{}, err
	}
	c, oerr := decodeOpus(f)
	if oerr != nil {
		return Clip{}, fmt.Errorf("decode ogg: vorbis: %v; opus: %w", verr, oerr)
	}
	return c, nil
}

func decodeVorbis(r io.Reader) (Clip, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return Clip{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return Clip{}, errors.New("invalid vorbis stream")
	}
	return Clip{Samples: pcm, SampleRate: format.SampleRate, Channels: format.Channels}, nil
}

// opus streams always decode at 48 kHz
const opusRate = 48000

func decodeOpus(r io.ReadSeeker) (Clip, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return Clip{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var out []float32
	buf := make([]int16, opusRate/2*ch)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out = append(out, FromInt16(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Clip{}, err
		}
	}
	if len(out) == 0 {
		return Clip{}, errors.New("empty opus stream")
	}
	return Clip{Samples: out, SampleRate: opusRate, Channels: ch}, nil
}

// ToInt16 scales float samples by the largest int16 magnitude, clamping
// anything outside [-1, 1].
func ToInt16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		out[i] = int16(clamp(float64(v)) * math.MaxInt16)
	}
	return out
}

func FromInt16(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(float64(v) / 32768.0)
	}
	return out
}

func clamp(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}
