package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"voxsh/internal/fault"
	"voxsh/pkg/audioconv"
)

type Options struct {
	Language string // "auto", "en", ...
	Threads  int    // <=0 => NumCPU()
}

// Transcriber runs whisper.cpp in-process. Any audio audioconv can decode
// is accepted; it is downmixed and resampled to 16 kHz first.
type Transcriber struct {
	model whisper.Model
	opt   Options
}

func New(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, fault.New(fault.IO, "load whisper model", errors.New("empty model path"))
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fault.New(fault.IO, "load whisper model", err)
	}
	if opt.Language == "" {
		opt.Language = "auto"
	}
	if opt.Threads <= 0 {
		opt.Threads = runtime.NumCPU()
	}
	return &Transcriber{model: m, opt: opt}, nil
}

func (l *Transcriber) Close() error {
	if l.model == nil {
		return nil
	}
	return l.model.Close()
}

func (l *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	pcm, err := audioconv.DecodeFile16kMono(path)
	if err != nil {
		return "", fault.New(fault.IO, "transcribe", fmt.Errorf("decode %s: %w", path, err))
	}
	if len(pcm) == 0 {
		return "", fault.New(fault.IO, "transcribe", errors.New("no audio samples"))
	}

	wctx, err := l.model.NewContext()
	if err != nil {
		return "", fault.New(fault.IO, "transcribe", fmt.Errorf("new context: %w", err))
	}
	if err := wctx.SetLanguage(l.opt.Language); err != nil {
		return "", fault.New(fault.IO, "transcribe", fmt.Errorf("set language: %w", err))
	}
	wctx.SetThreads(uint(l.opt.Threads))

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fault.New(fault.IO, "transcribe", fmt.Errorf("process: %w", err))
	}

	var parts []string
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fault.New(fault.Parse, "transcribe", fmt.Errorf("next segment: %w", err))
		}
		parts = append(parts, strings.TrimSpace(seg.Text))
	}

	return strings.Join(parts, " "), nil
}
