package pipeline

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"voxsh/internal/command"
	"voxsh/internal/fault"
	"voxsh/internal/shell"
)

const (
	RecordingFile  = "recording.wav"
	TranscriptFile = "transcription.txt"
)

type AudioSource interface {
	Record(ctx context.Context, seconds int, path string) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type Generator interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

type Executor interface {
	Execute(ctx context.Context, d command.Decision) (*shell.Result, error)
}

type Options struct {
	Duration       int
	Recordings     string
	Transcriptions string
	// Example replaces live capture with an existing audio file.
	Example string
	Policy  command.Policy
}

type Pipeline struct {
	opt    Options
	source AudioSource
	stt    Transcriber
	gen    Generator
	exec   Executor
	cue    func() error
}

// New wires the stages. source may be nil when opt.Example is set.
func New(opt Options, source AudioSource, stt Transcriber, gen Generator, exec Executor) *Pipeline {
	return &Pipeline{
		opt:    opt,
		source: source,
		stt:    stt,
		gen:    gen,
		exec:   exec,
	}
}

// WithCue registers a sound played right before live capture.
func (p *Pipeline) WithCue(cue func() error) *Pipeline {
	p.cue = cue
	return p
}

// Prepare creates the output folders.
func (p *Pipeline) Prepare() error {
	for _, dir := range []string{p.opt.Recordings, p.opt.Transcriptions} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fault.New(fault.IO, "prepare", err)
		}
	}
	return nil
}

type Report struct {
	RunID      string
	Audio      string
	Transcript string
	Completion string
	Candidate  string
	Decision   command.Decision
	Result     *shell.Result
}

// Run performs one record → transcribe → generate → extract → classify →
// execute pass. A rejected command is a normal outcome: Run returns the
// report with a nil error and nothing executed. Any other failure stops the
// remaining stages.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.NewString()}
	l := log.With("run", rep.RunID)

	audio, err := p.acquire(ctx, l)
	if err != nil {
		return rep, err
	}
	rep.Audio = audio

	l.Info("Transcribing", "audio", audio)
	rep.Transcript, err = p.stt.Transcribe(ctx, audio)
	if err != nil {
		return rep, err
	}
	l.Info("Transcribed", "text", rep.Transcript)

	if err := p.saveTranscript(rep.Transcript); err != nil {
		return rep, err
	}

	rep.Completion, err = p.gen.Generate(ctx, rep.Transcript)
	if err != nil {
		return rep, err
	}
	l.Debug("Generated", "completion", rep.Completion)

	rep.Candidate, rep.Decision = command.Evaluate(rep.Completion, p.opt.Policy)

	res, err := p.exec.Execute(ctx, rep.Decision)
	if fault.KindOf(err) == fault.Safety {
		if rep.Decision.NoCommand() {
			l.Warn("No command block in completion")
		} else {
			l.Warn("Command rejected", "command", rep.Candidate, "reason", rep.Decision.Reason())
		}
		return rep, nil
	}
	rep.Result = res
	if err != nil {
		l.Error("Command failed", "command", rep.Decision.Command(), "err", err)
		return rep, err
	}

	l.Info("Executed", "command", res.Command, "exit", res.ExitCode)
	return rep, nil
}

func (p *Pipeline) acquire(ctx context.Context, l *log.Logger) (string, error) {
	if p.opt.Example != "" {
		if _, err := os.Stat(p.opt.Example); err != nil {
			return "", fault.New(fault.IO, "example", err)
		}
		l.Info("Using example audio", "path", p.opt.Example)
		return p.opt.Example, nil
	}

	if p.source == nil {
		return "", fault.New(fault.IO, "record", errors.New("no audio source configured"))
	}

	if p.cue != nil {
		if err := p.cue(); err != nil {
			l.Warn("Failed to play cue", "err", err)
		}
	}

	path := filepath.Join(p.opt.Recordings, RecordingFile)
	l.Info("Recording", "seconds", p.opt.Duration, "path", path)
	if err := p.source.Record(ctx, p.opt.Duration, path); err != nil {
		if fault.KindOf(err) == fault.Unknown {
			err = fault.New(fault.IO, "record", err)
		}
		return "", err
	}
	return path, nil
}

func (p *Pipeline) saveTranscript(text string) error {
	path := filepath.Join(p.opt.Transcriptions, TranscriptFile)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fault.New(fault.IO, "save transcript", fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}
