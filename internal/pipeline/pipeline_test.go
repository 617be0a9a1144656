package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voxsh/internal/command"
	"voxsh/internal/fault"
	"voxsh/internal/shell"
)

type fakeSource struct {
	calls   int
	seconds int
	err     error
}

func (f *fakeSource) Record(_ context.Context, seconds int, path string) error {
	f.calls++
	f.seconds = seconds
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(path, []byte("RIFF"), 0o644)
}

type fakeSTT struct {
	text string
	err  error
	path string
}

func (f *fakeSTT) Transcribe(_ context.Context, path string) (string, error) {
	f.path = path
	return f.text, f.err
}

type fakeGen struct {
	completion string
	err        error
	calls      int
	transcript string
}

func (f *fakeGen) Generate(_ context.Context, transcript string) (string, error) {
	f.calls++
	f.transcript = transcript
	return f.completion, f.err
}

// fakeExec honours the executor contract without spawning a shell.
type fakeExec struct {
	decisions []command.Decision
	result    *shell.Result
	err       error
}

func (f *fakeExec) Execute(_ context.Context, d command.Decision) (*shell.Result, error) {
	f.decisions = append(f.decisions, d)
	if !d.IsAllowed() {
		return nil, fault.Newf(fault.Safety, "execute", "rejected: %s", d.Reason())
	}
	if f.result != nil || f.err != nil {
		return f.result, f.err
	}
	return &shell.Result{Command: d.Command(), Stdout: "ok\n"}, nil
}

func (f *fakeExec) ran() []string {
	var out []string
	for _, d := range f.decisions {
		if d.IsAllowed() {
			out = append(out, d.Command())
		}
	}
	return out
}

type fixture struct {
	src  *fakeSource
	stt  *fakeSTT
	gen  *fakeGen
	exec *fakeExec
	opt  Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{
		src:  &fakeSource{},
		stt:  &fakeSTT{text: "list my files"},
		gen:  &fakeGen{completion: "Sure! ```bash\nls -la\n``` enjoy"},
		exec: &fakeExec{},
		opt: Options{
			Duration:       5,
			Recordings:     filepath.Join(dir, "recordings"),
			Transcriptions: filepath.Join(dir, "transcriptions"),
			Policy:         command.DefaultPolicy(),
		},
	}
}

func (f *fixture) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	p := New(f.opt, f.src, f.stt, f.gen, f.exec)
	if err := p.Prepare(); err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	return p
}

func TestRun_AllowedCommand(t *testing.T) {
	f := newFixture(t)

	rep, err := f.pipeline(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if rep.RunID == "" {
		t.Error("expected run id")
	}
	if f.src.calls != 1 || f.src.seconds != 5 {
		t.Errorf("source calls = %d seconds = %d, want 1 and 5", f.src.calls, f.src.seconds)
	}
	wantAudio := filepath.Join(f.opt.Recordings, RecordingFile)
	if f.stt.path != wantAudio {
		t.Errorf("transcribed %q, want %q", f.stt.path, wantAudio)
	}
	if f.gen.transcript != "list my files" {
		t.Errorf("generator got %q, want transcript", f.gen.transcript)
	}
	if rep.Candidate != "ls -la" {
		t.Errorf("Candidate = %q, want %q", rep.Candidate, "ls -la")
	}
	if rep.Decision != command.Allowed("ls -la") {
		t.Errorf("Decision = %v, want Allowed(ls -la)", rep.Decision)
	}
	if ran := f.exec.ran(); len(ran) != 1 || ran[0] != "ls -la" {
		t.Errorf("executed %v, want [ls -la]", ran)
	}
	if rep.Result == nil || rep.Result.Stdout != "ok\n" {
		t.Errorf("Result = %+v, want executor output", rep.Result)
	}

	saved, err := os.ReadFile(filepath.Join(f.opt.Transcriptions, TranscriptFile))
	if err != nil {
		t.Fatalf("transcript not saved: %v", err)
	}
	if string(saved) != "list my files" {
		t.Errorf("saved transcript = %q", saved)
	}
}

func TestRun_RejectedCommand(t *testing.T) {
	f := newFixture(t)
	f.gen.completion = "```bash\nrm -rf /\n```"

	rep, err := f.pipeline(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if rep.Decision.IsAllowed() {
		t.Fatalf("Decision = %v, want rejected", rep.Decision)
	}
	if rep.Decision.NoCommand() {
		t.Error("denylist rejection reported as missing command")
	}
	if rep.Decision.Reason() != "unsafe: contains rm -rf" {
		t.Errorf("Reason() = %q", rep.Decision.Reason())
	}
	if len(f.exec.ran()) != 0 {
		t.Errorf("executed %v, want nothing", f.exec.ran())
	}
	if rep.Result != nil {
		t.Errorf("Result = %+v, want nil", rep.Result)
	}
}

func TestRun_NoCommandBlock(t *testing.T) {
	f := newFixture(t)
	f.gen.completion = "just do it yourself"

	rep, err := f.pipeline(t).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !rep.Decision.NoCommand() {
		t.Errorf("Decision = %v, want Rejected(empty)", rep.Decision)
	}
	if len(f.exec.ran()) != 0 {
		t.Errorf("executed %v, want nothing", f.exec.ran())
	}
}

func TestRun_ExampleSkipsCapture(t *testing.T) {
	f := newFixture(t)
	example := filepath.Join(t.TempDir(), "example.mp3")
	if err := os.WriteFile(example, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.opt.Example = example
	cued := false

	rep, err := f.pipeline(t).WithCue(func() error { cued = true; return nil }).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if f.src.calls != 0 {
		t.Errorf("source called %d times, want 0", f.src.calls)
	}
	if cued {
		t.Error("cue played without live capture")
	}
	if rep.Audio != example || f.stt.path != example {
		t.Errorf("audio = %q, transcribed %q, want %q", rep.Audio, f.stt.path, example)
	}
}

func TestRun_NilSourceWithExample(t *testing.T) {
	f := newFixture(t)
	example := filepath.Join(t.TempDir(), "example.wav")
	if err := os.WriteFile(example, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.opt.Example = example

	p := New(f.opt, nil, f.stt, f.gen, f.exec)
	if err := p.Prepare(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Errorf("Run() error: %v", err)
	}
}

func TestRun_CueBeforeCapture(t *testing.T) {
	f := newFixture(t)
	var order []string
	cue := func() error {
		order = append(order, "cue")
		return errors.New("no speaker")
	}

	p := f.pipeline(t).WithCue(cue)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(order) != 1 {
		t.Errorf("cue calls = %d, want 1", len(order))
	}
	if f.src.calls != 1 {
		t.Error("cue failure aborted capture")
	}
}

func TestRun_Failures(t *testing.T) {
	netErr := fault.New(fault.Network, "transcribe", errors.New("connection refused"))
	parseErr := fault.New(fault.Parse, "generate", errors.New("no choices in response"))

	tests := []struct {
		name      string
		setup     func(f *fixture)
		want      fault.Kind
		generated bool
	}{
		{
			name:  "capture failure",
			setup: func(f *fixture) { f.src.err = errors.New("device busy") },
			want:  fault.IO,
		},
		{
			name:  "missing example",
			setup: func(f *fixture) { f.opt.Example = "/nonexistent/clip.wav" },
			want:  fault.IO,
		},
		{
			name:  "transcription network error",
			setup: func(f *fixture) { f.stt.err = netErr },
			want:  fault.Network,
		},
		{
			name:      "generation parse error",
			setup:     func(f *fixture) { f.gen.err = parseErr },
			want:      fault.Parse,
			generated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.pipeline(t).Run(context.Background())
			if fault.KindOf(err) != tt.want {
				t.Errorf("KindOf() = %v, want %v (%v)", fault.KindOf(err), tt.want, err)
			}
			if (f.gen.calls > 0) != tt.generated {
				t.Errorf("generator calls = %d, generated = %v", f.gen.calls, tt.generated)
			}
			if len(f.exec.decisions) != 0 {
				t.Errorf("executor reached after failure: %v", f.exec.decisions)
			}
		})
	}
}

func TestRun_ExecutionError(t *testing.T) {
	f := newFixture(t)
	f.exec.result = &shell.Result{Command: "ls -la", Stderr: "ls: cannot access", ExitCode: 2}
	f.exec.err = fault.New(fault.Execution, "execute", errors.New("exit status 2"))

	rep, err := f.pipeline(t).Run(context.Background())
	if fault.KindOf(err) != fault.Execution {
		t.Fatalf("KindOf() = %v, want %v", fault.KindOf(err), fault.Execution)
	}
	if rep.Result == nil || rep.Result.Stderr != "ls: cannot access" {
		t.Errorf("Result = %+v, want stderr kept", rep.Result)
	}
}

func TestRun_TranscriptOverwritten(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	f.stt.text = "a much longer first transcript"
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.stt.text = "second"
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	saved, err := os.ReadFile(filepath.Join(f.opt.Transcriptions, TranscriptFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(saved) != "second" {
		t.Errorf("saved transcript = %q, want %q", saved, "second")
	}
}

func TestRun_SubstitutedPolicy(t *testing.T) {
	f := newFixture(t)
	f.opt.Policy = command.Policy{Denylist: command.NewDenylist("ls")}

	rep, err := f.pipeline(t).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rep.Decision.Reason() != "unsafe: contains ls" {
		t.Errorf("Reason() = %q, want custom policy hit", rep.Decision.Reason())
	}
}

func TestPrepare_Failure(t *testing.T) {
	f := newFixture(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	f.opt.Recordings = filepath.Join(blocker, "recordings")

	err := New(f.opt, f.src, f.stt, f.gen, f.exec).Prepare()
	if fault.KindOf(err) != fault.IO {
		t.Errorf("KindOf() = %v, want %v", fault.KindOf(err), fault.IO)
	}
}

func TestRun_WithRealExecutorRejects(t *testing.T) {
	f := newFixture(t)
	f.gen.completion = "```bash\necho rm\n```"

	p := New(f.opt, f.src, f.stt, f.gen, shell.NewExecutor("nonexistent-shell-xyz123"))
	if err := p.Prepare(); err != nil {
		t.Fatal(err)
	}

	// the shell does not exist, so any execution attempt would fail
	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if rep.Decision.Reason() != "unsafe: contains rm" {
		t.Errorf("Reason() = %q", rep.Decision.Reason())
	}
}
