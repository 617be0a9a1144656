package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"
	log "log/slog"

	"voxsh/internal/apiclient"
	"voxsh/internal/audio"
	"voxsh/internal/command"
	"voxsh/internal/config"
	"voxsh/internal/fault"
	"voxsh/internal/nlu"
	"voxsh/internal/notify"
	"voxsh/internal/pipeline"
	"voxsh/internal/proxy"
	"voxsh/internal/shell"
	"voxsh/internal/stt"
	"voxsh/internal/stt/local"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Parse(os.Args[0], os.Args[1:])
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.Level(),
	})))

	log.Info("Booting up", "duration", cfg.Duration)

	if err := cfg.LoadEnv(); err != nil {
		log.Warn("Failed to load env file", "path", cfg.EnvFile, "err", err)
	}

	policy := command.DefaultPolicy()
	if cfg.Policy != "" {
		policy, err = command.LoadPolicy(cfg.Policy)
		if err != nil {
			log.Error("Failed to load policy", "path", cfg.Policy, "err", err)
			return 1
		}
	}
	if cfg.SingleLine {
		policy.SingleLine = true
	}
	log.Debug("Loaded policy", "denylist", policy.Denylist.Entries(), "single_line", policy.SingleLine)

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy, "err", err)
		return 1
	}

	client := apiclient.New(apiclient.Options{
		BaseURL:    cfg.BaseURL,
		HTTPClient: httpClient,
	})

	var transcriber pipeline.Transcriber
	switch cfg.STT {
	case config.BackendLocal:
		w, err := local.New(cfg.WhisperModel, local.Options{Language: cfg.Language})
		if err != nil {
			log.Error("Failed to init whisper", "err", err)
			return fault.IO.ExitCode()
		}
		defer w.Close()
		transcriber = w
	default:
		transcriber = stt.NewRemote(client, cfg.APIKeyEnv)
	}

	var source pipeline.AudioSource
	if cfg.Example == "" {
		rec := audio.NewRecorder()
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			return fault.IO.ExitCode()
		}
		defer rec.Close()
		source = rec
	}

	p := pipeline.New(pipeline.Options{
		Duration:       cfg.Duration,
		Recordings:     cfg.Recordings,
		Transcriptions: cfg.Transcriptions,
		Example:        cfg.Example,
		Policy:         policy,
	}, source, transcriber, nlu.NewGenerator(client, cfg.APIKeyEnv), shell.NewExecutor(cfg.Shell))

	if cfg.Cue != "" {
		p.WithCue(func() error { return notify.Cue(cfg.Cue) })
	}

	if err := p.Prepare(); err != nil {
		log.Error("Failed to create folders", "err", err)
		return fault.IO.ExitCode()
	}

	log.Info("Folders ready", "recordings", cfg.Recordings, "transcriptions", cfg.Transcriptions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rep, err := p.Run(ctx)
	if rep != nil && rep.Result != nil {
		fmt.Fprint(os.Stdout, rep.Result.Stdout)
		fmt.Fprint(os.Stderr, rep.Result.Stderr)
	}
	if err != nil {
		kind := fault.KindOf(err)
		log.Error("Run failed", "kind", kind, "err", err)
		return kind.ExitCode()
	}

	return 0
}
