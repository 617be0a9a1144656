package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"voxsh/internal/apiclient"
	"voxsh/internal/shell"
)

const (
	MinDuration = 1
	MaxDuration = 60

	BackendOpenAI = "openai"
	BackendLocal  = "local"
)

var LogLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type Config struct {
	Duration       int
	Recordings     string
	Transcriptions string
	Example        string

	EnvFile  string
	Proxy    string
	LogLevel string

	STT          string
	WhisperModel string
	Language     string

	Policy     string
	SingleLine bool
	Shell      string
	Cue        string

	APIKeyEnv string
	BaseURL   string
}

// Parse reads flags from args (without the program name).
func Parse(name string, args []string) (*Config, error) {
	c := &Config{}
	fs := cli.NewFlagSet(name, cli.ContinueOnError)

	fs.IntVarP(&c.Duration, "duration", "d", 5, "Duration of the recording (s)")
	fs.StringVarP(&c.Recordings, "folder", "f", "./recordings", "Folder to store the recording")
	fs.StringVarP(&c.Transcriptions, "transcriptions", "t", "./transcriptions", "Folder to store transcriptions")
	fs.StringVarP(&c.Example, "example", "x", "", "Use a pre-recorded audio file instead of the microphone")

	fs.StringVarP(&c.EnvFile, "env", "e", ".env", "Env file path")
	fs.StringVarP(&c.Proxy, "proxy", "p", "", "Socks Proxy Address")
	fs.StringVarP(&c.LogLevel, "log", "l", "info", "Log level")

	fs.StringVar(&c.STT, "stt", BackendOpenAI, "Transcription backend (openai|local)")
	fs.StringVar(&c.WhisperModel, "whisper-model", "", "whisper.cpp model path for --stt local")
	fs.StringVar(&c.Language, "language", "auto", "Spoken language for --stt local")

	fs.StringVar(&c.Policy, "policy", "", "YAML safety policy file")
	fs.BoolVar(&c.SingleLine, "single-line", false, "Reject multi-line commands")
	fs.StringVar(&c.Shell, "shell", shell.DefaultShell, "Shell used to run commands")
	fs.StringVar(&c.Cue, "cue", "", "Sound file played before recording")

	fs.StringVar(&c.APIKeyEnv, "api-key-env", apiclient.DefaultKeyEnv, "Env variable holding the API key")
	fs.StringVar(&c.BaseURL, "base-url", "", "OpenAI-compatible API base URL")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return c, c.Validate()
}

func (c *Config) Validate() error {
	var errs []error

	if c.Duration < MinDuration || c.Duration > MaxDuration {
		errs = append(errs, fmt.Errorf("duration must be between %d and %d seconds, got %d",
			MinDuration, MaxDuration, c.Duration))
	}
	if c.Recordings == "" {
		errs = append(errs, errors.New("recordings folder must not be empty"))
	}
	if c.Transcriptions == "" {
		errs = append(errs, errors.New("transcriptions folder must not be empty"))
	}
	if _, ok := LogLevels[c.LogLevel]; !ok {
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}

	switch c.STT {
	case BackendOpenAI:
	case BackendLocal:
		if c.WhisperModel == "" {
			errs = append(errs, errors.New("--stt local requires --whisper-model"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown stt backend %q", c.STT))
	}

	if c.Shell == "" {
		errs = append(errs, errors.New("shell must not be empty"))
	}

	return errors.Join(errs...)
}

func (c *Config) Level() log.Level {
	return LogLevels[c.LogLevel]
}

// LoadEnv loads the env file if it exists. Variables already set in the
// environment win.
func (c *Config) LoadEnv() error {
	if c.EnvFile == "" {
		return nil
	}
	if _, err := os.Stat(c.EnvFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(c.EnvFile)
}
