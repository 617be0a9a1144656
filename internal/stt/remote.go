package stt

import (
	"context"
	"errors"
	log "log/slog"
	"os"

	openai "github.com/openai/openai-go/v3"

	"voxsh/internal/apiclient"
	"voxsh/internal/fault"
)

// Remote posts audio files to an OpenAI-compatible transcription endpoint.
type Remote struct {
	client openai.Client
	model  openai.AudioModel
	keyEnv string
}

func NewRemote(client openai.Client, keyEnv string) *Remote {
	return &Remote{
		client: client,
		model:  openai.AudioModelWhisper1,
		keyEnv: keyEnv,
	}
}

func (r *Remote) Transcribe(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fault.New(fault.IO, "transcribe", err)
	}
	defer f.Close()

	res, err := r.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: r.model,
	}, apiclient.KeyFrom(r.keyEnv))
	if err != nil {
		return "", apiclient.Classify("transcribe", err)
	}

	if !res.JSON.Text.Valid() {
		return "", fault.New(fault.Parse, "transcribe", errors.New("response has no text field"))
	}

	log.Debug("Transcription response", "raw", res.RawJSON())
	return res.Text, nil
}
