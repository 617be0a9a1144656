package nlu

import (
	"context"
	"errors"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"

	"voxsh/internal/apiclient"
	"voxsh/internal/fault"
)

const systemPrompt = `
You are VOX-SH, a Linux shell assistant.
Your ONLY job is to turn the user's spoken request into one shell command.

RULES:
1. Answer with exactly ONE command. No pipelines of several tasks, no scripts.
2. The command MUST be enclosed in a fenced block tagged bash:
   ` + "```bash\n<command>\n```" + `
3. Keep the command on a single line.
4. Never suggest destructive operations (deleting, moving, changing permissions).
5. If the request is unclear, answer with a harmless echo explaining why.
`

// Generator asks a chat model for a command matching a transcript.
type Generator struct {
	client openai.Client
	model  openai.ChatModel
	keyEnv string
}

func NewGenerator(client openai.Client, keyEnv string) *Generator {
	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
		keyEnv: keyEnv,
	}
}

// Generate returns the raw completion text. Its content is untrusted and
// may or may not contain a command block.
func (g *Generator) Generate(ctx context.Context, transcript string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(transcript),
		},
		Model: g.model,
	}, apiclient.KeyFrom(g.keyEnv))
	if err != nil {
		return "", apiclient.Classify("generate", err)
	}

	if len(resp.Choices) == 0 {
		return "", fault.New(fault.Parse, "generate", errors.New("no choices in response"))
	}

	msg := resp.Choices[0].Message
	if !msg.JSON.Content.Valid() {
		return "", fault.New(fault.Parse, "generate", errors.New("no message content"))
	}

	log.Debug("Completion", "data", msg.Content)
	return msg.Content, nil
}
