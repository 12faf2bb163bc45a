// Package aisvc implements the tutor completion backend on Google Gemini.
package aisvc

import (
	"context"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/jhoelito123/PyStart/core"
	"github.com/jhoelito123/PyStart/core/tutor"
)

const defaultModel = "gemini-1.5-flash"

var errEmptyResponse = errors.New("gemini returned no content")

type GeminiCompleter struct {
	client *genai.Client
	model  string
}

var (
	_ tutor.Completer = (*GeminiCompleter)(nil)
	_ io.Closer       = (*GeminiCompleter)(nil)
)

// NewGeminiCompleter returns nil when no API key is configured; the tutor then reports
// that it is unavailable.
func NewGeminiCompleter(ctx context.Context, conf *core.Config) (*GeminiCompleter, error) {
	if conf.AI.GeminiApiKey == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(conf.AI.GeminiApiKey))
	if err != nil {
		return nil, errors.Wrap(err, "creating gemini client")
	}
	model := conf.AI.Model
	if model == "" {
		model = defaultModel
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Provider() string { return "gemini" }

func (g *GeminiCompleter) Close() error {
	return g.client.Close()
}

// Complete sends the conversation to the model. System messages become the system instruction,
// the last message is the prompt and the rest is the chat history.
func (g *GeminiCompleter) Complete(ctx context.Context, messages []tutor.Message, maxTokens int) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.SetTemperature(0.7)

	var (
		system []genai.Part
		turns  []*genai.Content
	)
	for _, msg := range messages {
		switch msg.Role {
		case tutor.RoleSystem:
			system = append(system, genai.Text(msg.Content))
		case tutor.RoleAssistant:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	if len(turns) == 0 {
		return "", errors.New("no message to send")
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	chat := model.StartChat()
	chat.History = turns[:len(turns)-1]
	resp, err := chat.SendMessage(ctx, turns[len(turns)-1].Parts...)
	if err != nil {
		return "", errors.Wrap(err, "sending message to gemini")
	}
	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errEmptyResponse
	}
	return sb.String(), nil
}
