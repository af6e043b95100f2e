package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Roles for prompt turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prompt message after role mapping.
type Turn struct {
	Role    string
	Content string
}

// Request describes a single chat completion.
type Request struct {
	System      string
	Turns       []Turn
	Temperature float64
	MaxTokens   int64
	JSONObject  bool
}

// Completer issues one chat completion and returns the raw response
// text. An empty string with nil error means the provider returned a
// structurally empty response.
type Completer interface {
	Complete(ctx context.Context, creds Credentials, req Request) (string, error)
}

// KeyProber checks whether an API key can reach the provider at all,
// returning the model ids the key may use.
type KeyProber interface {
	ListModels(ctx context.Context, apiKey string) ([]string, error)
}

// OpenAIClient is an OpenAI-compatible chat client. It assembles a
// client per request from the resolved credentials.
type OpenAIClient struct{}

// Complete runs one chat completion against the OpenAI API.
func (OpenAIClient) Complete(ctx context.Context, creds Credentials, req Request) (string, error) {
	client := openai.NewClient(option.WithAPIKey(creds.APIKey))

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.Turns {
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    creds.Model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}
	if req.JSONObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels probes the API key against the models endpoint and
// returns the ids of the first page of models the key can see.
func (OpenAIClient) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("model listing failed: %w", err)
	}

	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// StatusCode extracts the provider HTTP status from err; 0 when the
// failure carried no status (network error, cancelled context).
func StatusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
