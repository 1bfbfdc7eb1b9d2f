package agents

import (
	"context"
	"errors"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/campflow/campflow/pkg/api"
)

// Settings configures the OpenAI-compatible agent port.
type Settings struct {
	Model   string
	APIKey  string
	BaseURL string

	// RoleModels optionally overrides the model per role, so that (for
	// example) the reviewer can run on a cheaper model than the writer.
	RoleModels map[api.Role]string
}

// OpenAIPort implements api.AgentPort using the official openai-go SDK
// (chat completions). All four roles share one client; each invocation
// carries the role's system instructions.
type OpenAIPort struct {
	settings Settings
	opts     []option.RequestOption
}

// NewOpenAIPort validates the settings and builds the port.
func NewOpenAIPort(settings Settings) (*OpenAIPort, error) {
	if settings.APIKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key")
	}
	if settings.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(settings.APIKey)}
	if settings.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.BaseURL))
	}
	return &OpenAIPort{settings: settings, opts: opts}, nil
}

func (p *OpenAIPort) model(role api.Role) string {
	if m, ok := p.settings.RoleModels[role]; ok && m != "" {
		return m
	}
	return p.settings.Model
}

// Invoke sends the prompt as a chat completion and returns the first choice.
func (p *OpenAIPort) Invoke(ctx context.Context, role api.Role, prompt api.Prompt) (string, error) {
	client := openai.NewClient(p.opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model(role)),
		Messages: msgs,
	})
	if err != nil {
		return "", api.NewAgentError(role, err)
	}
	if len(resp.Choices) == 0 {
		return "", api.NewAgentError(role, errors.New("empty choices in completion"))
	}
	return resp.Choices[0].Message.Content, nil
}
