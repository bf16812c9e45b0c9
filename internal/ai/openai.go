package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jersjar7/Fit14-sub001/internal/planner"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// OpenAI generates plans with the Chat Completions API in JSON object mode.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
	now    func() time.Time
}

// NewOpenAI creates a transport that authenticates with apiKey. An empty baseURL uses the public API. Retries are
// disabled because the generation is single-shot.
func NewOpenAI(apiKey, baseURL, model string, logger *slog.Logger) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger.With(slog.String("transport", "openai")),
		now:    time.Now,
	}
}

type completionEnvelope struct {
	Success     bool            `json:"success"`
	WorkoutPlan json.RawMessage `json:"workoutPlan"`
}

// Generate asks the model for the plan and wraps the completion content into the reply envelope.
func (o *OpenAI) Generate(ctx context.Context, req planner.Request) ([]byte, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.Prompt),
		},
		Model: shared.ChatModel(o.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, o.classify(err)
	}

	o.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion finished",
		slog.Duration("duration", time.Since(start)),
		slog.Int64("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int64("completion_tokens", completion.Usage.CompletionTokens))

	if len(completion.Choices) == 0 {
		return nil, &planner.ResponseError{Reason: "completion has no choices", Err: nil}
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return nil, &planner.ResponseError{Reason: "completion is empty", Err: nil}
	}
	if !json.Valid([]byte(content)) {
		return nil, &planner.ResponseError{Reason: "completion is not JSON", Err: nil}
	}

	raw, err := json.Marshal(completionEnvelope{Success: true, WorkoutPlan: json.RawMessage(content)})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return raw, nil
}

func (o *OpenAI) classify(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return classifyTransportError(err)
	}
	header := http.Header{}
	if apiErr.Response != nil {
		header = apiErr.Response.Header
	}
	return classifyStatus(apiErr.StatusCode, header, apiErr.Message, o.now())
}
