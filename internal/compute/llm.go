package compute

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/shaiso/Easel/internal/domain"
)

// defaultModel — модель по умолчанию, если не задана ни в data узла,
// ни в EASEL_MODEL.
const defaultModel = "gpt-4o-mini"

// LLMConfig — конфигурация LLM-провайдера.
type LLMConfig struct {
	// APIKey — ключ OpenAI-совместимого API.
	APIKey string

	// BaseURL — адрес API. Пустой — api.openai.com.
	BaseURL string

	// Model — модель по умолчанию. Узел может переопределить
	// её полем "model" в data.
	Model string

	// Logger
	Logger *slog.Logger
}

// LLMConfigFromEnv читает конфигурацию из переменных окружения
// OPENAI_API_KEY, OPENAI_BASE_URL и EASEL_MODEL.
func LLMConfigFromEnv() LLMConfig {
	return LLMConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("EASEL_MODEL"),
	}
}

// LLMProvider выполняет chat completion для llm-узлов.
//
// Payload:
//   - user_message (string): сообщение пользователя (обязательно)
//   - system_message (string): системный промпт
//   - images ([]string): URL изображений, добавляются в user-сообщение
//   - model (string): переопределяет модель по умолчанию
//   - temperature (number): температура сэмплирования
//
// Output:
//   - text (string): ответ модели
type LLMProvider struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewLLMProvider создаёт LLM-провайдера.
func NewLLMProvider(cfg LLMConfig) *LLMProvider {
	var clientOpts []openaiopt.RequestOption
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LLMProvider{
		client: openai.NewClient(clientOpts...),
		model:  model,
		logger: logger,
	}
}

// Kind возвращает тип узла.
func (p *LLMProvider) Kind() domain.NodeKind {
	return domain.NodeKindLLM
}

// Compute выполняет chat completion.
func (p *LLMProvider) Compute(ctx context.Context, payload map[string]any) (map[string]any, error) {
	text := payloadString(payload, "user_message")
	if text == "" {
		return nil, fmt.Errorf("%w: user_message is required", ErrBadPayload)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if system := payloadString(payload, "system_message"); system != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		})
	}
	messages = append(messages, userMessage(text, payloadStrings(payload, "images")))

	model := p.model
	if override := payloadString(payload, "model"); override != "" {
		model = override
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if temp, ok := payloadFloat(payload, "temperature"); ok {
		params.Temperature = openai.Float(temp)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMRequest, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrLLMRequest)
	}

	p.logger.Debug("chat completion done",
		"model", model,
		"prompt_tokens", completion.Usage.PromptTokens,
		"completion_tokens", completion.Usage.CompletionTokens,
	)

	return map[string]any{"text": completion.Choices[0].Message.Content}, nil
}

// userMessage собирает user-сообщение: строка без изображений,
// массив content parts с изображениями.
func userMessage(text string, images []string) openai.ChatCompletionMessageParamUnion {
	if len(images) == 0 {
		return openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(text),
				},
			},
		}
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		{OfText: &openai.ChatCompletionContentPartTextParam{Text: text}},
	}
	for _, url := range images {
		parts = append(parts, openai.ChatCompletionContentPartUnionParam{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: url},
			},
		})
	}

	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfArrayOfContentParts: parts,
			},
		},
	}
}
