package compute

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Easel/internal/domain"
)

// fakeProvider — провайдер с фиксированным ответом.
type fakeProvider struct {
	kind   domain.NodeKind
	output map[string]any
	calls  int
}

func (p *fakeProvider) Kind() domain.NodeKind {
	return p.kind
}

func (p *fakeProvider) Compute(_ context.Context, _ map[string]any) (map[string]any, error) {
	p.calls++
	return p.output, nil
}

// --- Service Tests ---

func TestService_RoutesByKind(t *testing.T) {
	llm := &fakeProvider{kind: domain.NodeKindLLM, output: map[string]any{"text": "a"}}
	crop := &fakeProvider{kind: domain.NodeKindCrop, output: map[string]any{"url": "b"}}
	service := NewService(llm, crop)

	output, err := service.Compute(context.Background(), domain.NodeKindCrop, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["url"] != "b" {
		t.Errorf("expected crop output, got %v", output)
	}
	if crop.calls != 1 || llm.calls != 0 {
		t.Errorf("expected crop=1 llm=0 calls, got crop=%d llm=%d", crop.calls, llm.calls)
	}
}

func TestService_UnknownKind(t *testing.T) {
	service := NewService()

	_, err := service.Compute(context.Background(), domain.NodeKindFrames, nil)
	if !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestService_Kinds(t *testing.T) {
	service := NewService(
		&fakeProvider{kind: domain.NodeKindLLM},
		&fakeProvider{kind: domain.NodeKindCrop},
		&fakeProvider{kind: domain.NodeKindFrames},
	)

	kinds := service.Kinds()
	if len(kinds) != 3 {
		t.Fatalf("expected 3 kinds, got %d", len(kinds))
	}
	// Отсортированы
	if kinds[0] != domain.NodeKindCrop || kinds[1] != domain.NodeKindFrames || kinds[2] != domain.NodeKindLLM {
		t.Errorf("expected sorted kinds, got %v", kinds)
	}
	if !service.Has(domain.NodeKindLLM) {
		t.Error("expected llm provider to be registered")
	}
}

// --- LLMProvider Tests ---

// chatCompletionJSON — минимальный валидный ответ chat completion API.
func chatCompletionJSON(content string) string {
	quoted, _ := json.Marshal(content)
	return `{
		"id": "chatcmpl-test",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "test-model",
		"choices": [
			{"index": 0, "message": {"role": "assistant", "content": ` + string(quoted) + `}, "finish_reason": "stop"}
		],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`
}

func TestLLMProvider_Compute(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionJSON("Hello from the model")))
	}))
	defer server.Close()

	provider := NewLLMProvider(LLMConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
	})

	output, err := provider.Compute(context.Background(), map[string]any{
		"user_message":   "hello",
		"system_message": "be brief",
		"temperature":    0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["text"] != "Hello from the model" {
		t.Errorf("expected model reply, got %v", output["text"])
	}

	// Запрос должен содержать system + user сообщения
	if received["model"] != "test-model" {
		t.Errorf("expected model test-model, got %v", received["model"])
	}
	messages, ok := received["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %v", received["messages"])
	}
	system := messages[0].(map[string]any)
	if system["role"] != "system" || system["content"] != "be brief" {
		t.Errorf("unexpected system message: %v", system)
	}
	user := messages[1].(map[string]any)
	if user["role"] != "user" || user["content"] != "hello" {
		t.Errorf("unexpected user message: %v", user)
	}
	if received["temperature"] != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", received["temperature"])
	}
}

func TestLLMProvider_Compute_WithImages(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionJSON("described")))
	}))
	defer server.Close()

	provider := NewLLMProvider(LLMConfig{APIKey: "test-key", BaseURL: server.URL})

	// images как []any — так payload выглядит после JSON round-trip
	_, err := provider.Compute(context.Background(), map[string]any{
		"user_message": "describe these",
		"images":       []any{"https://cdn/a.png", "https://cdn/b.png"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messages := received["messages"].([]any)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	user := messages[0].(map[string]any)
	parts, ok := user["content"].([]any)
	if !ok {
		t.Fatalf("content should be array of parts, got %T", user["content"])
	}
	if len(parts) != 3 {
		t.Fatalf("expected text + 2 images, got %d parts", len(parts))
	}

	text := parts[0].(map[string]any)
	if text["type"] != "text" {
		t.Errorf("first part should be text, got %v", text["type"])
	}
	image := parts[1].(map[string]any)
	if image["type"] != "image_url" {
		t.Errorf("second part should be image_url, got %v", image["type"])
	}
	imageURL := image["image_url"].(map[string]any)
	if imageURL["url"] != "https://cdn/a.png" {
		t.Errorf("unexpected image url: %v", imageURL["url"])
	}
}

func TestLLMProvider_Compute_ModelOverride(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionJSON("ok")))
	}))
	defer server.Close()

	provider := NewLLMProvider(LLMConfig{APIKey: "test-key", BaseURL: server.URL, Model: "default-model"})

	_, err := provider.Compute(context.Background(), map[string]any{
		"user_message": "hi",
		"model":        "node-model",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received["model"] != "node-model" {
		t.Errorf("node model should override default, got %v", received["model"])
	}
}

func TestLLMProvider_MissingUserMessage(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Write([]byte(chatCompletionJSON("unreachable")))
	}))
	defer server.Close()

	provider := NewLLMProvider(LLMConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Compute(context.Background(), map[string]any{})
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
	if requests != 0 {
		t.Errorf("should not hit API without user_message, got %d requests", requests)
	}
}

func TestLLMProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	defer server.Close()

	provider := NewLLMProvider(LLMConfig{APIKey: "test-key", BaseURL: server.URL})

	_, err := provider.Compute(context.Background(), map[string]any{"user_message": "hi"})
	if !errors.Is(err, ErrLLMRequest) {
		t.Fatalf("expected ErrLLMRequest, got %v", err)
	}
}

// --- MediaProvider Tests ---

func TestMediaProvider_Crop(t *testing.T) {
	var received map[string]any
	var receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(map[string]any{"url": "https://cdn/cropped.png"})
	}))
	defer server.Close()

	provider := NewCropProvider(MediaConfig{BaseURL: server.URL})

	output, err := provider.Compute(context.Background(), map[string]any{
		"image":  "https://cdn/src.png",
		"x":      10,
		"y":      20,
		"width":  300,
		"height": 200,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["url"] != "https://cdn/cropped.png" {
		t.Errorf("expected cropped url, got %v", output)
	}
	if receivedPath != "/v1/crop" {
		t.Errorf("expected /v1/crop, got %s", receivedPath)
	}
	if received["url"] != "https://cdn/src.png" {
		t.Errorf("expected source url in body, got %v", received["url"])
	}
	if received["width"] != float64(300) {
		t.Errorf("expected width 300, got %v", received["width"])
	}
}

func TestMediaProvider_Frames(t *testing.T) {
	var received map[string]any
	var receivedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(map[string]any{"url": "https://cdn/frame.png"})
	}))
	defer server.Close()

	provider := NewFramesProvider(MediaConfig{BaseURL: server.URL})

	// count как float64 — так payload выглядит после JSON round-trip
	output, err := provider.Compute(context.Background(), map[string]any{
		"video":     "https://cdn/clip.mp4",
		"count":     float64(3),
		"timestamp": 1.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output["url"] != "https://cdn/frame.png" {
		t.Errorf("expected frame url, got %v", output)
	}
	if receivedPath != "/v1/frames" {
		t.Errorf("expected /v1/frames, got %s", receivedPath)
	}
	if received["count"] != float64(3) {
		t.Errorf("expected count 3, got %v", received["count"])
	}
	if received["timestamp"] != 1.5 {
		t.Errorf("expected timestamp 1.5, got %v", received["timestamp"])
	}
}

func TestMediaProvider_MissingSource(t *testing.T) {
	provider := NewCropProvider(MediaConfig{BaseURL: "http://localhost:1"})

	_, err := provider.Compute(context.Background(), map[string]any{"x": 1})
	if !errors.Is(err, ErrBadPayload) {
		t.Fatalf("expected ErrBadPayload, got %v", err)
	}
}

func TestMediaProvider_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	provider := NewFramesProvider(MediaConfig{BaseURL: server.URL})

	_, err := provider.Compute(context.Background(), map[string]any{"video": "https://cdn/v.mp4"})
	if !errors.Is(err, ErrMediaRequest) {
		t.Fatalf("expected ErrMediaRequest, got %v", err)
	}
	if !strings.Contains(err.Error(), "HTTP 502") {
		t.Errorf("error should mention status code: %v", err)
	}
}

func TestMediaProvider_NoBaseURL(t *testing.T) {
	provider := NewCropProvider(MediaConfig{})

	_, err := provider.Compute(context.Background(), map[string]any{"image": "https://cdn/a.png"})
	if !errors.Is(err, ErrMediaRequest) {
		t.Fatalf("expected ErrMediaRequest, got %v", err)
	}
}
