package executor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
)

// JobRunner — клиент асинхронных джоб с синхронным fallback.
// Реализуется package jobs; интерфейс здесь, чтобы исполнители
// можно было тестировать без очереди и базы.
type JobRunner interface {
	// RunJob выполняет вычисление: submit в бэкенд джоб, опрос
	// до терминального статуса, при недоступности или таймауте —
	// синхронный fallback. Возвращает output джобы.
	RunJob(ctx context.Context, runID uuid.UUID, nodeID string, kind domain.NodeKind, payload map[string]any) (map[string]any, error)
}

// LLMExecutor — inference языковой модели.
type LLMExecutor struct {
	runner JobRunner
}

// NewLLMExecutor создаёт исполнителя LLM-узлов.
func NewLLMExecutor(runner JobRunner) *LLMExecutor {
	return &LLMExecutor{runner: runner}
}

// Kind возвращает тип узла.
func (e *LLMExecutor) Kind() domain.NodeKind {
	return domain.NodeKindLLM
}

// Execute собирает payload из входов и defaults узла и делегирует
// работу клиенту джоб. Из output джобы извлекается поле "text".
func (e *LLMExecutor) Execute(ctx context.Context, req *Request) (any, error) {
	userMessage := req.InputString("user_message")
	if userMessage == "" {
		return nil, fmt.Errorf("%w: handle %q has no value", ErrMissingInput, "user_message")
	}

	payload := map[string]any{
		"user_message": userMessage,
	}

	// Системное сообщение: вход имеет приоритет над data узла.
	if system := req.InputString("system_message"); system != "" {
		payload["system_message"] = system
	} else if system := GetDataString(req.Node.Data, "system"); system != "" {
		payload["system_message"] = system
	}

	if images := req.InputStrings("images"); len(images) > 0 {
		payload["images"] = images
	}
	if model := GetDataString(req.Node.Data, "model"); model != "" {
		payload["model"] = model
	}
	if temp, ok := GetDataFloat(req.Node.Data, "temperature"); ok {
		payload["temperature"] = temp
	}

	output, err := e.runner.RunJob(ctx, req.RunID, req.Node.ID, domain.NodeKindLLM, payload)
	if err != nil {
		return nil, err
	}

	text, ok := output["text"].(string)
	if !ok {
		return nil, fmt.Errorf("llm job returned no text")
	}
	return text, nil
}

// CropExecutor — кадрирование изображения.
type CropExecutor struct {
	runner JobRunner
}

// NewCropExecutor создаёт исполнителя узлов кадрирования.
func NewCropExecutor(runner JobRunner) *CropExecutor {
	return &CropExecutor{runner: runner}
}

// Kind возвращает тип узла.
func (e *CropExecutor) Kind() domain.NodeKind {
	return domain.NodeKindCrop
}

// Execute отправляет изображение и рамку кадрирования в джобу.
// Из output извлекается поле "url".
func (e *CropExecutor) Execute(ctx context.Context, req *Request) (any, error) {
	image := req.InputString("image")
	if image == "" {
		return nil, fmt.Errorf("%w: handle %q has no value", ErrMissingInput, "image")
	}

	payload := map[string]any{
		"image":  image,
		"x":      GetDataInt(req.Node.Data, "x"),
		"y":      GetDataInt(req.Node.Data, "y"),
		"width":  GetDataInt(req.Node.Data, "width"),
		"height": GetDataInt(req.Node.Data, "height"),
	}

	output, err := e.runner.RunJob(ctx, req.RunID, req.Node.ID, domain.NodeKindCrop, payload)
	if err != nil {
		return nil, err
	}

	url, ok := output["url"].(string)
	if !ok {
		return nil, fmt.Errorf("crop job returned no url")
	}
	return url, nil
}

// FramesExecutor — извлечение кадров из видео.
type FramesExecutor struct {
	runner JobRunner
}

// NewFramesExecutor создаёт исполнителя узлов извлечения кадров.
func NewFramesExecutor(runner JobRunner) *FramesExecutor {
	return &FramesExecutor{runner: runner}
}

// Kind возвращает тип узла.
func (e *FramesExecutor) Kind() domain.NodeKind {
	return domain.NodeKindFrames
}

// Execute отправляет видео и момент извлечения в джобу.
// Из output извлекается поле "url" (URL извлечённого кадра).
func (e *FramesExecutor) Execute(ctx context.Context, req *Request) (any, error) {
	video := req.InputString("video")
	if video == "" {
		return nil, fmt.Errorf("%w: handle %q has no value", ErrMissingInput, "video")
	}

	payload := map[string]any{
		"video": video,
		"count": frameCount(req.Node.Data),
	}
	if ts, ok := GetDataFloat(req.Node.Data, "timestamp"); ok {
		payload["timestamp"] = ts
	}

	output, err := e.runner.RunJob(ctx, req.RunID, req.Node.ID, domain.NodeKindFrames, payload)
	if err != nil {
		return nil, err
	}

	url, ok := output["url"].(string)
	if !ok {
		return nil, fmt.Errorf("frames job returned no url")
	}
	return url, nil
}

// frameCount возвращает число кадров из data узла, минимум 1.
func frameCount(data map[string]any) int {
	if count := GetDataInt(data, "count"); count > 0 {
		return count
	}
	return 1
}
