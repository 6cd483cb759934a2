package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shaiso/Easel/internal/domain"
)

const defaultMediaTimeout = 30 * time.Second

// MediaConfig — конфигурация провайдеров media-API.
type MediaConfig struct {
	// BaseURL — адрес media-API (обязателен).
	BaseURL string

	// Timeout — таймаут запроса (default: 30s).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// MediaConfigFromEnv читает конфигурацию из переменной окружения
// MEDIA_API_URL.
func MediaConfigFromEnv() MediaConfig {
	return MediaConfig{
		BaseURL: os.Getenv("MEDIA_API_URL"),
	}
}

// MediaProvider выполняет операции над медиа через внешний media-API.
//
// Один тип провайдера обслуживает оба media-узла, различаясь
// endpoint'ом и формой тела запроса:
//
//	crop:   POST {base}/v1/crop   {"url", "x", "y", "width", "height"}
//	frames: POST {base}/v1/frames {"url", "count", "timestamp"?}
//
// Ответ media-API — JSON-объект, отдаётся как output без изменений.
// Ожидаемое поле — "url" результирующего медиа.
type MediaProvider struct {
	kind    domain.NodeKind
	path    string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewCropProvider создаёт провайдера кадрирования.
func NewCropProvider(cfg MediaConfig) *MediaProvider {
	return newMediaProvider(domain.NodeKindCrop, "/v1/crop", cfg)
}

// NewFramesProvider создаёт провайдера извлечения кадров.
func NewFramesProvider(cfg MediaConfig) *MediaProvider {
	return newMediaProvider(domain.NodeKindFrames, "/v1/frames", cfg)
}

func newMediaProvider(kind domain.NodeKind, path string, cfg MediaConfig) *MediaProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMediaTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MediaProvider{
		kind:    kind,
		path:    path,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Kind возвращает тип узла.
func (p *MediaProvider) Kind() domain.NodeKind {
	return p.kind
}

// Compute выполняет запрос к media-API.
func (p *MediaProvider) Compute(ctx context.Context, payload map[string]any) (map[string]any, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("%w: MEDIA_API_URL is not set", ErrMediaRequest)
	}

	body, err := p.requestBody(payload)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrMediaRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrMediaRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrMediaRequest, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrMediaRequest, resp.StatusCode, truncate(string(respBody), 200))
	}

	var output map[string]any
	if err := json.Unmarshal(respBody, &output); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrMediaRequest, err)
	}

	return output, nil
}

// requestBody собирает тело запроса из payload для данного типа узла.
func (p *MediaProvider) requestBody(payload map[string]any) (map[string]any, error) {
	switch p.kind {
	case domain.NodeKindCrop:
		image := payloadString(payload, "image")
		if image == "" {
			return nil, fmt.Errorf("%w: image is required", ErrBadPayload)
		}
		return map[string]any{
			"url":    image,
			"x":      payloadInt(payload, "x"),
			"y":      payloadInt(payload, "y"),
			"width":  payloadInt(payload, "width"),
			"height": payloadInt(payload, "height"),
		}, nil

	case domain.NodeKindFrames:
		video := payloadString(payload, "video")
		if video == "" {
			return nil, fmt.Errorf("%w: video is required", ErrBadPayload)
		}
		body := map[string]any{
			"url":   video,
			"count": payloadInt(payload, "count"),
		}
		if ts, ok := payloadFloat(payload, "timestamp"); ok {
			body["timestamp"] = ts
		}
		return body, nil
	}

	return nil, fmt.Errorf("%w: %s is not a media kind", ErrBadPayload, p.kind)
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
