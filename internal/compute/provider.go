package compute

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Easel/internal/domain"
)

// Provider — синхронный провайдер вычисления одного типа узла.
type Provider interface {
	// Kind возвращает тип узла, который обслуживает провайдер.
	Kind() domain.NodeKind

	// Compute выполняет вычисление. Форма payload и output
	// зависит от типа узла.
	Compute(ctx context.Context, payload map[string]any) (map[string]any, error)
}

// Service — реестр провайдеров по типу узла.
//
// Реализует jobs.Fallback, чтобы движок мог выполнить вычисление
// синхронно при недоступности бэкенда джоб. Потокобезопасен.
type Service struct {
	mu        sync.RWMutex
	providers map[domain.NodeKind]Provider
}

// NewService создаёт реестр с данными провайдерами.
func NewService(providers ...Provider) *Service {
	s := &Service{
		providers: make(map[domain.NodeKind]Provider),
	}
	for _, p := range providers {
		s.Register(p)
	}
	return s
}

// Register регистрирует провайдера. Существующий провайдер
// того же типа перезаписывается.
func (s *Service) Register(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.Kind()] = p
}

// Compute выполняет вычисление через провайдера данного типа.
func (s *Service) Compute(ctx context.Context, kind domain.NodeKind, payload map[string]any) (map[string]any, error) {
	s.mu.RLock()
	p, exists := s.providers[kind]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, kind)
	}

	return p.Compute(ctx, payload)
}

// Has проверяет, зарегистрирован ли провайдер.
func (s *Service) Has(kind domain.NodeKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.providers[kind]
	return exists
}

// Kinds возвращает отсортированный список обслуживаемых типов узлов.
func (s *Service) Kinds() []domain.NodeKind {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kinds := make([]domain.NodeKind, 0, len(s.providers))
	for kind := range s.providers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// payloadString извлекает строку из payload.
func payloadString(payload map[string]any, key string) string {
	if val, ok := payload[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

// payloadStrings извлекает список строк. []any после JSON round-trip
// принимается наравне с []string.
func payloadStrings(payload map[string]any, key string) []string {
	switch val := payload[key].(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// payloadInt извлекает целое. float64 после JSON round-trip
// принимается наравне с int.
func payloadInt(payload map[string]any, key string) int {
	switch val := payload[key].(type) {
	case int:
		return val
	case float64:
		return int(val)
	}
	return 0
}

// payloadFloat извлекает число с плавающей точкой.
func payloadFloat(payload map[string]any, key string) (float64, bool) {
	switch val := payload[key].(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	}
	return 0, false
}
