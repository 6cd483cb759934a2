package executor

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/shaiso/Easel/internal/domain"
)

// Ошибки исполнителей.
var (
	// ErrKindNotFound — тип узла не найден в реестре.
	ErrKindNotFound = errors.New("node kind not found")

	// ErrMissingInput — обязательный вход узла не имеет значения:
	// источник не выполнялся, упал, либо data узла не заполнена
	// (незавершённая загрузка). Узел падает сразу, без retry.
	ErrMissingInput = errors.New("missing input")
)

// Executor — интерфейс исполнителя типа узла.
//
// Каждый тип узла (text, image, video, llm, crop, frames) реализует
// этот интерфейс и регистрируется в Registry.
type Executor interface {
	// Kind возвращает тип узла.
	Kind() domain.NodeKind

	// Execute выполняет узел и возвращает его значение.
	// Исполнитель должен проверять ctx.Done() на блокирующих операциях.
	Execute(ctx context.Context, req *Request) (any, error)
}

// Request — входные данные для выполнения узла.
type Request struct {
	// RunID — run, в рамках которого выполняется узел.
	RunID uuid.UUID

	// Node — узел графа. Передаётся по значению: исполнитель
	// не меняет граф.
	Node domain.Node

	// Inputs — входы узла, собранные резолвером по входящим связям.
	Inputs map[string]any
}

// NewRequest создаёт новый Request.
func NewRequest(runID uuid.UUID, node domain.Node, inputs map[string]any) *Request {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	return &Request{
		RunID:  runID,
		Node:   node,
		Inputs: inputs,
	}
}

// InputString извлекает строковый вход.
func (r *Request) InputString(handle string) string {
	if v, ok := r.Inputs[handle]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// InputStrings извлекает список строк (fan-in вход).
func (r *Request) InputStrings(handle string) []string {
	if v, ok := r.Inputs[handle]; ok {
		if list, ok := v.([]string); ok {
			return list
		}
	}
	return nil
}

// GetDataString извлекает строковое значение из data узла.
func GetDataString(data map[string]any, key string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetDataInt извлекает числовое значение из data узла.
func GetDataInt(data map[string]any, key string) int {
	if v, ok := data[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

// GetDataFloat извлекает число с плавающей точкой из data узла.
// Второе значение — false, если ключ отсутствует или имеет другой тип.
func GetDataFloat(data map[string]any, key string) (float64, bool) {
	if v, ok := data[key]; ok {
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	}
	return 0, false
}
