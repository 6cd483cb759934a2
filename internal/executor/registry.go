package executor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Easel/internal/domain"
)

// Registry — реестр исполнителей по типу узла.
//
// Оркестратор получает исполнителя по Kind узла, не зная его
// устройства; новые типы добавляются регистрацией, без ветвлений
// в движке. Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.NodeKind]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.NodeKind]Executor),
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными типами узлов.
// Вычислительные типы делегируют работу runner'у.
func DefaultRegistry(runner JobRunner) *Registry {
	r := NewRegistry()

	r.Register(NewTextExecutor())
	r.Register(NewImageExecutor())
	r.Register(NewVideoExecutor())
	r.Register(NewLLMExecutor(runner))
	r.Register(NewCropExecutor(runner))
	r.Register(NewFramesExecutor(runner))

	return r
}

// Register регистрирует исполнителя.
// Исполнитель с тем же типом перезаписывается.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Kind()] = e
}

// Get возвращает исполнителя по типу узла.
// Возвращает ErrKindNotFound, если тип не зарегистрирован.
func (r *Registry) Get(kind domain.NodeKind) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.executors[kind]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrKindNotFound, kind)
	}

	return e, nil
}

// Has проверяет, зарегистрирован ли тип узла.
func (r *Registry) Has(kind domain.NodeKind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.executors[kind]
	return exists
}

// Kinds возвращает список всех зарегистрированных типов.
func (r *Registry) Kinds() []domain.NodeKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.NodeKind, 0, len(r.executors))
	for k := range r.executors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Count возвращает количество зарегистрированных исполнителей.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.executors)
}
