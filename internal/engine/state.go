package engine

import (
	"github.com/shaiso/Easel/internal/domain"
)

// runState — состояние выполнения одного run в памяти.
//
// Создаётся после claim и живёт до финализации. Мьютекса нет намеренно:
// между слоями состояние читает и пишет только горутина run, во время
// слоя карты и data узлов пишет только рекордер, а исполнители получают
// свои входы до старта слоя. Барьер между слоями — закрытие канала
// исходов и ожидание рекордера.
type runState struct {
	// run — выполняемый run.
	run *domain.Run

	// wf — workflow с графом. Узлы графа мутируются только через
	// nodesByID рекордером (запись status/output/error в data).
	wf *domain.Workflow

	// layers — слои выполнения в порядке запуска.
	layers [][]string

	// nodesByID — указатели на узлы графа wf.
	nodesByID map[string]*domain.Node

	// completed — значения узлов, успешно выполненных в этом run.
	// Источник для резолвера входов следующих слоёв.
	completed map[string]any

	// failed — узлы, упавшие в этом run. Резолвер не подставляет
	// вместо них сохранённый output, а обязательные входы от них
	// отравлены.
	failed map[string]bool

	// succeeded и failedCount — счётчики для финального статуса run.
	succeeded   int
	failedCount int
}

// newRunState строит состояние run поверх загруженного workflow.
func newRunState(run *domain.Run, wf *domain.Workflow, layers [][]string) *runState {
	nodes := make(map[string]*domain.Node, len(wf.Graph.Nodes))
	for i := range wf.Graph.Nodes {
		nodes[wf.Graph.Nodes[i].ID] = &wf.Graph.Nodes[i]
	}

	return &runState{
		run:       run,
		wf:        wf,
		layers:    layers,
		nodesByID: nodes,
		completed: make(map[string]any),
		failed:    make(map[string]bool),
	}
}

// markSucceeded фиксирует успешный узел и его значение.
func (s *runState) markSucceeded(nodeID string, output any) {
	s.completed[nodeID] = output
	s.succeeded++
}

// markFailed фиксирует упавший узел.
func (s *runState) markFailed(nodeID string) {
	s.failed[nodeID] = true
	s.failedCount++
}

// poisoned проверяет, отравлен ли обязательный вход узла упавшим
// в этом run источником. Такой узел падает сразу, без вызова
// исполнителя: откат к сохранённому output источника был бы чтением
// устаревших данных, а ждать нечего — источник уже финален.
//
// Необязательные входы (включая fan-in) не отравляют узел: упавший
// источник просто не даёт значения.
func (s *runState) poisoned(node *domain.Node) (handle, source string, ok bool) {
	kind, found := domain.KindOf(node.Kind)
	if !found {
		return "", "", false
	}

	for _, e := range s.wf.Graph.Edges {
		if e.Target != node.ID || !s.failed[e.Source] {
			continue
		}
		h, found := kind.Input(e.TargetHandle)
		if !found || !h.Required {
			continue
		}
		return e.TargetHandle, e.Source, true
	}
	return "", "", false
}
