package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Easel/internal/domain"
	"github.com/shaiso/Easel/internal/executor"
	"github.com/shaiso/Easel/internal/graph"
	"github.com/shaiso/Easel/internal/repo"
	"github.com/shaiso/Easel/internal/telemetry"
)

// ExecuteRun выполняет run целиком: claim, слои, финальный статус.
//
// Возвращает ErrRunNotPending, если run уже забрал другой экземпляр
// движка или второй путь доставки. Ошибки узлов сюда не всплывают —
// они запечатаны в NodeResults и финальном статусе run.
func (e *Engine) ExecuteRun(ctx context.Context, runID uuid.UUID) error {
	run, err := e.runs.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}

	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	claimed, err := e.runs.Claim(ctx, runID)
	if err != nil {
		return fmt.Errorf("claim run: %w", err)
	}
	if !claimed {
		return ErrRunNotPending
	}
	run.MarkRunning()

	wf, err := e.workflows.GetByID(ctx, run.WorkflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return e.failRun(ctx, run, fmt.Sprintf("workflow not found: %s", run.WorkflowID))
		}
		return fmt.Errorf("get workflow: %w", err)
	}

	nodeIDs, err := graph.ResolveScope(&wf.Graph, run.Scope, run.NodeIDs)
	if err != nil {
		return e.failRun(ctx, run, fmt.Sprintf("resolve scope: %v", err))
	}

	layers, err := graph.Layers(&wf.Graph, nodeIDs)
	if err != nil {
		return e.failRun(ctx, run, fmt.Sprintf("build layers: %v", err))
	}

	state := newRunState(run, wf, layers)

	e.logger.Info("run started",
		"run_id", run.ID,
		"workflow_id", wf.ID,
		"scope", run.Scope,
		"nodes", len(nodeIDs),
		"layers", len(layers),
	)

	for _, layer := range state.layers {
		if ctx.Err() != nil {
			e.sealInterrupted(run)
			return ctx.Err()
		}
		if err := e.executeLayer(ctx, state, layer); err != nil {
			return e.failRun(ctx, run, fmt.Sprintf("storage failure: %v", err))
		}
	}

	run.Finalize(state.succeeded, state.failedCount)
	if err := e.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}

	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()

	e.logger.Info("run finished",
		"run_id", run.ID,
		"status", run.Status,
		"succeeded", state.succeeded,
		"failed", state.failedCount,
		"duration", run.Duration(),
	)

	return nil
}

// nodeExec — узел слоя на пути через исполнение: входы, запись
// результата, исход.
type nodeExec struct {
	node    *domain.Node
	inputs  map[string]any
	result  *domain.NodeResult
	output  any
	err     error
	elapsed time.Duration
}

// executeLayer выполняет один слой: резолвит входы, запускает узлы
// конкурентно, применяет исходы через рекордер.
//
// Возвращает только ошибки хранилища — они фатальны для run.
// Ошибки узлов остаются данными в состоянии run.
func (e *Engine) executeLayer(ctx context.Context, state *runState, layer []string) error {
	// Входы резолвятся до старта слоя: карты completed/failed
	// в этот момент никто не пишет.
	execs := make([]*nodeExec, 0, len(layer))
	for _, id := range layer {
		node := state.nodesByID[id]
		ne := &nodeExec{
			node:   node,
			inputs: graph.ResolveInputs(&state.wf.Graph, id, state.completed, state.failed),
		}
		if handle, source, bad := state.poisoned(node); bad {
			ne.err = fmt.Errorf("%w: required input %q comes from failed node %q",
				executor.ErrMissingInput, handle, source)
		}
		execs = append(execs, ne)
	}

	// Рекордер — единственный писатель состояния run во время слоя.
	// Закрытие канала и ожидание recorded — барьер перед следующим слоем.
	outcomes := make(chan *nodeExec)
	recorded := make(chan error, 1)
	go func() {
		var first error
		for ne := range outcomes {
			if err := e.recordOutcome(ctx, state, ne); err != nil && first == nil {
				first = err
			}
		}
		recorded <- first
	}()

	var g errgroup.Group
	g.SetLimit(e.maxParallel)
	for _, ne := range execs {
		g.Go(func() error {
			if err := e.executeNode(ctx, state.run.ID, ne); err != nil {
				return err
			}
			outcomes <- ne
			return nil
		})
	}

	err := g.Wait()
	close(outcomes)
	if recErr := <-recorded; err == nil {
		err = recErr
	}
	return err
}

// executeNode создаёт запись RUNNING и выполняет узел.
// Ошибка возвращается только при отказе хранилища; исход самого узла
// (output или ошибка) остаётся в ne.
func (e *Engine) executeNode(ctx context.Context, runID uuid.UUID, ne *nodeExec) error {
	node := ne.node

	ne.result = domain.NewNodeResult(runID, node.ID, node.Kind, ne.inputs)
	if err := e.results.Create(ctx, ne.result); err != nil {
		return fmt.Errorf("create result for node %s: %w", node.ID, err)
	}

	// Отравленный вход: узел падает сразу, исполнитель не вызывается.
	if ne.err != nil {
		return nil
	}

	exec, err := e.registry.Get(node.Kind)
	if err != nil {
		ne.err = err
		return nil
	}

	started := time.Now()
	ne.output, ne.err = exec.Execute(ctx, executor.NewRequest(runID, *node, ne.inputs))
	ne.elapsed = time.Since(started)
	return nil
}

// recordOutcome применяет исход узла: карты состояния, data узла
// в графе, финализация NodeResult, метрики. Вызывается только
// горутиной-рекордером.
func (e *Engine) recordOutcome(ctx context.Context, state *runState, ne *nodeExec) error {
	node := ne.node

	if ne.err != nil {
		state.markFailed(node.ID)
		node.SetResult(domain.NodeStateError, nil, ne.err.Error())
		ne.result.MarkFailed(ne.err.Error())
		e.logger.Warn("node failed",
			"run_id", state.run.ID,
			"node_id", node.ID,
			"kind", node.Kind,
			"error", ne.err,
		)
	} else {
		state.markSucceeded(node.ID, ne.output)
		node.SetResult(domain.NodeStateSuccess, ne.output, "")
		ne.result.MarkSucceeded(ne.output)
		e.logger.Debug("node succeeded",
			"run_id", state.run.ID,
			"node_id", node.ID,
			"kind", node.Kind,
			"duration", ne.elapsed,
		)
	}

	telemetry.NodeExecutions.WithLabelValues(string(node.Kind), string(ne.result.Status)).Inc()
	telemetry.NodeDuration.WithLabelValues(string(node.Kind)).Observe(ne.elapsed.Seconds())

	if err := e.results.Update(ctx, ne.result); err != nil {
		return fmt.Errorf("update result for node %s: %w", node.ID, err)
	}
	if err := e.workflows.UpdateNodeState(ctx, state.wf.ID, *node); err != nil {
		return fmt.Errorf("patch node %s state: %w", node.ID, err)
	}
	return nil
}

// failRun запечатывает run с фатальной ошибкой (это ошибка самого run,
// не его узлов).
func (e *Engine) failRun(ctx context.Context, run *domain.Run, errMsg string) error {
	run.MarkFailed(errMsg)

	if err := e.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to failed: %w", err)
	}

	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()

	e.logger.Warn("run failed",
		"run_id", run.ID,
		"error", errMsg,
	)

	return fmt.Errorf("run failed: %s", errMsg)
}

// sealInterrupted помечает прерванный run как FAILED. Контекст движка
// уже отменён, поэтому запись идёт с отдельным коротким контекстом,
// best effort.
func (e *Engine) sealInterrupted(run *domain.Run) {
	run.MarkFailed("run interrupted: engine stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.runs.Update(ctx, run); err != nil {
		e.logger.Warn("failed to seal interrupted run", "run_id", run.ID, "error", err)
		return
	}

	telemetry.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	e.logger.Warn("run interrupted", "run_id", run.ID)
}
