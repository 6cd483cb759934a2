package graph

import (
	"fmt"

	"github.com/shaiso/Easel/internal/domain"
)

// ValidateConnection проверяет, можно ли добавить связь
// source.sourceHandle → target.targetHandle к графу g.
//
// Правила проверяются по порядку, первая нарушенная становится
// причиной отказа:
//  1. связь не петля (source != target);
//  2. оба узла существуют и их типы известны каталогу;
//  3. оба порта объявлены в контракте типа;
//  4. типы портов совместимы (приёмник "any" принимает любой тип,
//     иначе типы должны совпадать точно);
//  5. тип узла-источника проходит ограничение порта (SourceKinds);
//  6. порт приёмника свободен либо объявлен fan-in;
//  7. связь не замыкает цикл: BFS вперёд от приёмника,
//     если источник достижим — цикл.
//
// Возвращает nil, если связь допустима, иначе *ValidationError.
// Функция чистая: граф не меняется.
func ValidateConnection(g *domain.GraphSpec, source, sourceHandle, target, targetHandle string) error {
	if source == target {
		return NewValidationError(source, target, "node cannot connect to itself", ErrSelfLoop)
	}

	srcNode, ok := g.NodeByID(source)
	if !ok {
		return NewValidationError(source, target,
			fmt.Sprintf("source node %q does not exist", source), ErrUnknownNode)
	}
	dstNode, ok := g.NodeByID(target)
	if !ok {
		return NewValidationError(source, target,
			fmt.Sprintf("target node %q does not exist", target), ErrUnknownNode)
	}

	srcKind, ok := domain.KindOf(srcNode.Kind)
	if !ok {
		return NewValidationError(source, target,
			fmt.Sprintf("unknown node kind %q", srcNode.Kind), ErrUnknownKind)
	}
	dstKind, ok := domain.KindOf(dstNode.Kind)
	if !ok {
		return NewValidationError(source, target,
			fmt.Sprintf("unknown node kind %q", dstNode.Kind), ErrUnknownKind)
	}

	srcHandle, ok := srcKind.Output(sourceHandle)
	if !ok {
		return NewValidationError(source, target,
			fmt.Sprintf("node %q has no output handle %q", source, sourceHandle), ErrUnknownHandle)
	}
	dstHandle, ok := dstKind.Input(targetHandle)
	if !ok {
		return NewValidationError(source, target,
			fmt.Sprintf("node %q has no input handle %q", target, targetHandle), ErrUnknownHandle)
	}

	if !dstHandle.Type.Accepts(srcHandle.Type) {
		return NewValidationError(source, target,
			fmt.Sprintf("cannot connect %s output to %s input", srcHandle.Type, dstHandle.Type), ErrTypeMismatch)
	}

	if !dstHandle.AcceptsKind(srcNode.Kind) {
		return NewValidationError(source, target,
			fmt.Sprintf("handle %q does not accept %s nodes", targetHandle, srcNode.Kind), ErrSourceKind)
	}

	if !dstHandle.FanIn {
		for _, e := range g.Edges {
			if e.Target == target && e.TargetHandle == targetHandle {
				return NewValidationError(source, target,
					fmt.Sprintf("handle %q already has a connection", targetHandle), ErrHandleOccupied)
			}
		}
	}

	if createsCycle(g.Edges, source, target) {
		return NewValidationError(source, target,
			"connection would create a cycle", ErrCyclicConnection)
	}

	return nil
}

// createsCycle проверяет, замкнёт ли связь source → target цикл.
// BFS вперёд от target по существующим связям: если source достижим,
// новая связь создаст цикл.
func createsCycle(edges []domain.Edge, source, target string) bool {
	next := make(map[string][]string, len(edges))
	for _, e := range edges {
		next[e.Source] = append(next[e.Source], e.Target)
	}

	visited := map[string]bool{target: true}
	queue := []string{target}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur == source {
			return true
		}
		for _, n := range next[cur] {
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}

	return false
}

// ValidateGraph проверяет весь граф перед сохранением.
//
// Узлы: непустые уникальные ID, известные типы. Связи проверяются так,
// как если бы редактор добавлял их по одной: каждая должна пройти
// ValidateConnection относительно предыдущих. Граф, собранный из
// допустимых связей, ацикличен по построению.
func ValidateGraph(g *domain.GraphSpec) error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return NewValidationError("", "", "node has empty ID", ErrEmptyNodeID)
		}
		if seen[n.ID] {
			return NewValidationError("", "",
				fmt.Sprintf("duplicate node ID %q", n.ID), ErrDuplicateNodeID)
		}
		seen[n.ID] = true

		if _, ok := domain.KindOf(n.Kind); !ok {
			return NewValidationError("", "",
				fmt.Sprintf("node %q has unknown kind %q", n.ID, n.Kind), ErrUnknownKind)
		}
	}

	partial := domain.GraphSpec{
		Nodes: g.Nodes,
		Edges: make([]domain.Edge, 0, len(g.Edges)),
	}
	for _, e := range g.Edges {
		if err := ValidateConnection(&partial, e.Source, e.SourceHandle, e.Target, e.TargetHandle); err != nil {
			return err
		}
		partial.Edges = append(partial.Edges, e)
	}

	return nil
}
