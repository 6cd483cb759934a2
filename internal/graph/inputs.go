package graph

import "github.com/shaiso/Easel/internal/domain"

// ResolveInputs собирает карту входов узла по входящим связям.
//
// Для каждой связи, заканчивающейся на nodeID, значение источника
// берётся в таком порядке:
//  1. результат источника в этом же run (completed) — свежее
//     вычисление всегда предпочтительнее;
//  2. сохранённый output узла-источника (data["output"]) — покрывает
//     случай, когда источник не выполнялся в этом run.
//
// Источник, который выполнялся в этом run и упал (failed), значения
// не даёт: откат к сохранённому output здесь был бы чтением устаревших
// данных. Требуемость входов резолвер не проверяет — это делает
// движок перед запуском узла.
//
// Fan-in порты собирают строковые значения в упорядоченный список
// в порядке обнаружения связей; пустые строки и нестроковые значения
// пропускаются. Обычный порт получает единственное значение
// (валидатор гарантирует не более одной связи на порт).
func ResolveInputs(g *domain.GraphSpec, nodeID string, completed map[string]any, failed map[string]bool) map[string]any {
	node, ok := g.NodeByID(nodeID)
	if !ok {
		return map[string]any{}
	}
	kind, _ := domain.KindOf(node.Kind)

	inputs := make(map[string]any)
	for _, e := range g.Edges {
		if e.Target != nodeID {
			continue
		}

		value, ok := sourceValue(g, e.Source, completed, failed)
		if !ok {
			continue
		}

		if handle, found := kind.Input(e.TargetHandle); found && handle.FanIn {
			s, isString := value.(string)
			if !isString || s == "" {
				continue
			}
			list, _ := inputs[e.TargetHandle].([]string)
			inputs[e.TargetHandle] = append(list, s)
			continue
		}

		inputs[e.TargetHandle] = value
	}

	return inputs
}

// sourceValue возвращает значение узла-источника.
func sourceValue(g *domain.GraphSpec, sourceID string, completed map[string]any, failed map[string]bool) (any, bool) {
	if v, ok := completed[sourceID]; ok {
		return v, true
	}
	if failed[sourceID] {
		return nil, false
	}

	src, ok := g.NodeByID(sourceID)
	if !ok {
		return nil, false
	}
	if out := src.Output(); out != nil {
		return out, true
	}
	return nil, false
}
