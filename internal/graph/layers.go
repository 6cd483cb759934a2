package graph

import (
	"fmt"

	"github.com/shaiso/Easel/internal/domain"
)

// Layers строит слои выполнения для подмножества узлов nodeIDs
// (алгоритм Кана). Учитываются только связи, оба конца которых лежат
// в подмножестве; связи на внешние узлы игнорируются.
//
// Узлы одного слоя не зависят друг от друга и выполняются конкурентно.
// Слой N+1 не начинается, пока не завершён весь слой N. Порядок узлов
// внутри слоя не определён.
//
// Если сумма размеров слоёв меньше числа узлов, в подграфе есть цикл,
// прошедший мимо валидатора — возвращается ErrScheduling, и run
// должен быть прерван, а не выполнен частично.
func Layers(g *domain.GraphSpec, nodeIDs []string) ([][]string, error) {
	subset := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		subset[id] = true
	}

	inDegree := make(map[string]int, len(nodeIDs))
	successors := make(map[string][]string, len(nodeIDs))
	for _, e := range g.Edges {
		if !subset[e.Source] || !subset[e.Target] {
			continue
		}
		inDegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	// Слой 0 — узлы без входящих связей внутри подмножества.
	layer := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if inDegree[id] == 0 {
			layer = append(layer, id)
		}
	}

	layers := make([][]string, 0)
	visited := 0

	for len(layer) > 0 {
		layers = append(layers, layer)
		visited += len(layer)

		next := make([]string, 0)
		for _, id := range layer {
			for _, succ := range successors[id] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		layer = next
	}

	if visited != len(nodeIDs) {
		return nil, fmt.Errorf("%w: layered %d of %d nodes, subgraph contains a cycle",
			ErrScheduling, visited, len(nodeIDs))
	}

	return layers, nil
}
