package graph

import (
	"fmt"

	"github.com/shaiso/Easel/internal/domain"
)

// ResolveScope возвращает подмножество узлов графа для выполнения.
//
//   - FULL    — все узлы графа;
//   - SINGLE  — названные узлы плюс все их транзитивные зависимости
//     вверх по графу (BFS назад по связям), чтобы входы были
//     вычислены свежими;
//   - PARTIAL — строго названные узлы, зависимости не добавляются.
//
// Результат без дубликатов, в порядке хранения узлов в графе
// (стабильный порядок нужен для воспроизводимых слоёв).
func ResolveScope(g *domain.GraphSpec, scope domain.RunScope, nodeIDs []string) ([]string, error) {
	switch scope {
	case domain.ScopeFull:
		return g.NodeIDs(), nil

	case domain.ScopePartial:
		selected, err := namedNodes(g, scope, nodeIDs)
		if err != nil {
			return nil, err
		}
		return inGraphOrder(g, selected), nil

	case domain.ScopeSingle:
		selected, err := namedNodes(g, scope, nodeIDs)
		if err != nil {
			return nil, err
		}

		// BFS назад: от названных узлов к их источникам.
		prev := make(map[string][]string, len(g.Edges))
		for _, e := range g.Edges {
			prev[e.Target] = append(prev[e.Target], e.Source)
		}

		queue := make([]string, 0, len(selected))
		for id := range selected {
			queue = append(queue, id)
		}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			for _, src := range prev[cur] {
				if !selected[src] {
					selected[src] = true
					queue = append(queue, src)
				}
			}
		}
		return inGraphOrder(g, selected), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}
}

// namedNodes проверяет явно названные узлы и возвращает их множеством.
func namedNodes(g *domain.GraphSpec, scope domain.RunScope, nodeIDs []string) (map[string]bool, error) {
	if len(nodeIDs) == 0 {
		return nil, fmt.Errorf("%w: scope %s", ErrNoNodeIDs, scope)
	}

	selected := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if _, ok := g.NodeByID(id); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}
		selected[id] = true
	}
	return selected, nil
}

// inGraphOrder возвращает узлы множества в порядке хранения в графе.
func inGraphOrder(g *domain.GraphSpec, selected map[string]bool) []string {
	out := make([]string, 0, len(selected))
	for _, n := range g.Nodes {
		if selected[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}
