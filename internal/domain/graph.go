package domain

// GraphSpec — граф узлов и связей, как его сохраняет редактор холста.
//
// Формат сериализации совпадает с форматом редактора, поэтому поля
// узлов и связей используют camelCase. Движок получает граф по значению
// и не меняет его структуру: единственная разрешённая мутация —
// запись output/status/error в data узла через SetResult.
type GraphSpec struct {
	// Nodes — узлы графа.
	Nodes []Node `json:"nodes"`

	// Edges — связи между портами узлов.
	Edges []Edge `json:"edges"`
}

// NodeByID возвращает узел по идентификатору.
func (g *GraphSpec) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodeIDs возвращает идентификаторы всех узлов в порядке хранения.
func (g *GraphSpec) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// Node — один узел графа.
type Node struct {
	// ID — уникальный в рамках графа идентификатор узла.
	ID string `json:"id"`

	// Kind — тип узла (см. NodeKind).
	Kind NodeKind `json:"kind"`

	// Data — конфигурация узла и результаты последнего выполнения.
	// Содержимое зависит от типа: text хранит "text", image/video — "url",
	// llm — "model"/"system"/"temperature", crop — "x"/"y"/"width"/"height",
	// frames — "timestamp"/"count". После каждого выполнения движок
	// дописывает сюда "output", "status" и "error".
	Data map[string]any `json:"data"`
}

// Output возвращает последний сохранённый результат узла (data["output"]).
func (n *Node) Output() any {
	if n.Data == nil {
		return nil
	}
	return n.Data["output"]
}

// SetResult записывает результат выполнения в data узла.
// Это единственная мутация узла, которую делает движок.
func (n *Node) SetResult(state NodeState, output any, errMsg string) {
	if n.Data == nil {
		n.Data = make(map[string]any)
	}
	n.Data["status"] = string(state)
	if output != nil {
		n.Data["output"] = output
	}
	if errMsg != "" {
		n.Data["error"] = errMsg
	} else {
		delete(n.Data, "error")
	}
}

// Edge — связь между выходным портом одного узла и входным портом другого.
type Edge struct {
	// ID — уникальный идентификатор связи.
	ID string `json:"id"`

	// Source — ID узла-источника.
	Source string `json:"source"`

	// SourceHandle — ID выходного порта источника.
	SourceHandle string `json:"sourceHandle"`

	// Target — ID узла-приёмника.
	Target string `json:"target"`

	// TargetHandle — ID входного порта приёмника.
	TargetHandle string `json:"targetHandle"`
}
