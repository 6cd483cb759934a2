package graph

import (
	"reflect"
	"testing"

	"github.com/shaiso/Easel/internal/domain"
)

// Результат текущего run предпочтительнее сохранённого output.
func TestResolveInputs_PrefersSameRunResult(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "t1", Kind: domain.NodeKindText, Data: map[string]any{"text": "hello", "output": "stale"}},
			{ID: "llm1", Kind: domain.NodeKindLLM},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t1", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
		},
	}

	completed := map[string]any{"t1": "hello"}
	inputs := ResolveInputs(g, "llm1", completed, nil)

	if inputs["user_message"] != "hello" {
		t.Errorf("expected same-run value %q, got %v", "hello", inputs["user_message"])
	}
}

// Если источник не выполнялся в этом run, берётся сохранённый output.
func TestResolveInputs_FallsBackToPersistedOutput(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "t1", Kind: domain.NodeKindText, Data: map[string]any{"output": "persisted"}},
			{ID: "llm1", Kind: domain.NodeKindLLM},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t1", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
		},
	}

	inputs := ResolveInputs(g, "llm1", map[string]any{}, nil)

	if inputs["user_message"] != "persisted" {
		t.Errorf("expected persisted value, got %v", inputs["user_message"])
	}
}

// Источник, упавший в этом run, не даёт значения даже при наличии
// сохранённого output: устаревшие данные хуже отсутствующих.
func TestResolveInputs_FailedSourceGivesNoValue(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "t1", Kind: domain.NodeKindText, Data: map[string]any{"output": "stale"}},
			{ID: "llm1", Kind: domain.NodeKindLLM},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t1", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
		},
	}

	failed := map[string]bool{"t1": true}
	inputs := ResolveInputs(g, "llm1", map[string]any{}, failed)

	if _, ok := inputs["user_message"]; ok {
		t.Errorf("failed source must not provide a value, got %v", inputs["user_message"])
	}
}

// Fan-in собирает значения в порядке обнаружения связей.
func TestResolveInputs_FanInOrder(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "img1", Kind: domain.NodeKindImage},
			{ID: "img2", Kind: domain.NodeKindImage},
			{ID: "llm1", Kind: domain.NodeKindLLM},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "img1", SourceHandle: "output", Target: "llm1", TargetHandle: "images"},
			{ID: "e2", Source: "img2", SourceHandle: "output", Target: "llm1", TargetHandle: "images"},
		},
	}

	completed := map[string]any{
		"img1": "https://cdn/a.png",
		"img2": "https://cdn/b.png",
	}
	inputs := ResolveInputs(g, "llm1", completed, nil)

	want := []string{"https://cdn/a.png", "https://cdn/b.png"}
	if !reflect.DeepEqual(inputs["images"], want) {
		t.Errorf("expected %v, got %v", want, inputs["images"])
	}
}

// Fan-in пропускает пустые строки и нестроковые значения.
func TestResolveInputs_FanInSkipsEmptyAndNonString(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "img1", Kind: domain.NodeKindImage},
			{ID: "img2", Kind: domain.NodeKindImage},
			{ID: "img3", Kind: domain.NodeKindImage},
			{ID: "llm1", Kind: domain.NodeKindLLM},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "img1", SourceHandle: "output", Target: "llm1", TargetHandle: "images"},
			{ID: "e2", Source: "img2", SourceHandle: "output", Target: "llm1", TargetHandle: "images"},
			{ID: "e3", Source: "img3", SourceHandle: "output", Target: "llm1", TargetHandle: "images"},
		},
	}

	completed := map[string]any{
		"img1": "",
		"img2": 42,
		"img3": "https://cdn/c.png",
	}
	inputs := ResolveInputs(g, "llm1", completed, nil)

	want := []string{"https://cdn/c.png"}
	if !reflect.DeepEqual(inputs["images"], want) {
		t.Errorf("expected %v, got %v", want, inputs["images"])
	}
}

// Узел без входящих связей получает пустую карту.
func TestResolveInputs_NoEdges(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "t1", Kind: domain.NodeKindText, Data: map[string]any{"text": "hello"}},
		},
	}

	inputs := ResolveInputs(g, "t1", nil, nil)
	if len(inputs) != 0 {
		t.Errorf("expected empty inputs, got %v", inputs)
	}
}

// Сценарий из редактора: text → llm по порту user_message.
func TestResolveInputs_TextToLLM(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "t1", Kind: domain.NodeKindText, Data: map[string]any{"text": "hello"}},
			{ID: "llm1", Kind: domain.NodeKindLLM, Data: map[string]any{}},
		},
		Edges: []domain.Edge{
			{ID: "e1", Source: "t1", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
		},
	}

	inputs := ResolveInputs(g, "llm1", map[string]any{"t1": "hello"}, nil)

	want := map[string]any{"user_message": "hello"}
	if !reflect.DeepEqual(inputs, want) {
		t.Errorf("expected %v, got %v", want, inputs)
	}
}
