package engine

import (
	"testing"

	"github.com/shaiso/Easel/internal/domain"
)

// --- runState Tests ---

func TestNewRunState(t *testing.T) {
	wf := testWorkflow(domain.GraphSpec{
		Nodes: []domain.Node{textNode("t1", "a"), llmNode("llm1")},
	})
	run := pendingRun(wf.ID, domain.ScopeFull)

	state := newRunState(run, wf, [][]string{{"t1"}, {"llm1"}})

	if state.completed == nil || state.failed == nil {
		t.Error("state maps should be initialized")
	}
	if len(state.nodesByID) != 2 {
		t.Fatalf("expected 2 indexed nodes, got %d", len(state.nodesByID))
	}

	// Индекс указывает внутрь графа: мутация через него видна в wf.
	state.nodesByID["t1"].SetResult(domain.NodeStateSuccess, "a", "")
	if wf.Graph.Nodes[0].Data["output"] != "a" {
		t.Error("nodesByID must point into the workflow graph")
	}
}

func TestRunState_Counters(t *testing.T) {
	wf := testWorkflow(domain.GraphSpec{
		Nodes: []domain.Node{textNode("t1", "a"), textNode("t2", "b")},
	})
	state := newRunState(pendingRun(wf.ID, domain.ScopeFull), wf, nil)

	state.markSucceeded("t1", "a")
	state.markFailed("t2")

	if state.succeeded != 1 || state.failedCount != 1 {
		t.Errorf("expected 1/1, got %d/%d", state.succeeded, state.failedCount)
	}
	if state.completed["t1"] != "a" {
		t.Error("completed value should be stored")
	}
	if !state.failed["t2"] {
		t.Error("failure should be stored")
	}
}

func TestRunState_Poisoned_RequiredInput(t *testing.T) {
	wf := testWorkflow(domain.GraphSpec{
		Nodes: []domain.Node{imageNode("img1", "https://cdn/a.png"), cropNode("crop1")},
		Edges: []domain.Edge{edge("img1", "output", "crop1", "image")},
	})
	state := newRunState(pendingRun(wf.ID, domain.ScopeFull), wf, nil)
	state.markFailed("img1")

	handle, source, ok := state.poisoned(state.nodesByID["crop1"])
	if !ok {
		t.Fatal("crop1 should be poisoned")
	}
	if handle != "image" || source != "img1" {
		t.Errorf("unexpected poison details: handle=%s source=%s", handle, source)
	}
}

func TestRunState_Poisoned_OptionalInput(t *testing.T) {
	// Fan-in порт images не обязателен: упавший источник просто
	// не даёт значения, узел выполняется.
	wf := testWorkflow(domain.GraphSpec{
		Nodes: []domain.Node{
			textNode("t1", "a"),
			imageNode("img1", "https://cdn/a.png"),
			llmNode("llm1"),
		},
		Edges: []domain.Edge{
			edge("t1", "output", "llm1", "user_message"),
			edge("img1", "output", "llm1", "images"),
		},
	})
	state := newRunState(pendingRun(wf.ID, domain.ScopeFull), wf, nil)
	state.markFailed("img1")

	if _, _, ok := state.poisoned(state.nodesByID["llm1"]); ok {
		t.Error("optional input must not poison the node")
	}
}

func TestRunState_Poisoned_HealthySource(t *testing.T) {
	wf := testWorkflow(domain.GraphSpec{
		Nodes: []domain.Node{imageNode("img1", "https://cdn/a.png"), cropNode("crop1")},
		Edges: []domain.Edge{edge("img1", "output", "crop1", "image")},
	})
	state := newRunState(pendingRun(wf.ID, domain.ScopeFull), wf, nil)
	state.markSucceeded("img1", "https://cdn/a.png")

	if _, _, ok := state.poisoned(state.nodesByID["crop1"]); ok {
		t.Error("healthy source must not poison the node")
	}
}
