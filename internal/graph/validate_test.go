package graph

import (
	"errors"
	"testing"

	"github.com/shaiso/Easel/internal/domain"
)

// canvasGraph строит граф с узлами всех типов для тестов валидатора.
func canvasGraph(edges ...domain.Edge) *domain.GraphSpec {
	return &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "t1", Kind: domain.NodeKindText, Data: map[string]any{"text": "hello"}},
			{ID: "t2", Kind: domain.NodeKindText, Data: map[string]any{"text": "world"}},
			{ID: "img1", Kind: domain.NodeKindImage, Data: map[string]any{"url": "https://cdn/img1.png"}},
			{ID: "img2", Kind: domain.NodeKindImage, Data: map[string]any{"url": "https://cdn/img2.png"}},
			{ID: "vid1", Kind: domain.NodeKindVideo, Data: map[string]any{"url": "https://cdn/vid1.mp4"}},
			{ID: "llm1", Kind: domain.NodeKindLLM, Data: map[string]any{}},
			{ID: "llm2", Kind: domain.NodeKindLLM, Data: map[string]any{}},
			{ID: "crop1", Kind: domain.NodeKindCrop, Data: map[string]any{}},
			{ID: "crop2", Kind: domain.NodeKindCrop, Data: map[string]any{}},
			{ID: "fr1", Kind: domain.NodeKindFrames, Data: map[string]any{}},
		},
		Edges: edges,
	}
}

func TestValidateConnection_Valid(t *testing.T) {
	g := canvasGraph()

	if err := ValidateConnection(g, "t1", "output", "llm1", "user_message"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateConnection_SelfLoop(t *testing.T) {
	g := canvasGraph()

	err := ValidateConnection(g, "llm1", "output", "llm1", "user_message")
	if !errors.Is(err, ErrSelfLoop) {
		t.Errorf("expected ErrSelfLoop, got %v", err)
	}
}

func TestValidateConnection_UnknownNode(t *testing.T) {
	g := canvasGraph()

	err := ValidateConnection(g, "ghost", "output", "llm1", "user_message")
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode for source, got %v", err)
	}

	err = ValidateConnection(g, "t1", "output", "ghost", "user_message")
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode for target, got %v", err)
	}
}

func TestValidateConnection_UnknownHandle(t *testing.T) {
	g := canvasGraph()

	err := ValidateConnection(g, "t1", "result", "llm1", "user_message")
	if !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle for source handle, got %v", err)
	}

	err = ValidateConnection(g, "t1", "output", "llm1", "prompt")
	if !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle for target handle, got %v", err)
	}
}

// Несовместимые типы отклоняются независимо от типов узлов:
// image → text нельзя соединить ни в какой комбинации.
func TestValidateConnection_TypeMismatch(t *testing.T) {
	g := canvasGraph()

	err := ValidateConnection(g, "img1", "output", "llm1", "user_message")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}

	err = ValidateConnection(g, "crop1", "output", "llm1", "system_message")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for crop output, got %v", err)
	}
}

// Порт "video" узла frames типизирован any, но декларативно ограничен
// источниками типа video. Ограничение срабатывает после проверки типов.
func TestValidateConnection_SourceKindRestriction(t *testing.T) {
	g := canvasGraph()

	err := ValidateConnection(g, "t1", "output", "fr1", "video")
	if !errors.Is(err, ErrSourceKind) {
		t.Errorf("expected ErrSourceKind for text source, got %v", err)
	}

	err = ValidateConnection(g, "img1", "output", "fr1", "video")
	if !errors.Is(err, ErrSourceKind) {
		t.Errorf("expected ErrSourceKind for image source, got %v", err)
	}

	if err := ValidateConnection(g, "vid1", "output", "fr1", "video"); err != nil {
		t.Errorf("video source should be allowed, got %v", err)
	}
}

func TestValidateConnection_HandleOccupied(t *testing.T) {
	g := canvasGraph(domain.Edge{
		ID: "e1", Source: "t1", SourceHandle: "output",
		Target: "llm1", TargetHandle: "user_message",
	})

	err := ValidateConnection(g, "t2", "output", "llm1", "user_message")
	if !errors.Is(err, ErrHandleOccupied) {
		t.Errorf("expected ErrHandleOccupied, got %v", err)
	}

	// Свободный порт того же узла остаётся доступным.
	if err := ValidateConnection(g, "t2", "output", "llm1", "system_message"); err != nil {
		t.Errorf("free handle should accept connection, got %v", err)
	}
}

// Fan-in порт принимает вторую связь вместо отказа.
func TestValidateConnection_FanInAllowsMultiple(t *testing.T) {
	g := canvasGraph(domain.Edge{
		ID: "e1", Source: "img1", SourceHandle: "output",
		Target: "llm1", TargetHandle: "images",
	})

	if err := ValidateConnection(g, "img2", "output", "llm1", "images"); err != nil {
		t.Errorf("fan-in handle should accept second connection, got %v", err)
	}
}

func TestValidateConnection_DirectCycle(t *testing.T) {
	g := canvasGraph(domain.Edge{
		ID: "e1", Source: "llm1", SourceHandle: "output",
		Target: "llm2", TargetHandle: "user_message",
	})

	err := ValidateConnection(g, "llm2", "output", "llm1", "user_message")
	if !errors.Is(err, ErrCyclicConnection) {
		t.Errorf("expected ErrCyclicConnection, got %v", err)
	}
}

// Цикл через цепочку узлов: crop1 → crop2, замыкание crop2 → crop1.
func TestValidateConnection_TransitiveCycle(t *testing.T) {
	g := canvasGraph(
		domain.Edge{ID: "e1", Source: "img1", SourceHandle: "output", Target: "crop1", TargetHandle: "image"},
		domain.Edge{ID: "e2", Source: "crop1", SourceHandle: "output", Target: "crop2", TargetHandle: "image"},
	)

	err := ValidateConnection(g, "crop2", "output", "crop1", "image")
	// Порт crop1.image уже занят, эта проверка идёт раньше циклической.
	if !errors.Is(err, ErrHandleOccupied) {
		t.Errorf("expected ErrHandleOccupied (checked before cycle), got %v", err)
	}

	// Без занятого порта остаётся само замыкание цикла.
	g2 := canvasGraph(
		domain.Edge{ID: "e1", Source: "crop1", SourceHandle: "output", Target: "crop2", TargetHandle: "image"},
	)
	err = ValidateConnection(g2, "crop2", "output", "crop1", "image")
	if !errors.Is(err, ErrCyclicConnection) {
		t.Errorf("expected ErrCyclicConnection, got %v", err)
	}
}

func TestValidateGraph_Valid(t *testing.T) {
	g := canvasGraph(
		domain.Edge{ID: "e1", Source: "t1", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
		domain.Edge{ID: "e2", Source: "img1", SourceHandle: "output", Target: "llm1", TargetHandle: "images"},
		domain.Edge{ID: "e3", Source: "img2", SourceHandle: "output", Target: "llm1", TargetHandle: "images"},
	)

	if err := ValidateGraph(g); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateGraph_DuplicateNodeID(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{
			{ID: "a", Kind: domain.NodeKindText},
			{ID: "a", Kind: domain.NodeKindText},
		},
	}

	err := ValidateGraph(g)
	if !errors.Is(err, ErrDuplicateNodeID) {
		t.Errorf("expected ErrDuplicateNodeID, got %v", err)
	}
}

func TestValidateGraph_EmptyNodeID(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{{ID: "", Kind: domain.NodeKindText}},
	}

	err := ValidateGraph(g)
	if !errors.Is(err, ErrEmptyNodeID) {
		t.Errorf("expected ErrEmptyNodeID, got %v", err)
	}
}

func TestValidateGraph_UnknownKind(t *testing.T) {
	g := &domain.GraphSpec{
		Nodes: []domain.Node{{ID: "a", Kind: "resize"}},
	}

	err := ValidateGraph(g)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

// Связи проверяются инкрементально: вторая связь на занятый порт
// отклоняет весь граф.
func TestValidateGraph_RejectsDuplicateInput(t *testing.T) {
	g := canvasGraph(
		domain.Edge{ID: "e1", Source: "t1", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
		domain.Edge{ID: "e2", Source: "t2", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
	)

	err := ValidateGraph(g)
	if !errors.Is(err, ErrHandleOccupied) {
		t.Errorf("expected ErrHandleOccupied, got %v", err)
	}
}

func TestValidateGraph_RejectsCycle(t *testing.T) {
	g := canvasGraph(
		domain.Edge{ID: "e1", Source: "llm1", SourceHandle: "output", Target: "llm2", TargetHandle: "user_message"},
		domain.Edge{ID: "e2", Source: "llm2", SourceHandle: "output", Target: "llm1", TargetHandle: "user_message"},
	)

	err := ValidateGraph(g)
	if !errors.Is(err, ErrCyclicConnection) {
		t.Errorf("expected ErrCyclicConnection, got %v", err)
	}
}
