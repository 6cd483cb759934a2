package graph

import (
	"errors"
	"testing"

	"github.com/shaiso/Easel/internal/domain"
)

func TestResolveScope_Full(t *testing.T) {
	g := chainGraph()

	ids, err := ResolveScope(g, domain.ScopeFull, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 3 {
		t.Fatalf("expected 3 nodes, got %v", ids)
	}
	for i, want := range []string{"A", "B", "C"} {
		if ids[i] != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ids[i])
		}
	}
}

// SINGLE на C в цепочке A → B → C должен включить A и B,
// хотя назван только C.
func TestResolveScope_SingleIncludesUpstream(t *testing.T) {
	g := chainGraph()

	ids, err := ResolveScope(g, domain.ScopeSingle, []string{"C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 3 {
		t.Fatalf("expected 3 nodes (C plus upstream), got %v", ids)
	}

	included := map[string]bool{}
	for _, id := range ids {
		included[id] = true
	}
	if !included["A"] || !included["B"] || !included["C"] {
		t.Errorf("expected A, B, C in scope, got %v", ids)
	}
}

// SINGLE не тянет узлы, расположенные ниже по графу.
func TestResolveScope_SingleExcludesDownstream(t *testing.T) {
	g := chainGraph()

	ids, err := ResolveScope(g, domain.ScopeSingle, []string{"B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("expected 2 nodes, got %v", ids)
	}
	for _, id := range ids {
		if id == "C" {
			t.Error("C is downstream of B and must not be included")
		}
	}
}

func TestResolveScope_PartialExact(t *testing.T) {
	g := chainGraph()

	ids, err := ResolveScope(g, domain.ScopePartial, []string{"C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 1 || ids[0] != "C" {
		t.Errorf("PARTIAL must not add dependencies, got %v", ids)
	}
}

func TestResolveScope_RequiresNodeIDs(t *testing.T) {
	g := chainGraph()

	_, err := ResolveScope(g, domain.ScopeSingle, nil)
	if !errors.Is(err, ErrNoNodeIDs) {
		t.Errorf("expected ErrNoNodeIDs for SINGLE, got %v", err)
	}

	_, err = ResolveScope(g, domain.ScopePartial, []string{})
	if !errors.Is(err, ErrNoNodeIDs) {
		t.Errorf("expected ErrNoNodeIDs for PARTIAL, got %v", err)
	}
}

func TestResolveScope_UnknownNode(t *testing.T) {
	g := chainGraph()

	_, err := ResolveScope(g, domain.ScopePartial, []string{"ghost"})
	if !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestResolveScope_UnknownScope(t *testing.T) {
	g := chainGraph()

	_, err := ResolveScope(g, domain.RunScope("WEEKLY"), nil)
	if !errors.Is(err, ErrUnknownScope) {
		t.Errorf("expected ErrUnknownScope, got %v", err)
	}
}

// Дубликаты в списке узлов не раздувают результат.
func TestResolveScope_DeduplicatesNodeIDs(t *testing.T) {
	g := chainGraph()

	ids, err := ResolveScope(g, domain.ScopePartial, []string{"B", "B", "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 unique nodes, got %v", ids)
	}
}
