package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/conveyor/internal/domain"
)

func TestBuildGraph_SimpleChain(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec"},
		{ID: "B", Type: "delay", DependsOn: []string{"A"}},
		{ID: "C", Type: "extract", DependsOn: []string{"B"}},
	}

	g, err := BuildGraph(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Size())
	}

	// Проверяем корневые узлы
	if len(g.Roots) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(g.Roots))
	}
	if g.Roots[0].ID != "A" {
		t.Errorf("expected root node A, got %s", g.Roots[0].ID)
	}

	// Единственный терминал — C
	if len(g.Terminals) != 1 || g.Terminals[0].ID != "C" {
		t.Errorf("expected terminal C, got %v", g.Terminals)
	}

	// Проверяем зависимости
	nodeB := g.Node("B")
	if len(nodeB.DependsOn) != 1 || nodeB.DependsOn[0].ID != "A" {
		t.Error("node B should depend on A")
	}

	// Топологический порядок цепочки однозначен
	got := make([]string, 0, len(g.Order))
	for _, n := range g.Order {
		got = append(got, n.ID)
	}
	if strings.Join(got, ",") != "A,B,C" {
		t.Errorf("expected order A,B,C, got %s", strings.Join(got, ","))
	}
}

func TestBuildGraph_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	steps := []domain.StepDef{
		{ID: "A", Type: "exec"},
		{ID: "B", Type: "exec", DependsOn: []string{"A"}},
		{ID: "C", Type: "exec", DependsOn: []string{"A"}},
		{ID: "D", Type: "exec", DependsOn: []string{"B", "C"}},
	}

	g, err := BuildGraph(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 4 {
		t.Errorf("expected 4 nodes, got %d", g.Size())
	}

	nodeD := g.Node("D")
	if len(nodeD.DependsOn) != 2 {
		t.Errorf("node D should have 2 dependencies, got %d", len(nodeD.DependsOn))
	}

	// Порядок depends_on сохраняется (значим для merge)
	if nodeD.DependsOn[0].ID != "B" || nodeD.DependsOn[1].ID != "C" {
		t.Errorf("node D dependencies out of order: %s, %s",
			nodeD.DependsOn[0].ID, nodeD.DependsOn[1].ID)
	}

	// Проверяем inDegree
	if g.Node("A").InDegree != 0 {
		t.Error("A should have inDegree 0")
	}
	if g.Node("D").InDegree != 2 {
		t.Error("D should have inDegree 2")
	}
}

func TestBuildGraph_MultipleRootsAndTerminals(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec"},
		{ID: "B", Type: "exec"},
		{ID: "C", Type: "exec", DependsOn: []string{"A"}},
	}

	g, err := BuildGraph(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(g.Roots) != 2 {
		t.Errorf("expected 2 roots, got %d", len(g.Roots))
	}

	// Терминалы в порядке объявления: B и C
	if len(g.Terminals) != 2 {
		t.Fatalf("expected 2 terminals, got %d", len(g.Terminals))
	}
	if g.Terminals[0].ID != "B" || g.Terminals[1].ID != "C" {
		t.Errorf("terminals out of declaration order: %s, %s",
			g.Terminals[0].ID, g.Terminals[1].ID)
	}
}

func TestBuildGraph_DuplicateDependency(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec"},
		{ID: "B", Type: "exec", DependsOn: []string{"A", "A"}},
	}

	g, err := BuildGraph(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Дубликат ребра не должен задвоить InDegree
	if g.Node("B").InDegree != 1 {
		t.Errorf("B should have inDegree 1, got %d", g.Node("B").InDegree)
	}
}

func TestBuildGraph_Cycle(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec", DependsOn: []string{"C"}},
		{ID: "B", Type: "exec", DependsOn: []string{"A"}},
		{ID: "C", Type: "exec", DependsOn: []string{"B"}},
	}

	_, err := BuildGraph(steps)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("expected ErrCyclicDependency, got %v", err)
	}

	// Ошибка называет участников цикла
	if !strings.Contains(err.Error(), "A") || !strings.Contains(err.Error(), "C") {
		t.Errorf("error should name cycle members: %v", err)
	}
}

func TestBuildGraph_SelfDependency(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec", DependsOn: []string{"A"}},
	}

	_, err := BuildGraph(steps)
	if !errors.Is(err, ErrSelfDependency) {
		t.Fatalf("expected ErrSelfDependency, got %v", err)
	}
}

func TestBuildGraph_UnknownDependency(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec", DependsOn: []string{"missing"}},
	}

	_, err := BuildGraph(steps)
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatal("expected *ConfigError")
	}
	if cfgErr.StepID != "A" {
		t.Errorf("expected StepID A, got %s", cfgErr.StepID)
	}
}

func TestBuildGraph_DuplicateID(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec"},
		{ID: "A", Type: "exec"},
	}

	_, err := BuildGraph(steps)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestBuildGraph_EmptyID(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "", Type: "exec"},
	}

	_, err := BuildGraph(steps)
	if !errors.Is(err, ErrEmptyStepID) {
		t.Fatalf("expected ErrEmptyStepID, got %v", err)
	}
}

func TestGraph_Ready(t *testing.T) {
	steps := []domain.StepDef{
		{ID: "A", Type: "exec"},
		{ID: "B", Type: "exec", DependsOn: []string{"A"}},
		{ID: "C", Type: "exec", DependsOn: []string{"A", "B"}},
	}

	g, err := BuildGraph(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending := map[string]bool{"A": true, "B": true, "C": true}
	done := map[string]bool{}

	ready := g.Ready(done, pending)
	if len(ready) != 1 || ready[0].ID != "A" {
		t.Fatalf("expected only A ready, got %v", ready)
	}

	// A завершён — готов только B (C ждёт ещё и B)
	delete(pending, "A")
	done["A"] = true

	ready = g.Ready(done, pending)
	if len(ready) != 1 || ready[0].ID != "B" {
		t.Fatalf("expected only B ready, got %v", ready)
	}

	delete(pending, "B")
	done["B"] = true

	ready = g.Ready(done, pending)
	if len(ready) != 1 || ready[0].ID != "C" {
		t.Fatalf("expected only C ready, got %v", ready)
	}
}
