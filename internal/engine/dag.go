package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/conveyor/internal/domain"
)

// Node — узел в DAG.
type Node struct {
	// Def — определение шага из PipelineSpec.
	Def *domain.StepDef

	// ID — идентификатор узла (совпадает с Def.ID).
	ID string

	// InDegree — количество входящих рёбер (зависимостей).
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел,
	// в порядке объявления в depends_on. Порядок значим для merge.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// Graph — направленный ациклический граф шагов пайплайна.
type Graph struct {
	// Nodes — все узлы графа (stepID → Node).
	Nodes map[string]*Node

	// Decl — узлы в порядке объявления в спецификации.
	Decl []*Node

	// Roots — узлы без зависимостей (точки входа).
	Roots []*Node

	// Terminals — узлы без зависимых (листья), в порядке объявления.
	// Их результаты образуют итоговый элемент.
	Terminals []*Node

	// Order — топологически отсортированный список узлов.
	// Используется только как подсказка планирования: независимые
	// поддеревья выполняются конкурентно.
	Order []*Node
}

// BuildGraph строит DAG из списка шагов.
//
// Возвращает ConfigError при неизвестной зависимости или цикле.
// Уникальность и непустоту ID проверяет Validate; BuildGraph
// дублирует минимальные проверки для самостоятельного использования.
func BuildGraph(steps []domain.StepDef) (*Graph, error) {
	g := &Graph{
		Nodes: make(map[string]*Node, len(steps)),
		Decl:  make([]*Node, 0, len(steps)),
	}

	// Первый проход: создаём все узлы
	for i := range steps {
		step := &steps[i]

		if step.ID == "" {
			return nil, NewConfigError("", "id", "step has empty ID", ErrEmptyStepID)
		}
		if _, exists := g.Nodes[step.ID]; exists {
			return nil, NewConfigError(step.ID, "id",
				fmt.Sprintf("duplicate step ID: %s", step.ID), ErrDuplicateID)
		}

		node := &Node{
			Def:        step,
			ID:         step.ID,
			DependsOn:  make([]*Node, 0, len(step.DependsOn)),
			Dependents: make([]*Node, 0),
		}
		g.Nodes[step.ID] = node
		g.Decl = append(g.Decl, node)
	}

	// Второй проход: связываем узлы по зависимостям
	for _, node := range g.Decl {
		for _, depID := range node.Def.DependsOn {
			if depID == node.ID {
				return nil, NewConfigError(node.ID, "depends_on",
					"step depends on itself", ErrSelfDependency)
			}

			dep, exists := g.Nodes[depID]
			if !exists {
				return nil, NewConfigError(node.ID, "depends_on",
					fmt.Sprintf("depends on unknown step: %s", depID), ErrUnknownDependency)
			}

			g.addEdge(dep, node)
		}
	}

	g.findRoots()
	g.findTerminals()

	// Проверяем на циклы и строим топологический порядок
	order, err := g.topologicalSort()
	if err != nil {
		return nil, err
	}
	g.Order = order

	return g, nil
}

// addEdge добавляет ребро from → to.
// Дубликаты рёбер игнорируются, чтобы не задвоить InDegree.
func (g *Graph) addEdge(from, to *Node) {
	for _, dep := range to.DependsOn {
		if dep.ID == from.ID {
			return // уже связаны
		}
	}
	from.Dependents = append(from.Dependents, to)
	to.DependsOn = append(to.DependsOn, from)
	to.InDegree++
}

// findRoots находит узлы без входящих рёбер.
func (g *Graph) findRoots() {
	g.Roots = make([]*Node, 0)
	for _, node := range g.Decl {
		if node.InDegree == 0 {
			g.Roots = append(g.Roots, node)
		}
	}
}

// findTerminals находит узлы без зависимых, в порядке объявления.
func (g *Graph) findTerminals() {
	g.Terminals = make([]*Node, 0)
	for _, node := range g.Decl {
		if len(node.Dependents) == 0 {
			g.Terminals = append(g.Terminals, node)
		}
	}
}

// topologicalSort выполняет топологическую сортировку (алгоритм Кана).
// При обнаружении цикла возвращает ConfigError с именами узлов,
// оставшихся в цикле.
func (g *Graph) topologicalSort() ([]*Node, error) {
	// Копируем inDegree, чтобы не модифицировать оригинал
	inDegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		inDegree[id] = node.InDegree
	}

	queue := make([]*Node, len(g.Roots))
	copy(queue, g.Roots)

	order := make([]*Node, 0, len(g.Nodes))

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.ID]--
			if inDegree[dependent.ID] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	// Если не все узлы обработаны — есть цикл; оставшиеся узлы в нём участвуют
	if len(order) != len(g.Nodes) {
		remaining := make([]string, 0, len(g.Nodes)-len(order))
		for id := range inDegree {
			if inDegree[id] > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)

		return nil, NewConfigError(remaining[0], "depends_on",
			fmt.Sprintf("cyclic dependency involving steps: %s", strings.Join(remaining, ", ")),
			ErrCyclicDependency)
	}

	return order, nil
}

// Ready возвращает узлы, готовые к запуску.
//
// Узел готов, если все его зависимости в done и сам он ещё в pending.
// done — map stepID → true для узлов со статусом COMPLETED.
// pending — map stepID → true для ещё не запущенных узлов.
func (g *Graph) Ready(done, pending map[string]bool) []*Node {
	ready := make([]*Node, 0)

	for _, node := range g.Decl {
		if !pending[node.ID] {
			continue
		}

		allDepsDone := true
		for _, dep := range node.DependsOn {
			if !done[dep.ID] {
				allDepsDone = false
				break
			}
		}

		if allDepsDone {
			ready = append(ready, node)
		}
	}

	return ready
}

// Node возвращает узел по ID.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// Size возвращает количество узлов в графе.
func (g *Graph) Size() int {
	return len(g.Nodes)
}
