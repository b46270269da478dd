package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/telemetry"
)

// Executor проводит один DataItem через DAG шагов.
//
// Протокол:
//   - узлы, все зависимости которых завершены (изначально корни),
//     запускаются конкурентно, каждый через retry/timeout обёртку
//   - вход узла с несколькими зависимостями формирует MergeFunc
//   - каждый узел выполняется ровно один раз на элемент
//   - терминальное падение узла помечает всех транзитивно зависимых
//     как SKIPPED; независимые ветки продолжают работу
//   - обход завершён, когда каждый узел COMPLETED, FAILED или SKIPPED
//
// Executor безопасен для конкурентного использования: Run не хранит
// состояние между вызовами, всё состояние обхода локально.
type Executor struct {
	graph    *Graph
	steps    map[string]domain.Step
	merge    MergeFunc
	pipeline string
	logger   *slog.Logger
}

// ExecutorConfig — конфигурация Executor.
type ExecutorConfig struct {
	// Graph — скомпилированный DAG шагов.
	Graph *Graph

	// Steps — реализации шагов по ID узла.
	Steps map[string]domain.Step

	// Merge — функция слияния входов (default: MergeLeftToRight).
	Merge MergeFunc

	// Pipeline — имя пайплайна для логов и метрик.
	Pipeline string

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// NewExecutor создаёт Executor.
//
// Возвращает ошибку, если для какого-то узла графа нет реализации шага.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	for id := range cfg.Graph.Nodes {
		if _, ok := cfg.Steps[id]; !ok {
			return nil, fmt.Errorf("no step implementation for node %s", id)
		}
	}

	merge := cfg.Merge
	if merge == nil {
		merge = MergeLeftToRight
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		graph:    cfg.Graph,
		steps:    cfg.Steps,
		merge:    merge,
		pipeline: cfg.Pipeline,
		logger:   logger,
	}, nil
}

// ItemResult — итог обхода DAG одним элементом.
type ItemResult struct {
	// Item — итоговый элемент (слияние выходов терминальных узлов).
	// nil, если элемент провален.
	Item *domain.DataItem

	// Failed — true, если хотя бы один терминальный узел не завершился.
	Failed bool

	// States — финальный статус каждого узла.
	States map[string]domain.NodeStatus

	// Err — первая терминальная ошибка шага (*StepError), если была.
	Err error
}

// nodeResult — результат выполнения одного узла.
type nodeResult struct {
	node    *Node
	item    *domain.DataItem
	err     error
	elapsed time.Duration
}

// Run проводит элемент через граф до финального результата.
//
// Падение одного элемента никогда не влияет на другие элементы:
// Run не разделяет состояние между вызовами. Отмена ctx (shutdown)
// отменяет выполняющиеся шаги; недостартовавшие узлы помечаются
// SKIPPED, элемент возвращается как Failed.
func (e *Executor) Run(ctx context.Context, item *domain.DataItem) *ItemResult {
	states := make(map[string]domain.NodeStatus, e.graph.Size())
	pending := make(map[string]bool, e.graph.Size())
	done := make(map[string]bool, e.graph.Size())
	outputs := make(map[string]*domain.DataItem, e.graph.Size())

	for id := range e.graph.Nodes {
		states[id] = domain.NodeStatusPending
		pending[id] = true
	}

	results := make(chan nodeResult)
	running := 0

	var firstErr error

	launch := func(node *Node) {
		delete(pending, node.ID)
		states[node.ID] = domain.NodeStatusRunning
		running++

		input := e.nodeInput(node, item, outputs)

		go func() {
			started := time.Now()
			out, err := invokeStep(ctx, e.steps[node.ID], node.Def, input, e.logger)
			results <- nodeResult{node: node, item: out, err: err, elapsed: time.Since(started)}
		}()
	}

	// Стартуем корневые узлы
	for _, node := range e.graph.Ready(done, pending) {
		launch(node)
	}

	// Собираем результаты, пока есть работа
	for running > 0 {
		res := <-results
		running--

		if res.err != nil {
			states[res.node.ID] = domain.NodeStatusFailed
			if firstErr == nil {
				firstErr = res.err
			}

			e.logger.Warn("step failed",
				"step_id", res.node.ID,
				"item_id", item.ID,
				"elapsed", res.elapsed,
				"error", res.err,
			)
			telemetry.StepFailures.WithLabelValues(e.pipeline, res.node.ID).Inc()

			// Транзитивно помечаем зависимых как SKIPPED
			e.skipDependents(res.node, states, pending)
		} else {
			states[res.node.ID] = domain.NodeStatusCompleted
			done[res.node.ID] = true
			outputs[res.node.ID] = res.item

			e.logger.Debug("step completed",
				"step_id", res.node.ID,
				"item_id", item.ID,
				"elapsed", res.elapsed,
			)
			telemetry.StepDuration.WithLabelValues(e.pipeline, res.node.ID).Observe(res.elapsed.Seconds())
		}

		for _, node := range e.graph.Ready(done, pending) {
			launch(node)
		}
	}

	// Остались только узлы, до которых обход не дошёл (упавшие
	// зависимости уже пометили их, но shutdown мог оставить pending)
	for id := range pending {
		states[id] = domain.NodeStatusSkipped
	}

	return e.finalize(item, states, outputs, firstErr)
}

// nodeInput формирует входной элемент узла из выходов зависимостей.
func (e *Executor) nodeInput(node *Node, item *domain.DataItem, outputs map[string]*domain.DataItem) *domain.DataItem {
	if len(node.DependsOn) == 0 {
		return item
	}

	inputs := make([]*domain.DataItem, 0, len(node.DependsOn))
	for _, dep := range node.DependsOn {
		inputs = append(inputs, outputs[dep.ID])
	}

	return e.merge(inputs)
}

// skipDependents помечает всех транзитивно зависимых от node как SKIPPED.
func (e *Executor) skipDependents(node *Node, states map[string]domain.NodeStatus, pending map[string]bool) {
	for _, dep := range node.Dependents {
		if !pending[dep.ID] {
			continue
		}
		delete(pending, dep.ID)
		states[dep.ID] = domain.NodeStatusSkipped
		e.skipDependents(dep, states, pending)
	}
}

// finalize собирает ItemResult из финальных статусов узлов.
//
// Элемент провален, если хотя бы один терминальный узел (без
// зависимых) не завершился. Иначе итоговый элемент — слияние выходов
// терминальных узлов в порядке объявления.
func (e *Executor) finalize(item *domain.DataItem, states map[string]domain.NodeStatus, outputs map[string]*domain.DataItem, firstErr error) *ItemResult {
	result := &ItemResult{States: states, Err: firstErr}

	terminalOutputs := make([]*domain.DataItem, 0, len(e.graph.Terminals))
	for _, node := range e.graph.Terminals {
		if states[node.ID] != domain.NodeStatusCompleted {
			result.Failed = true
			continue
		}
		terminalOutputs = append(terminalOutputs, outputs[node.ID])
	}

	if result.Failed {
		return result
	}

	result.Item = e.merge(terminalOutputs)
	return result
}
