// Package engine содержит движок выполнения пайплайна.
//
// Включает:
//   - validate.go  — валидация PipelineSpec
//   - dag.go       — построение DAG шагов (directed acyclic graph)
//   - executor.go  — проведение одного элемента через DAG
//   - retry.go     — таймаут и повторные попытки вокруг вызова шага
//   - merge.go     — слияние результатов нескольких зависимостей
//   - condition.go — условия доставки выходов
//
// Engine отвечает за корректность обхода графа: узел не стартует
// раньше своих зависимостей, независимые узлы выполняются
// конкурентно, падение узла помечает зависимые как SKIPPED.
package engine
