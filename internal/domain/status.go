package domain

// NodeStatus — статус узла DAG в рамках обработки одного элемента.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED (после исчерпания retry)
//	PENDING → SKIPPED (транзитивная зависимость упала)
type NodeStatus string

const (
	// NodeStatusPending — узел ожидает завершения зависимостей.
	NodeStatusPending NodeStatus = "PENDING"

	// NodeStatusRunning — узел выполняется.
	NodeStatusRunning NodeStatus = "RUNNING"

	// NodeStatusCompleted — узел успешно завершён.
	NodeStatusCompleted NodeStatus = "COMPLETED"

	// NodeStatusFailed — узел упал после всех retry.
	NodeStatusFailed NodeStatus = "FAILED"

	// NodeStatusSkipped — узел пропущен из-за падения зависимости.
	NodeStatusSkipped NodeStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusCompleted, NodeStatusFailed, NodeStatusSkipped:
		return true
	default:
		return false
	}
}

// PipelineStatus — статус пайплайна в реестре.
//
// Жизненный цикл:
//
//	LOADED → RUNNING → STOPPED → (RUNNING снова или выгрузка)
type PipelineStatus string

const (
	// PipelineStatusLoaded — пайплайн загружен, но не запущен.
	PipelineStatusLoaded PipelineStatus = "LOADED"

	// PipelineStatusRunning — пайплайн обрабатывает элементы.
	PipelineStatusRunning PipelineStatus = "RUNNING"

	// PipelineStatusStopped — пайплайн остановлен.
	PipelineStatusStopped PipelineStatus = "STOPPED"
)
