package pipeline

import "errors"

// Ошибки lifecycle-операций реестра.
var (
	// ErrPipelineNotFound — пайплайн с таким именем не загружен.
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrPipelineExists — пайплайн с таким именем уже загружен.
	ErrPipelineExists = errors.New("pipeline already loaded")

	// ErrPipelineRunning — операция недопустима для запущенного пайплайна.
	ErrPipelineRunning = errors.New("pipeline is running")

	// ErrPipelineNotRunning — пайплайн не запущен.
	ErrPipelineNotRunning = errors.New("pipeline is not running")

	// ErrNoEnabledSources — все источники пайплайна выключены.
	ErrNoEnabledSources = errors.New("pipeline has no enabled sources")
)
