package engine

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки валидации PipelineSpec.
var (
	// ErrEmptySteps — пайплайн не содержит шагов.
	ErrEmptySteps = errors.New("pipeline has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateID — несколько шагов (или источников/sinks) с одинаковым ID.
	ErrDuplicateID = errors.New("duplicate ID")

	// ErrUnknownDependency — шаг зависит от несуществующего шага.
	ErrUnknownDependency = errors.New("step depends on unknown step")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrSelfDependency — шаг зависит от самого себя.
	ErrSelfDependency = errors.New("step depends on itself")

	// ErrInvalidSetting — невалидное значение в settings.
	ErrInvalidSetting = errors.New("invalid setting")

	// ErrInvalidCondition — невалидное условие доставки sink.
	ErrInvalidCondition = errors.New("invalid sink condition")

	// ErrNoSources — пайплайн не содержит ни одного источника.
	ErrNoSources = errors.New("pipeline has no sources")

	// ErrNoSinks — пайплайн не содержит ни одного sink.
	ErrNoSinks = errors.New("pipeline has no sinks")
)

// Ошибки выполнения шагов.
var (
	// ErrStepTimeout — шаг превысил таймаут.
	ErrStepTimeout = errors.New("step execution timeout")

	// ErrStepCancelled — выполнение шага отменено (shutdown).
	ErrStepCancelled = errors.New("step execution cancelled")
)

// ConfigError — ошибка конфигурации с контекстом.
//
// Фатальна на этапе load: пайплайн с такой ошибкой не регистрируется.
type ConfigError struct {
	StepID  string // ID шага (или источника/sink), где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка (одна из sentinel выше)
}

// Error реализует интерфейс error.
func (e *ConfigError) Error() string {
	if e.StepID != "" {
		return e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError создаёт новую ошибку конфигурации.
func NewConfigError(stepID, field, message string, err error) *ConfigError {
	return &ConfigError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// StepError — терминальная ошибка выполнения шага после исчерпания retry.
//
// Err — последняя ошибка (ErrStepTimeout, ErrStepCancelled или ошибка
// адаптера, например exit status и stderr subprocess-шага).
type StepError struct {
	StepID   string        // ID упавшего шага
	Attempts int           // сколько попыток было сделано
	Elapsed  time.Duration // суммарное время всех попыток
	Err      error         // последняя ошибка
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed after %d attempt(s): %v", e.StepID, e.Attempts, e.Err)
}

// Unwrap возвращает последнюю ошибку.
func (e *StepError) Unwrap() error {
	return e.Err
}

// IsTimeout возвращает true, если последняя попытка упала по таймауту.
func (e *StepError) IsTimeout() bool {
	return errors.Is(e.Err, ErrStepTimeout)
}

// IsCancelled возвращает true, если выполнение было отменено.
func (e *StepError) IsCancelled() bool {
	return errors.Is(e.Err, ErrStepCancelled)
}
