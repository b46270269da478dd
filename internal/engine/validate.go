package engine

import (
	"fmt"

	"github.com/shaiso/conveyor/internal/domain"
)

// Validate выполняет полную валидацию PipelineSpec.
//
// Проверяет:
//   - Наличие имени пайплайна, источников, шагов и sinks
//   - Уникальность и непустоту ID источников, шагов и sinks
//   - Валидность зависимостей и отсутствие циклов (делегируется BuildGraph)
//   - Числовые настройки (неотрицательные таймауты, retry и т.д.)
//   - Парсинг условий доставки sinks
//
// Первая найденная ошибка прекращает валидацию: load либо принимает
// спецификацию целиком, либо отвергает целиком.
func Validate(spec *domain.PipelineSpec) error {
	if spec == nil {
		return NewConfigError("", "", "pipeline spec is nil", ErrEmptySteps)
	}

	if spec.Name == "" {
		return NewConfigError("", "name", "pipeline has empty name", ErrInvalidSetting)
	}

	if len(spec.Sources) == 0 {
		return NewConfigError("", "sources", "pipeline has no sources", ErrNoSources)
	}
	if len(spec.Steps) == 0 {
		return NewConfigError("", "steps", "pipeline has no steps", ErrEmptySteps)
	}
	if len(spec.Sinks) == 0 {
		return NewConfigError("", "sinks", "pipeline has no sinks", ErrNoSinks)
	}

	if err := validateSources(spec.Sources); err != nil {
		return err
	}

	if err := validateSteps(spec.Steps); err != nil {
		return err
	}

	// BuildGraph проверяет зависимости и циклы
	if _, err := BuildGraph(spec.Steps); err != nil {
		return err
	}

	if err := validateSinks(spec.Sinks); err != nil {
		return err
	}

	return validateSettings(&spec.Settings)
}

// validateSources проверяет определения источников.
func validateSources(sources []domain.SourceDef) error {
	seen := make(map[string]bool, len(sources))

	for i := range sources {
		src := &sources[i]

		if src.ID == "" {
			return NewConfigError("", "id", "source has empty ID", ErrEmptyStepID)
		}
		if seen[src.ID] {
			return NewConfigError(src.ID, "id",
				fmt.Sprintf("duplicate source ID: %s", src.ID), ErrDuplicateID)
		}
		seen[src.ID] = true

		if src.Type == "" {
			return NewConfigError(src.ID, "type", "source has empty type", ErrInvalidSetting)
		}
	}

	return nil
}

// validateSteps проверяет числовые поля шагов.
// Структуру графа (ID, зависимости, циклы) проверяет BuildGraph.
func validateSteps(steps []domain.StepDef) error {
	for i := range steps {
		step := &steps[i]

		if step.Type == "" {
			return NewConfigError(step.ID, "type", "step has empty type", ErrInvalidSetting)
		}
		if step.TimeoutMs < 0 {
			return NewConfigError(step.ID, "timeout_ms",
				fmt.Sprintf("negative timeout: %d", step.TimeoutMs), ErrInvalidSetting)
		}
		if step.RetryCount < 0 {
			return NewConfigError(step.ID, "retry_count",
				fmt.Sprintf("negative retry count: %d", step.RetryCount), ErrInvalidSetting)
		}

		if step.Retry != nil {
			if err := validateRetryPolicy(step.ID, step.Retry); err != nil {
				return err
			}
		}
	}

	return nil
}

// validateRetryPolicy проверяет политику повторных попыток.
func validateRetryPolicy(stepID string, policy *domain.RetryPolicy) error {
	switch policy.Backoff {
	case "", BackoffFixed, BackoffExponential:
	default:
		return NewConfigError(stepID, "retry.backoff",
			fmt.Sprintf("unknown backoff strategy: %s", policy.Backoff), ErrInvalidSetting)
	}

	if policy.InitialDelayMs < 0 {
		return NewConfigError(stepID, "retry.initial_delay_ms",
			"negative initial delay", ErrInvalidSetting)
	}
	if policy.MaxDelayMs < 0 {
		return NewConfigError(stepID, "retry.max_delay_ms",
			"negative max delay", ErrInvalidSetting)
	}

	return nil
}

// validateSinks проверяет определения sinks, включая парсинг условий.
func validateSinks(sinks []domain.SinkDef) error {
	seen := make(map[string]bool, len(sinks))

	for i := range sinks {
		sink := &sinks[i]

		if sink.ID == "" {
			return NewConfigError("", "id", "sink has empty ID", ErrEmptyStepID)
		}
		if seen[sink.ID] {
			return NewConfigError(sink.ID, "id",
				fmt.Sprintf("duplicate sink ID: %s", sink.ID), ErrDuplicateID)
		}
		seen[sink.ID] = true

		if sink.Type == "" {
			return NewConfigError(sink.ID, "type", "sink has empty type", ErrInvalidSetting)
		}
		if sink.BatchSize < 0 {
			return NewConfigError(sink.ID, "batch_size",
				fmt.Sprintf("negative batch size: %d", sink.BatchSize), ErrInvalidSetting)
		}

		if sink.Condition != "" {
			if _, err := ParseCondition(sink.Condition); err != nil {
				return NewConfigError(sink.ID, "condition", err.Error(), ErrInvalidCondition)
			}
		}
	}

	return nil
}

// validateSettings проверяет настройки выполнения.
func validateSettings(settings *domain.Settings) error {
	if settings.MaxConcurrent < 0 {
		return NewConfigError("", "settings.max_concurrent",
			fmt.Sprintf("negative max_concurrent: %d", settings.MaxConcurrent), ErrInvalidSetting)
	}
	if settings.BufferSize < 0 {
		return NewConfigError("", "settings.buffer_size",
			fmt.Sprintf("negative buffer_size: %d", settings.BufferSize), ErrInvalidSetting)
	}
	if settings.DrainTimeoutSec < 0 {
		return NewConfigError("", "settings.drain_timeout_sec",
			"negative drain timeout", ErrInvalidSetting)
	}
	if settings.Security.RateLimit < 0 {
		return NewConfigError("", "settings.security.rate_limit",
			"negative rate limit", ErrInvalidSetting)
	}

	return nil
}
