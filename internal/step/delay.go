package step

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// DelayStep — шаг задержки.
//
// Приостанавливает обработку элемента на указанное время.
// Поддерживает graceful shutdown через context cancellation.
//
// Конфигурация (params):
//
//	{
//	    "duration_sec": 10,    // задержка в секундах
//	    // или
//	    "duration_ms": 5000    // задержка в миллисекундах
//	}
type DelayStep struct {
	id       string
	duration time.Duration
}

// NewDelayStep создаёт DelayStep из декларации.
func NewDelayStep(def *domain.StepDef) (*DelayStep, error) {
	duration, err := parseDelay(def)
	if err != nil {
		return nil, err
	}

	return &DelayStep{
		id:       def.ID,
		duration: duration,
	}, nil
}

// ID возвращает идентификатор шага.
func (s *DelayStep) ID() string {
	return s.id
}

// Process выполняет задержку и передаёт элемент дальше без изменений.
func (s *DelayStep) Process(ctx context.Context, item *domain.DataItem) (*domain.DataItem, error) {
	timer := time.NewTimer(s.duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		// Контекст отменён — graceful shutdown
		return nil, ctx.Err()
	case <-timer.C:
		out := item.Clone()
		out.Metadata["processor"] = s.id
		return out, nil
	}
}

// parseDelay извлекает длительность из конфигурации шага.
func parseDelay(def *domain.StepDef) (time.Duration, error) {
	if sec := params.Int(def.Params, "duration_sec"); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}

	if ms := params.Int(def.Params, "duration_ms"); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required",
		ErrInvalidConfig, def.ID)
}
