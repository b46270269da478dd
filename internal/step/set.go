package step

import (
	"context"
	"fmt"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// SetStep — шаг, добавляющий статические метаданные к элементу.
//
// Конфигурация (params):
//
//	{"metadata": {"stage": "enriched", "region": "eu"}}
type SetStep struct {
	id     string
	values map[string]string
}

// NewSetStep создаёт SetStep из декларации.
func NewSetStep(def *domain.StepDef) (*SetStep, error) {
	values := params.StringMap(def.Params, "metadata")
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s: metadata is required", ErrInvalidConfig, def.ID)
	}

	return &SetStep{
		id:     def.ID,
		values: values,
	}, nil
}

// ID возвращает идентификатор шага.
func (s *SetStep) ID() string {
	return s.id
}

// Process добавляет статические метаданные.
func (s *SetStep) Process(ctx context.Context, item *domain.DataItem) (*domain.DataItem, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := item.Clone()
	for k, v := range s.values {
		out.Metadata[k] = v
	}
	out.Metadata["processor"] = s.id

	return out, nil
}
