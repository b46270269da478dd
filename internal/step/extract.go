package step

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// ExtractStep — шаг, извлекающий поля из JSON payload в метаданные.
//
// Конфигурация (params):
//
//	{
//	    "fields": {
//	        "threat_level": "detection.score",
//	        "label": "detection.class"
//	    }
//	}
//
// Ключ — имя метаданного, значение — путь в JSON через точку.
// Извлечённые метаданные питают условия доставки sinks
// ("threat_level > 0.8"). Отсутствующий путь просто пропускается —
// условие с отсутствующим полем не совпадает по контракту
// диспетчера. Невалидный JSON payload — ошибка шага.
type ExtractStep struct {
	id     string
	fields map[string]string
}

// NewExtractStep создаёт ExtractStep из декларации.
func NewExtractStep(def *domain.StepDef) (*ExtractStep, error) {
	fields := params.StringMap(def.Params, "fields")
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s: fields is required", ErrInvalidConfig, def.ID)
	}

	return &ExtractStep{
		id:     def.ID,
		fields: fields,
	}, nil
}

// ID возвращает идентификатор шага.
func (s *ExtractStep) ID() string {
	return s.id
}

// Process извлекает поля из payload в метаданные.
func (s *ExtractStep) Process(ctx context.Context, item *domain.DataItem) (*domain.DataItem, error) {
	// Проверяем context
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var doc any
	if err := json.Unmarshal(item.Payload, &doc); err != nil {
		return nil, fmt.Errorf("parse payload json: %w", err)
	}

	out := item.Clone()
	out.Metadata["processor"] = s.id

	for key, path := range s.fields {
		value, ok := lookupPath(doc, path)
		if !ok {
			continue
		}
		out.Metadata[key] = formatValue(value)
	}

	return out, nil
}

// lookupPath идёт по точечному пути внутри разобранного JSON.
func lookupPath(doc any, path string) (any, bool) {
	current := doc
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// formatValue приводит JSON-значение к строке метаданного.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		encoded, _ := json.Marshal(val)
		return string(encoded)
	}
}
