// Package step содержит адаптеры шагов обработки.
//
// Каждый тип шага (exec, http, extract, set, delay) реализует
// контракт domain.Step: принимает DataItem, возвращает новый DataItem
// (copy-on-write) или ошибку. Таймауты и retry применяет движок
// снаружи — шаг обязан лишь уважать ctx.
package step

import (
	"errors"
	"fmt"

	"github.com/shaiso/conveyor/internal/domain"
)

// Типы шагов.
const (
	TypeExec    = "exec"
	TypeHTTP    = "http"
	TypeExtract = "extract"
	TypeSet     = "set"
	TypeDelay   = "delay"
)

// Ошибки шагов.
var (
	// ErrUnknownType — неизвестный тип шага.
	ErrUnknownType = errors.New("unknown step type")

	// ErrInvalidConfig — невалидная конфигурация шага.
	ErrInvalidConfig = errors.New("invalid step config")

	// ErrExecFailed — subprocess завершился с ненулевым кодом.
	ErrExecFailed = errors.New("subprocess execution failed")
)

// New создаёт шаг по декларации.
func New(def *domain.StepDef) (domain.Step, error) {
	switch def.Type {
	case TypeExec:
		return NewExecStep(def)
	case TypeHTTP:
		return NewHTTPStep(def)
	case TypeExtract:
		return NewExtractStep(def)
	case TypeSet:
		return NewSetStep(def)
	case TypeDelay:
		return NewDelayStep(def)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, def.Type)
	}
}
