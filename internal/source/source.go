// Package source содержит адаптеры источников событий.
//
// Каждый тип источника (http, timer, mqtt, amqp, file) реализует
// контракт domain.Source. Конкретный тип выбирается по полю type
// декларации при конструировании — планировщик о типах не знает.
package source

import (
	"errors"
	"fmt"

	"github.com/shaiso/conveyor/internal/domain"
)

// Типы источников.
const (
	TypeHTTP  = "http"
	TypeTimer = "timer"
	TypeMQTT  = "mqtt"
	TypeAMQP  = "amqp"
	TypeFile  = "file"
)

// Ошибки источников.
var (
	// ErrUnknownType — неизвестный тип источника.
	ErrUnknownType = errors.New("unknown source type")

	// ErrInvalidConfig — невалидная конфигурация источника.
	ErrInvalidConfig = errors.New("invalid source config")
)

// New создаёт источник по декларации.
func New(def *domain.SourceDef) (domain.Source, error) {
	switch def.Type {
	case TypeHTTP:
		return NewHTTPSource(def)
	case TypeTimer:
		return NewTimerSource(def)
	case TypeMQTT:
		return NewMQTTSource(def)
	case TypeAMQP:
		return NewAMQPSource(def)
	case TypeFile:
		return NewFileSource(def)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, def.Type)
	}
}
