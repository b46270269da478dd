// Package sink содержит адаптеры доставки обработанных элементов.
//
// Каждый тип sink (http, file, mqtt, amqp, postgres, log) реализует
// контракт domain.Sink. Диспетчер движка решает, когда доставлять
// поштучно, а когда батчем — sink лишь декларирует поддержку
// батчей через SupportsBatch.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/conveyor/internal/domain"
)

// Типы sinks.
const (
	TypeHTTP     = "http"
	TypeFile     = "file"
	TypeMQTT     = "mqtt"
	TypeAMQP     = "amqp"
	TypePostgres = "postgres"
	TypeLog      = "log"
)

// Ошибки sinks.
var (
	// ErrUnknownType — неизвестный тип sink.
	ErrUnknownType = errors.New("unknown sink type")

	// ErrInvalidConfig — невалидная конфигурация sink.
	ErrInvalidConfig = errors.New("invalid sink config")

	// ErrNotConnected — соединение с брокером потеряно.
	ErrNotConnected = errors.New("sink not connected")
)

// New создаёт sink по декларации.
func New(def *domain.SinkDef, logger *slog.Logger) (domain.Sink, error) {
	switch def.Type {
	case TypeHTTP:
		return NewHTTPSink(def)
	case TypeFile:
		return NewFileSink(def)
	case TypeMQTT:
		return NewMQTTSink(def)
	case TypeAMQP:
		return NewAMQPSink(def, logger)
	case TypePostgres:
		return NewPostgresSink(def)
	case TypeLog:
		return NewLogSink(def, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, def.Type)
	}
}

// wireItem — представление элемента на проводе (JSON).
type wireItem struct {
	ID        uuid.UUID         `json:"id"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// encodeItem сериализует элемент в JSON. Валидный JSON payload
// встраивается как есть, произвольные байты — как JSON-строка.
func encodeItem(item *domain.DataItem) ([]byte, error) {
	var payload json.RawMessage
	if json.Valid(item.Payload) {
		payload = json.RawMessage(item.Payload)
	} else {
		quoted, err := json.Marshal(string(item.Payload))
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		payload = quoted
	}

	body, err := json.Marshal(wireItem{
		ID:        item.ID,
		Payload:   payload,
		Metadata:  item.Metadata,
		Timestamp: item.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return body, nil
}

// encodeBatch сериализует набор элементов в JSON-массив.
func encodeBatch(items []*domain.DataItem) ([]byte, error) {
	encoded := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		body, err := encodeItem(item)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, body)
	}
	return json.Marshal(encoded)
}
