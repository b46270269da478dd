package domain

import (
	"context"
	"errors"
	"time"
)

// ErrQueueFull — очередь приёма заполнена (возвращается TryPush).
var ErrQueueFull = errors.New("ingestion queue is full")

// Queue — очередь приёма пайплайна, в которую пишут источники.
//
// Реализация: scheduler в internal/pipeline.
type Queue interface {
	// Push блокируется при заполненной очереди — так backpressure
	// доходит до источника. Возвращает ошибку ctx при отмене.
	Push(ctx context.Context, item *DataItem) error

	// TryPush ждёт свободное место не дольше wait; по истечении
	// возвращает ErrQueueFull. Для источников, которым нельзя
	// блокироваться неограниченно (HTTP-обработчики).
	TryPush(ctx context.Context, item *DataItem, wait time.Duration) error
}

// Source — адаптер, производящий поток DataItem из внешнего
// источника событий (HTTP endpoint, MQTT topic, таймер и т.д.).
//
// Реализации: см. internal/source.
type Source interface {
	// Start запускает производство элементов в out.
	// Блокирует до остановки источника или отмены ctx.
	Start(ctx context.Context, out Queue) error

	// Stop — best-effort graceful остановка источника.
	Stop() error

	// ID возвращает идентификатор источника.
	ID() string
}

// Step — одна стадия трансформации в графе зависимостей пайплайна.
//
// Process должен быть безопасен для конкурентного вызова с разными
// элементами; для одного элемента каждый экземпляр вызывается не
// более одного раза. Реализация обязана уважать ctx — отмена
// контекста означает таймаут или shutdown.
type Step interface {
	// Process обрабатывает элемент и возвращает новый DataItem.
	Process(ctx context.Context, item *DataItem) (*DataItem, error)

	// ID возвращает идентификатор шага.
	ID() string
}

// Sink — адаптер, доставляющий завершённые элементы во внешнее
// назначение (HTTP, файл, брокер, БД).
type Sink interface {
	// Send доставляет один элемент.
	Send(ctx context.Context, item *DataItem) error

	// SendBatch доставляет пачку элементов за один вызов.
	// Вызывается диспетчером только если SupportsBatch() == true.
	SendBatch(ctx context.Context, items []*DataItem) error

	// SupportsBatch сообщает, умеет ли sink пакетную доставку.
	SupportsBatch() bool

	// ID возвращает идентификатор sink.
	ID() string
}
