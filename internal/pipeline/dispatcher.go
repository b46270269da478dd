package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/telemetry"
)

// output — один sink с условием и буфером батча.
type output struct {
	sink      domain.Sink
	cond      *engine.Condition // nil — без условия, доставлять всё
	batchSize int               // <=1 — поэлементная доставка

	mu  sync.Mutex
	buf []*domain.DataItem
}

// dispatcher раздаёт завершённые элементы по sinks.
//
// Каждый sink независимо проверяет условие и копит батч. Критическая
// секция — только вокруг буфера: сама доставка выполняется вне
// блокировки и не задерживает другие элементы.
//
// Доставка best-effort: ошибка sink логируется, не повторяется и не
// влияет ни на статус элемента, ни на другие sinks.
type dispatcher struct {
	pipeline string
	outputs  []*output
	logger   *slog.Logger
}

// newDispatcher создаёт dispatcher для набора sinks.
// Условия обязаны быть валидны (проверено на load).
func newDispatcher(pipeline string, sinks []domain.Sink, defs []domain.SinkDef, logger *slog.Logger) (*dispatcher, error) {
	outputs := make([]*output, 0, len(sinks))

	for i, sink := range sinks {
		def := &defs[i]

		var cond *engine.Condition
		if def.Condition != "" {
			parsed, err := engine.ParseCondition(def.Condition)
			if err != nil {
				return nil, err
			}
			cond = parsed
		}

		outputs = append(outputs, &output{
			sink:      sink,
			cond:      cond,
			batchSize: def.BatchSize,
		})
	}

	return &dispatcher{
		pipeline: pipeline,
		outputs:  outputs,
		logger:   logger,
	}, nil
}

// Dispatch раздаёт один завершённый элемент по всем sinks.
func (d *dispatcher) Dispatch(ctx context.Context, item *domain.DataItem) {
	for _, out := range d.outputs {
		if out.cond != nil && !out.cond.Match(item.Metadata) {
			continue
		}

		if out.batchSize <= 1 {
			d.deliver(ctx, out, []*domain.DataItem{item}, false)
			continue
		}

		// Копим батч; при достижении размера забираем буфер под
		// блокировкой, доставляем уже без неё
		out.mu.Lock()
		out.buf = append(out.buf, item)
		var batch []*domain.DataItem
		if len(out.buf) >= out.batchSize {
			batch = out.buf
			out.buf = nil
		}
		out.mu.Unlock()

		if batch != nil {
			d.deliver(ctx, out, batch, true)
		}
	}
}

// Flush доставляет неполные батчи всех sinks.
// Вызывается при остановке пайплайна.
func (d *dispatcher) Flush(ctx context.Context) {
	for _, out := range d.outputs {
		out.mu.Lock()
		batch := out.buf
		out.buf = nil
		out.mu.Unlock()

		if len(batch) > 0 {
			d.deliver(ctx, out, batch, true)
		}
	}
}

// deliver отправляет элементы в sink.
//
// Всё, что пришло из батч-буфера, уходит одним вызовом SendBatch —
// включая неполный flush из одного элемента: формат доставки sink'а
// не должен зависеть от момента остановки. Sink без поддержки батчей
// получает элементы по одному.
func (d *dispatcher) deliver(ctx context.Context, out *output, items []*domain.DataItem, batched bool) {
	var err error
	if batched && out.sink.SupportsBatch() {
		err = out.sink.SendBatch(ctx, items)
	} else {
		for _, item := range items {
			if sendErr := out.sink.Send(ctx, item); sendErr != nil {
				err = sendErr
			}
		}
	}

	if err != nil {
		telemetry.SinkDeliveries.WithLabelValues(d.pipeline, out.sink.ID(), "error").Inc()
		d.logger.Warn("sink delivery failed",
			"sink_id", out.sink.ID(),
			"items", len(items),
			"error", err,
		)
		return
	}

	telemetry.SinkDeliveries.WithLabelValues(d.pipeline, out.sink.ID(), "ok").Inc()
	d.logger.Debug("sink delivery ok",
		"sink_id", out.sink.ID(),
		"items", len(items),
	)
}
