package sink

import (
	"context"
	"log/slog"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// LogSink пишет элементы в структурированный лог.
//
// Удобен при отладке конфигураций: видно, какие элементы прошли
// условие доставки и с какими метаданными.
//
// Конфигурация (params):
//
//	{"level": "info"}  // debug|info|warn, по умолчанию info
type LogSink struct {
	id     string
	level  slog.Level
	logger *slog.Logger
}

// NewLogSink создаёт LogSink из декларации.
func NewLogSink(def *domain.SinkDef, logger *slog.Logger) *LogSink {
	level := slog.LevelInfo
	switch params.String(def.Params, "level") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	}

	return &LogSink{
		id:     def.ID,
		level:  level,
		logger: logger,
	}
}

// ID возвращает идентификатор sink.
func (s *LogSink) ID() string {
	return s.id
}

// SupportsBatch сообщает, что батчи не поддерживаются.
func (s *LogSink) SupportsBatch() bool {
	return false
}

// Send логирует один элемент.
func (s *LogSink) Send(ctx context.Context, item *domain.DataItem) error {
	s.logger.Log(ctx, s.level, "item delivered",
		"sink", s.id,
		"item_id", item.ID,
		"payload_bytes", len(item.Payload),
		"metadata", item.Metadata,
	)
	return nil
}

// SendBatch логирует элементы по одному.
func (s *LogSink) SendBatch(ctx context.Context, items []*domain.DataItem) error {
	for _, item := range items {
		if err := s.Send(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
