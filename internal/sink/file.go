package sink

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// FileSink дописывает элементы в файл в формате JSON Lines.
//
// Конфигурация (params):
//
//	{"path": "/var/log/conveyor/alerts.jsonl"}
type FileSink struct {
	id   string
	path string

	mu   sync.Mutex
	file *os.File
}

// NewFileSink создаёт FileSink из декларации.
func NewFileSink(def *domain.SinkDef) (*FileSink, error) {
	path := params.String(def.Params, "path")
	if path == "" {
		return nil, fmt.Errorf("%w: %s: path is required", ErrInvalidConfig, def.ID)
	}

	return &FileSink{
		id:   def.ID,
		path: path,
	}, nil
}

// ID возвращает идентификатор sink.
func (s *FileSink) ID() string {
	return s.id
}

// SupportsBatch сообщает, что sink умеет принимать батчи.
func (s *FileSink) SupportsBatch() bool {
	return true
}

// Send дописывает один элемент строкой JSON.
func (s *FileSink) Send(ctx context.Context, item *domain.DataItem) error {
	return s.SendBatch(ctx, []*domain.DataItem{item})
}

// SendBatch дописывает батч, по строке на элемент.
func (s *FileSink) SendBatch(ctx context.Context, items []*domain.DataItem) error {
	lines := make([][]byte, 0, len(items))
	for _, item := range items {
		body, err := encodeItem(item)
		if err != nil {
			return err
		}
		lines = append(lines, body)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.path, err)
		}
		s.file = f
	}

	for _, line := range lines {
		if _, err := s.file.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write %s: %w", s.path, err)
		}
	}
	return nil
}

// Close закрывает файл. Последующие Send откроют его заново.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
