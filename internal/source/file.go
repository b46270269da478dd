package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

const defaultPollInterval = 2 * time.Second

// FileSource — источник, наблюдающий за директорией.
//
// Конфигурация (params):
//
//	{
//	    "path": "/var/spool/conveyor",
//	    "pattern": "*.json",        // default "*"
//	    "poll_interval_ms": 2000    // default 2000
//	}
//
// Директория опрашивается по таймеру; каждый новый файл, подходящий
// под pattern, читается целиком и становится элементом. Метаданные:
// source, file_name, file_path. Уже обработанные файлы запоминаются
// по пути и времени модификации.
type FileSource struct {
	id       string
	dir      string
	pattern  string
	interval time.Duration
	logger   *slog.Logger

	seen map[string]time.Time
}

// NewFileSource создаёт FileSource из декларации.
func NewFileSource(def *domain.SourceDef) (*FileSource, error) {
	dir := params.String(def.Params, "path")
	if dir == "" {
		return nil, fmt.Errorf("%w: %s: path is required", ErrInvalidConfig, def.ID)
	}

	pattern := params.StringOr(def.Params, "pattern", "*")
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: %s: bad pattern %q: %v", ErrInvalidConfig, def.ID, pattern, err)
	}

	interval := defaultPollInterval
	if ms := params.Int(def.Params, "poll_interval_ms"); ms > 0 {
		interval = time.Duration(ms) * time.Millisecond
	}

	return &FileSource{
		id:       def.ID,
		dir:      dir,
		pattern:  pattern,
		interval: interval,
		logger:   slog.Default().With("source_id", def.ID),
		seen:     make(map[string]time.Time),
	}, nil
}

// ID возвращает идентификатор источника.
func (s *FileSource) ID() string {
	return s.id
}

// Start опрашивает директорию до отмены ctx.
func (s *FileSource) Start(ctx context.Context, out domain.Queue) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("file source %s: %w", s.id, err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Первый проход сразу при старте
	if !s.scan(ctx, out) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !s.scan(ctx, out) {
				return nil
			}
		}
	}
}

// scan читает новые файлы и отправляет их в очередь.
// Возвращает false, если ctx отменён во время отправки.
func (s *FileSource) scan(ctx context.Context, out domain.Queue) bool {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("read dir failed", "dir", s.dir, "error", err)
		return true
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if ok, _ := filepath.Match(s.pattern, name); !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(s.dir, name)
		if seenAt, ok := s.seen[path]; ok && !info.ModTime().After(seenAt) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("read file failed", "path", path, "error", err)
			continue
		}
		s.seen[path] = info.ModTime()

		item := domain.NewDataItem(data)
		item.Metadata["source"] = s.id
		item.Metadata["file_name"] = name
		item.Metadata["file_path"] = path

		if err := out.Push(ctx, item); err != nil {
			return false
		}
	}

	return true
}

// Stop — best-effort остановка. Основная остановка идёт через ctx.
func (s *FileSource) Stop() error {
	return nil
}
