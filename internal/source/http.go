package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

const (
	// Лимит на тело входящего запроса.
	maxRequestBody = 10 * 1024 * 1024 // 10 MB

	httpShutdownTimeout = 5 * time.Second

	// Предел ожидания места в очереди: обработчик не держит клиента
	// неограниченно, заполненная очередь отвечает 503.
	httpEnqueueWait = time.Second
)

// HTTPSource — источник, принимающий элементы по HTTP POST.
//
// Конфигурация (params):
//
//	{
//	    "addr": ":8080",          // адрес listen
//	    "path": "/ingest"         // путь endpoint
//	}
//
// Тело POST-запроса становится payload элемента. Метаданные:
// source, http_path, content_type. Заполненная очередь пайплайна
// держит обработчик не дольше enqueueWait, затем клиент получает
// 503 — backpressure доходит до HTTP-клиента явным отказом.
type HTTPSource struct {
	id          string
	addr        string
	path        string
	enqueueWait time.Duration
	logger      *slog.Logger

	srv *http.Server
}

// NewHTTPSource создаёт HTTPSource из декларации.
func NewHTTPSource(def *domain.SourceDef) (*HTTPSource, error) {
	addr := params.String(def.Params, "addr")
	if addr == "" {
		if port := params.Int(def.Params, "port"); port > 0 {
			addr = fmt.Sprintf(":%d", port)
		}
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: %s: addr or port is required", ErrInvalidConfig, def.ID)
	}

	return &HTTPSource{
		id:          def.ID,
		addr:        addr,
		path:        params.StringOr(def.Params, "path", "/ingest"),
		enqueueWait: httpEnqueueWait,
		logger:      slog.Default().With("source_id", def.ID),
	}, nil
}

// ID возвращает идентификатор источника.
func (s *HTTPSource) ID() string {
	return s.id
}

// handler собирает ingest-обработчик поверх очереди пайплайна.
func (s *HTTPSource) handler(ctx context.Context, out domain.Queue) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		item := domain.NewDataItem(body)
		item.Metadata["source"] = s.id
		item.Metadata["http_path"] = r.URL.Path
		if ct := r.Header.Get("Content-Type"); ct != "" {
			item.Metadata["content_type"] = ct
		}

		switch err := out.TryPush(r.Context(), item, s.enqueueWait); {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprintf(w, `{"id":%q}`, item.ID)
		case errors.Is(err, domain.ErrQueueFull):
			http.Error(w, "queue full", http.StatusServiceUnavailable)
		case ctx.Err() != nil:
			http.Error(w, "shutting down", http.StatusServiceUnavailable)
		default:
			// Клиент отсоединился — отвечать некому
		}
	})
	return mux
}

// Start запускает HTTP сервер и блокирует до его остановки.
func (s *HTTPSource) Start(ctx context.Context, out domain.Queue) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.handler(ctx, out)}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	s.logger.Info("http source listening", "addr", s.addr, "path", s.path)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http source %s: %w", s.id, err)
		}
		return nil
	case <-ctx.Done():
		// Shutdown ждёт активные обработчики — после возврата Start
		// никто не пишет в out
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.srv.Close()
		}
		<-errCh
		return nil
	}
}

// Stop — best-effort остановка. Основная остановка идёт через ctx.
func (s *HTTPSource) Stop() error {
	return nil
}
