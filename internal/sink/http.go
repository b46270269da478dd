package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// HTTPSink доставляет элементы HTTP-запросом.
//
// Одиночный элемент отправляется как JSON-объект, батч — как
// JSON-массив тем же запросом.
//
// Конфигурация (params):
//
//	{
//	    "url": "https://alerts.example.com/ingest",  // обязателен
//	    "method": "POST",                            // по умолчанию POST
//	    "headers": {"Authorization": "Bearer ..."},
//	    "timeout_sec": 30,
//	    "validate_ssl": true
//	}
type HTTPSink struct {
	id      string
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

// NewHTTPSink создаёт HTTPSink из декларации.
func NewHTTPSink(def *domain.SinkDef) (*HTTPSink, error) {
	url := params.String(def.Params, "url")
	if url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, def.ID)
	}

	timeout := 30 * time.Second
	if sec := params.Int(def.Params, "timeout_sec"); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}

	transport := http.DefaultTransport
	if !params.Bool(def.Params, "validate_ssl", true) {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &HTTPSink{
		id:      def.ID,
		url:     url,
		method:  params.StringOr(def.Params, "method", http.MethodPost),
		headers: params.StringMap(def.Params, "headers"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// ID возвращает идентификатор sink.
func (s *HTTPSink) ID() string {
	return s.id
}

// SupportsBatch сообщает, что sink умеет принимать батчи.
func (s *HTTPSink) SupportsBatch() bool {
	return true
}

// Send доставляет один элемент.
func (s *HTTPSink) Send(ctx context.Context, item *domain.DataItem) error {
	body, err := encodeItem(item)
	if err != nil {
		return err
	}
	return s.post(ctx, body)
}

// SendBatch доставляет батч одним запросом.
func (s *HTTPSink) SendBatch(ctx context.Context, items []*domain.DataItem) error {
	body, err := encodeBatch(items)
	if err != nil {
		return err
	}
	return s.post(ctx, body)
}

func (s *HTTPSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, s.method, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver to %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	// Тело ответа не нужно, но дочитываем для keep-alive
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("deliver to %s: status %d", s.url, resp.StatusCode)
	}
	return nil
}
