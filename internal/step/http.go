package step

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// Лимит на тело ответа.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// HTTPStep — шаг, отправляющий payload во внешний HTTP API.
//
// Конфигурация (params):
//
//	{
//	    "url": "https://api.example.com/detect",
//	    "method": "POST",              // default POST
//	    "headers": {
//	        "Content-Type": "application/json"
//	    },
//	    "validate_ssl": true           // default true
//	}
//
// Payload элемента уходит телом запроса; тело ответа становится
// новым payload. Метаданные: processor, http_status. Ответ с кодом
// >= 400 — ошибка (до retry политики движка). Таймаут задаётся
// движком через ctx.
type HTTPStep struct {
	id      string
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

// NewHTTPStep создаёт HTTPStep из декларации.
func NewHTTPStep(def *domain.StepDef) (*HTTPStep, error) {
	url := params.String(def.Params, "url")
	if url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, def.ID)
	}

	method := strings.ToUpper(params.StringOr(def.Params, "method", http.MethodPost))

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !params.Bool(def.Params, "validate_ssl", true),
		},
	}

	return &HTTPStep{
		id:      def.ID,
		url:     url,
		method:  method,
		headers: params.StringMap(def.Params, "headers"),
		client:  &http.Client{Transport: transport},
	}, nil
}

// ID возвращает идентификатор шага.
func (s *HTTPStep) ID() string {
	return s.id
}

// Process выполняет HTTP запрос.
func (s *HTTPStep) Process(ctx context.Context, item *domain.DataItem) (*domain.DataItem, error) {
	req, err := http.NewRequestWithContext(ctx, s.method, s.url, bytes.NewReader(item.Payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out := item.WithPayload(body)
	out.Metadata["processor"] = s.id
	out.Metadata["http_status"] = strconv.Itoa(resp.StatusCode)
	return out, nil
}
