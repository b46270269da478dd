package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
)

// chanQueue — очередь приёма поверх канала для тестов источников.
type chanQueue struct {
	ch chan *domain.DataItem
}

func newChanQueue(capacity int) *chanQueue {
	return &chanQueue{ch: make(chan *domain.DataItem, capacity)}
}

func (q *chanQueue) Push(ctx context.Context, item *domain.DataItem) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *chanQueue) TryPush(ctx context.Context, item *domain.DataItem, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case q.ch <- item:
		return nil
	case <-timer.C:
		return domain.ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(&domain.SourceDef{ID: "s", Type: "nope"})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

// --- timer ---

func TestTimerSource_IntervalTicks(t *testing.T) {
	src, err := NewTimerSource(&domain.SourceDef{
		ID:     "tick",
		Type:   TypeTimer,
		Params: map[string]any{"interval_ms": float64(10), "payload": "ping"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := newChanQueue(16)

	done := make(chan error, 1)
	go func() {
		done <- src.Start(ctx, out)
	}()

	// Собираем три тика
	items := make([]*domain.DataItem, 0, 3)
	deadline := time.After(2 * time.Second)
	for len(items) < 3 {
		select {
		case item := <-out.ch:
			items = append(items, item)
		case <-deadline:
			t.Fatalf("expected 3 ticks, got %d", len(items))
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start returned error: %v", err)
	}

	first := items[0]
	if string(first.Payload) != "ping" {
		t.Errorf("expected payload ping, got %q", first.Payload)
	}
	if first.Metadata["source"] != "tick" {
		t.Errorf("expected source metadata, got %v", first.Metadata)
	}
	if first.Metadata["tick"] != "1" || items[2].Metadata["tick"] != "3" {
		t.Errorf("tick counter should increment: %v, %v",
			first.Metadata["tick"], items[2].Metadata["tick"])
	}
	if first.Metadata["fired_at"] == "" {
		t.Error("fired_at metadata should be set")
	}
}

func TestTimerSource_CronExpression(t *testing.T) {
	src, err := NewTimerSource(&domain.SourceDef{
		ID:     "cron",
		Type:   TypeTimer,
		Params: map[string]any{"cron": "*/5 * * * *"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Следующее срабатывание — не дальше пяти минут
	delay := src.nextDelay(time.Now())
	if delay <= 0 || delay > 5*time.Minute {
		t.Errorf("unexpected cron delay: %v", delay)
	}
}

func TestTimerSource_BadConfig(t *testing.T) {
	if _, err := NewTimerSource(&domain.SourceDef{ID: "x", Type: TypeTimer}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without interval or cron, got %v", err)
	}

	_, err := NewTimerSource(&domain.SourceDef{
		ID: "x", Type: TypeTimer,
		Params: map[string]any{"cron": "not a cron"},
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for bad cron, got %v", err)
	}
}

// --- file ---

func TestFileSource_PicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()

	src, err := NewFileSource(&domain.SourceDef{
		ID:   "watch",
		Type: TypeFile,
		Params: map[string]any{
			"path":             dir,
			"pattern":          "*.json",
			"poll_interval_ms": float64(10),
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "event.json"), []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	// Не подходит под pattern
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := newChanQueue(16)

	done := make(chan error, 1)
	go func() {
		done <- src.Start(ctx, out)
	}()

	select {
	case item := <-out.ch:
		if string(item.Payload) != `{"a":1}` {
			t.Errorf("unexpected payload: %q", item.Payload)
		}
		if item.Metadata["file_name"] != "event.json" {
			t.Errorf("expected file_name metadata, got %v", item.Metadata)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("file was not picked up")
	}

	// Файл вне pattern не должен прийти
	select {
	case item := <-out.ch:
		t.Fatalf("unexpected item: %v", item.Metadata)
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("start returned error: %v", err)
	}
}

func TestFileSource_MissingDir(t *testing.T) {
	src, err := NewFileSource(&domain.SourceDef{
		ID:     "watch",
		Type:   TypeFile,
		Params: map[string]any{"path": "/nonexistent/conveyor-test"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := src.Start(context.Background(), newChanQueue(1)); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

// --- http ---

func TestHTTPSource_Config(t *testing.T) {
	if _, err := NewHTTPSource(&domain.SourceDef{ID: "x", Type: TypeHTTP}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without addr, got %v", err)
	}

	src, err := NewHTTPSource(&domain.SourceDef{
		ID: "in", Type: TypeHTTP,
		Params: map[string]any{"port": float64(9100)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.addr != ":9100" {
		t.Errorf("expected addr :9100, got %s", src.addr)
	}
	if src.path != "/ingest" {
		t.Errorf("expected default path /ingest, got %s", src.path)
	}
}

func TestHTTPSource_IngestAccepted(t *testing.T) {
	src, err := NewHTTPSource(&domain.SourceDef{
		ID: "in", Type: TypeHTTP,
		Params: map[string]any{"addr": ":0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := newChanQueue(4)
	srv := httptest.NewServer(src.handler(context.Background(), out))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/ingest", "application/json", strings.NewReader(`{"x":1}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	select {
	case item := <-out.ch:
		if string(item.Payload) != `{"x":1}` {
			t.Errorf("unexpected payload: %q", item.Payload)
		}
		if item.Metadata["source"] != "in" || item.Metadata["content_type"] != "application/json" {
			t.Errorf("unexpected metadata: %v", item.Metadata)
		}
	case <-time.After(time.Second):
		t.Fatal("item did not reach the queue")
	}
}

func TestHTTPSource_IngestQueueFull(t *testing.T) {
	src, err := NewHTTPSource(&domain.SourceDef{
		ID: "in", Type: TypeHTTP,
		Params: map[string]any{"addr": ":0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src.enqueueWait = 20 * time.Millisecond

	// Очередь на один элемент, никто не читает
	out := newChanQueue(1)
	srv := httptest.NewServer(src.handler(context.Background(), out))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/ingest", "application/json", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("post 1: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	// Место кончилось — клиент получает отказ вместо вечного ожидания
	resp, err = http.Post(srv.URL+"/ingest", "application/json", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("post 2: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on a full queue, got %d", resp.StatusCode)
	}
}
