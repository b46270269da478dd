package step

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
)

func TestNew_UnknownType(t *testing.T) {
	_, err := New(&domain.StepDef{ID: "s", Type: "nope"})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestNew_AllTypes(t *testing.T) {
	defs := []domain.StepDef{
		{ID: "a", Type: TypeExec, Params: map[string]any{"command": "cat"}},
		{ID: "b", Type: TypeHTTP, Params: map[string]any{"url": "http://localhost/x"}},
		{ID: "c", Type: TypeExtract, Params: map[string]any{"fields": map[string]any{"k": "p"}}},
		{ID: "d", Type: TypeSet, Params: map[string]any{"metadata": map[string]any{"k": "v"}}},
		{ID: "e", Type: TypeDelay, Params: map[string]any{"duration_ms": float64(1)}},
	}

	for i := range defs {
		s, err := New(&defs[i])
		if err != nil {
			t.Errorf("%s: unexpected error: %v", defs[i].Type, err)
			continue
		}
		if s.ID() != defs[i].ID {
			t.Errorf("%s: expected ID %s, got %s", defs[i].Type, defs[i].ID, s.ID())
		}
	}
}

// --- exec ---

func TestExecStep_StdoutBecomesPayload(t *testing.T) {
	s, err := NewExecStep(&domain.StepDef{
		ID:   "upper",
		Type: TypeExec,
		Params: map[string]any{
			"command": "tr",
			"args":    []any{"a-z", "A-Z"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := domain.NewDataItem([]byte("hello"))
	out, err := s.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if string(out.Payload) != "HELLO" {
		t.Errorf("expected HELLO, got %q", out.Payload)
	}
	if out.Metadata["processor"] != "upper" {
		t.Errorf("expected processor metadata, got %v", out.Metadata)
	}
	// Исходный элемент не модифицируется
	if string(item.Payload) != "hello" {
		t.Errorf("input item mutated: %q", item.Payload)
	}
	if out.ID != item.ID {
		t.Error("item ID should survive the step")
	}
}

func TestExecStep_Environment(t *testing.T) {
	s, err := NewExecStep(&domain.StepDef{
		ID:          "env",
		Type:        TypeExec,
		Params:      map[string]any{"command": "sh", "args": []any{"-c", "printf %s \"$GREETING\""}},
		Environment: map[string]string{"GREETING": "privet"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := s.Process(context.Background(), domain.NewDataItem(nil))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if string(out.Payload) != "privet" {
		t.Errorf("expected env var in output, got %q", out.Payload)
	}
}

func TestExecStep_NonZeroExit(t *testing.T) {
	s, err := NewExecStep(&domain.StepDef{
		ID:     "fail",
		Type:   TypeExec,
		Params: map[string]any{"command": "sh", "args": []any{"-c", "echo boom >&2; exit 3"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = s.Process(context.Background(), domain.NewDataItem(nil))
	if !errors.Is(err, ErrExecFailed) {
		t.Fatalf("expected ErrExecFailed, got %v", err)
	}
	// Хвост stderr попадает в деталь ошибки
	if got := err.Error(); !strings.Contains(got, "boom") {
		t.Errorf("error should carry stderr tail: %s", got)
	}
}

func TestExecStep_CancelKillsProcess(t *testing.T) {
	s, err := NewExecStep(&domain.StepDef{
		ID:     "sleep",
		Type:   TypeExec,
		Params: map[string]any{"command": "sleep", "args": []any{"10"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	started := time.Now()
	_, err = s.Process(ctx, domain.NewDataItem(nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if time.Since(started) > 2*time.Second {
		t.Error("process was not killed on cancel")
	}
}

func TestExecStep_MissingCommand(t *testing.T) {
	_, err := NewExecStep(&domain.StepDef{ID: "x", Type: TypeExec})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

// --- extract ---

func TestExtractStep_NestedFields(t *testing.T) {
	s, err := NewExtractStep(&domain.StepDef{
		ID:   "score",
		Type: TypeExtract,
		Params: map[string]any{
			"fields": map[string]any{
				"threat_level": "detection.score",
				"label":        "detection.class",
				"missing":      "detection.absent.path",
			},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := []byte(`{"detection": {"score": 0.93, "class": "intruder"}}`)
	out, err := s.Process(context.Background(), domain.NewDataItem(payload))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if out.Metadata["threat_level"] != "0.93" {
		t.Errorf("expected threat_level 0.93, got %q", out.Metadata["threat_level"])
	}
	if out.Metadata["label"] != "intruder" {
		t.Errorf("expected label intruder, got %q", out.Metadata["label"])
	}
	// Отсутствующий путь пропускается без ошибки
	if _, ok := out.Metadata["missing"]; ok {
		t.Error("missing path should not produce metadata")
	}
}

func TestExtractStep_InvalidJSON(t *testing.T) {
	s, err := NewExtractStep(&domain.StepDef{
		ID:     "x",
		Type:   TypeExtract,
		Params: map[string]any{"fields": map[string]any{"k": "a.b"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = s.Process(context.Background(), domain.NewDataItem([]byte("not json")))
	if err == nil {
		t.Fatal("expected error for invalid JSON payload")
	}
}

// --- set ---

func TestSetStep(t *testing.T) {
	s, err := NewSetStep(&domain.StepDef{
		ID:     "tag",
		Type:   TypeSet,
		Params: map[string]any{"metadata": map[string]any{"stage": "enriched"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := domain.NewDataItem([]byte("x"))
	out, err := s.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if out.Metadata["stage"] != "enriched" {
		t.Errorf("expected stage metadata, got %v", out.Metadata)
	}
	if len(item.Metadata) != 0 {
		t.Error("input item should stay untouched")
	}
}

// --- delay ---

func TestDelayStep(t *testing.T) {
	s, err := NewDelayStep(&domain.StepDef{
		ID:     "pause",
		Type:   TypeDelay,
		Params: map[string]any{"duration_ms": float64(20)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	started := time.Now()
	out, err := s.Process(context.Background(), domain.NewDataItem([]byte("x")))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if elapsed := time.Since(started); elapsed < 20*time.Millisecond {
		t.Errorf("delay too short: %v", elapsed)
	}
	if string(out.Payload) != "x" {
		t.Error("payload should pass through unchanged")
	}
}

func TestDelayStep_Cancel(t *testing.T) {
	s, err := NewDelayStep(&domain.StepDef{
		ID:     "pause",
		Type:   TypeDelay,
		Params: map[string]any{"duration_sec": float64(10)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	_, err = s.Process(ctx, domain.NewDataItem(nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(started) > 2*time.Second {
		t.Error("delay did not react to cancel")
	}
}

func TestDelayStep_MissingDuration(t *testing.T) {
	_, err := NewDelayStep(&domain.StepDef{ID: "x", Type: TypeDelay})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
