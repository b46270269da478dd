package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
)

// fakeSource отдаёт заданные payload и ждёт остановки.
type fakeSource struct {
	id       string
	payloads []string
}

func (s *fakeSource) ID() string { return s.id }

func (s *fakeSource) Start(ctx context.Context, out domain.Queue) error {
	for _, p := range s.payloads {
		item := domain.NewDataItem([]byte(p))
		item.Metadata["source"] = s.id
		if err := out.Push(ctx, item); err != nil {
			return nil
		}
	}
	<-ctx.Done()
	return nil
}

func (s *fakeSource) Stop() error { return nil }

// echoStep возвращает элемент без изменений.
type echoStep struct {
	id string
}

func (s *echoStep) ID() string { return s.id }

func (s *echoStep) Process(_ context.Context, item *domain.DataItem) (*domain.DataItem, error) {
	return item, nil
}

func testSpec(name string) *domain.PipelineSpec {
	return &domain.PipelineSpec{
		Name: name,
		Sources: []domain.SourceDef{
			{ID: "src", Type: "fake", Enabled: true},
		},
		Steps: []domain.StepDef{
			{ID: "echo", Type: "fake"},
		},
		Sinks: []domain.SinkDef{
			{ID: "out", Type: "fake"},
		},
		Settings: domain.Settings{DrainTimeoutSec: 5},
	}
}

func newTestRegistry(source *fakeSource, sink *fakeSink) *Registry {
	return NewRegistry(RegistryConfig{
		Factories: Factories{
			Source: func(def *domain.SourceDef) (domain.Source, error) {
				return source, nil
			},
			Step: func(def *domain.StepDef) (domain.Step, error) {
				return &echoStep{id: def.ID}, nil
			},
			Sink: func(def *domain.SinkDef) (domain.Sink, error) {
				return sink, nil
			},
		},
		Logger: slog.Default(),
	})
}

func TestRegistry_Lifecycle(t *testing.T) {
	source := &fakeSource{id: "src", payloads: []string{"a", "b", "c"}}
	sink := &fakeSink{id: "out"}
	r := newTestRegistry(source, sink)

	spec := testSpec("p1")
	if err := r.Load(spec); err != nil {
		t.Fatalf("load: %v", err)
	}

	info, err := r.Info("p1")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Status != domain.PipelineStatusLoaded {
		t.Errorf("expected LOADED, got %s", info.Status)
	}

	if err := r.Start(context.Background(), "p1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Ждём доставки всех элементов
	deadline := time.After(2 * time.Second)
	for sink.singleCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected 3 deliveries, got %d", sink.singleCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := r.Stop("p1"); err != nil {
		t.Fatalf("stop: %v", err)
	}

	info, _ = r.Info("p1")
	if info.Status != domain.PipelineStatusStopped {
		t.Errorf("expected STOPPED after stop, got %s", info.Status)
	}

	if err := r.Unload("p1"); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if _, err := r.Info("p1"); !errors.Is(err, ErrPipelineNotFound) {
		t.Errorf("expected ErrPipelineNotFound after unload, got %v", err)
	}
}

func TestRegistry_LoadInvalidSpecRegistersNothing(t *testing.T) {
	r := newTestRegistry(&fakeSource{id: "src"}, &fakeSink{id: "out"})

	spec := testSpec("broken")
	spec.Steps = append(spec.Steps, domain.StepDef{
		ID: "b", Type: "fake", DependsOn: []string{"missing"},
	})

	if err := r.Load(spec); err == nil {
		t.Fatal("expected load error")
	}

	if _, err := r.Info("broken"); !errors.Is(err, ErrPipelineNotFound) {
		t.Errorf("invalid spec should not be registered, got %v", err)
	}
	if got := len(r.List()); got != 0 {
		t.Errorf("registry should stay empty, got %d pipelines", got)
	}
}

func TestRegistry_LoadDuplicateName(t *testing.T) {
	r := newTestRegistry(&fakeSource{id: "src"}, &fakeSink{id: "out"})

	if err := r.Load(testSpec("dup")); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := r.Load(testSpec("dup")); !errors.Is(err, ErrPipelineExists) {
		t.Fatalf("expected ErrPipelineExists, got %v", err)
	}
}

func TestRegistry_AllSourcesDisabled(t *testing.T) {
	r := newTestRegistry(&fakeSource{id: "src"}, &fakeSink{id: "out"})

	spec := testSpec("disabled")
	spec.Sources[0].Enabled = false

	if err := r.Load(spec); !errors.Is(err, ErrNoEnabledSources) {
		t.Fatalf("expected ErrNoEnabledSources, got %v", err)
	}
}

func TestRegistry_UnloadRunningRefused(t *testing.T) {
	source := &fakeSource{id: "src"}
	sink := &fakeSink{id: "out"}
	r := newTestRegistry(source, sink)

	if err := r.Load(testSpec("run")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := r.Start(context.Background(), "run"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer r.StopAll()

	if err := r.Unload("run"); !errors.Is(err, ErrPipelineRunning) {
		t.Fatalf("expected ErrPipelineRunning, got %v", err)
	}
}

func TestRegistry_StartStopStart(t *testing.T) {
	source := &fakeSource{id: "src", payloads: []string{"x"}}
	sink := &fakeSink{id: "out"}
	r := newTestRegistry(source, sink)

	if err := r.Load(testSpec("cycle")); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := r.Start(context.Background(), "cycle"); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := r.Stop("cycle"); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Пайплайн можно перезапустить после остановки
	if err := r.Start(context.Background(), "cycle"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := r.Stop("cycle"); err != nil {
		t.Fatalf("second stop: %v", err)
	}

	deliveries := sink.singleCount()
	if deliveries < 1 {
		t.Errorf("expected at least one delivery across restarts, got %d", deliveries)
	}
}

func TestRegistry_StopNotRunning(t *testing.T) {
	r := newTestRegistry(&fakeSource{id: "src"}, &fakeSink{id: "out"})

	if err := r.Load(testSpec("idle")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := r.Stop("idle"); !errors.Is(err, ErrPipelineNotRunning) {
		t.Fatalf("expected ErrPipelineNotRunning, got %v", err)
	}
	if err := r.Stop("ghost"); !errors.Is(err, ErrPipelineNotFound) {
		t.Fatalf("expected ErrPipelineNotFound, got %v", err)
	}
}
