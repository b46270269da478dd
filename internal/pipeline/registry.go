package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/telemetry"
)

// Factories — конструкторы адаптеров по декларациям.
//
// Реестр не знает конкретных типов источников/шагов/sinks: выбор
// реализации по полю type делает фабрика (tagged-variant конструкция,
// без рефлексии в планировщике).
type Factories struct {
	Source func(def *domain.SourceDef) (domain.Source, error)
	Step   func(def *domain.StepDef) (domain.Step, error)
	Sink   func(def *domain.SinkDef) (domain.Sink, error)
}

// RegistryConfig — конфигурация реестра.
type RegistryConfig struct {
	// Factories — конструкторы адаптеров.
	Factories Factories

	// Merge — функция слияния входов узлов
	// (default: engine.MergeLeftToRight).
	Merge engine.MergeFunc

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// Registry — процессный реестр пайплайнов (имя → Pipeline).
//
// Единственный владелец всех Pipeline. Конкурентные чтения (статусы,
// список) идут параллельно под RLock; структурные изменения
// (load/unload) берут эксклюзивную блокировку. Ссылки на Pipeline
// наружу не отдаются — только снапшоты Info.
type Registry struct {
	factories Factories
	merge     engine.MergeFunc
	logger    *slog.Logger

	mu        sync.RWMutex
	pipelines map[string]*Pipeline
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(cfg RegistryConfig) *Registry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	merge := cfg.Merge
	if merge == nil {
		merge = engine.MergeLeftToRight
	}

	return &Registry{
		factories: cfg.Factories,
		merge:     merge,
		logger:    logger,
		pipelines: make(map[string]*Pipeline),
	}
}

// Load валидирует спецификацию, собирает пайплайн и регистрирует его.
//
// Любая ошибка (валидация, цикл в графе, неизвестный тип адаптера)
// оставляет реестр нетронутым: ничего не регистрируется частично.
func (r *Registry) Load(spec *domain.PipelineSpec) error {
	p, err := r.assemble(spec)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pipelines[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrPipelineExists, spec.Name)
	}

	r.pipelines[spec.Name] = p
	r.logger.Info("pipeline loaded",
		"pipeline", spec.Name,
		"version", spec.Version,
		"sources", len(p.sources),
		"steps", p.graph.Size(),
		"sinks", len(p.dispatcher.outputs),
	)

	return nil
}

// assemble строит Pipeline из спецификации без регистрации.
func (r *Registry) assemble(spec *domain.PipelineSpec) (*Pipeline, error) {
	if err := engine.Validate(spec); err != nil {
		return nil, err
	}

	spec.Settings.Normalize()

	graph, err := engine.BuildGraph(spec.Steps)
	if err != nil {
		return nil, err
	}

	// Источники (выключенные пропускаются)
	sources := make([]domain.Source, 0, len(spec.Sources))
	for i := range spec.Sources {
		def := &spec.Sources[i]
		if !def.Enabled {
			continue
		}
		src, err := r.factories.Source(def)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", def.ID, err)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEnabledSources, spec.Name)
	}

	// Шаги
	steps := make(map[string]domain.Step, len(spec.Steps))
	for i := range spec.Steps {
		def := &spec.Steps[i]
		step, err := r.factories.Step(def)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", def.ID, err)
		}
		steps[def.ID] = step
	}

	// Sinks
	sinks := make([]domain.Sink, 0, len(spec.Sinks))
	for i := range spec.Sinks {
		def := &spec.Sinks[i]
		sink, err := r.factories.Sink(def)
		if err != nil {
			return nil, fmt.Errorf("sink %s: %w", def.ID, err)
		}
		sinks = append(sinks, sink)
	}

	logger := telemetry.WithPipeline(r.logger, spec.Name)

	exec, err := engine.NewExecutor(engine.ExecutorConfig{
		Graph:    graph,
		Steps:    steps,
		Merge:    r.merge,
		Pipeline: spec.Name,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	disp, err := newDispatcher(spec.Name, sinks, spec.Sinks, logger)
	if err != nil {
		return nil, err
	}

	sched := newScheduler(spec.Name, spec.Settings.BufferSize,
		spec.Settings.MaxConcurrent, exec, disp, logger)

	return &Pipeline{
		spec:         spec,
		graph:        graph,
		sources:      sources,
		scheduler:    sched,
		dispatcher:   disp,
		drainTimeout: time.Duration(spec.Settings.DrainTimeoutSec) * time.Second,
		logger:       logger,
		status:       domain.PipelineStatusLoaded,
	}, nil
}

// Start запускает загруженный пайплайн.
func (r *Registry) Start(ctx context.Context, name string) error {
	r.mu.RLock()
	p, exists := r.pipelines[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrPipelineNotFound, name)
	}

	return p.Start(ctx)
}

// Stop останавливает запущенный пайплайн с drain.
func (r *Registry) Stop(name string) error {
	r.mu.RLock()
	p, exists := r.pipelines[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrPipelineNotFound, name)
	}

	return p.Stop()
}

// Unload удаляет остановленный пайплайн из реестра.
func (r *Registry) Unload(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.pipelines[name]
	if !exists {
		return fmt.Errorf("%w: %s", ErrPipelineNotFound, name)
	}
	if p.Status() == domain.PipelineStatusRunning {
		return fmt.Errorf("%w: %s", ErrPipelineRunning, name)
	}

	delete(r.pipelines, name)
	r.logger.Info("pipeline unloaded", "pipeline", name)
	return nil
}

// Info возвращает снапшот состояния пайплайна.
func (r *Registry) Info(name string) (Info, error) {
	r.mu.RLock()
	p, exists := r.pipelines[name]
	r.mu.RUnlock()

	if !exists {
		return Info{}, fmt.Errorf("%w: %s", ErrPipelineNotFound, name)
	}

	return p.Info(), nil
}

// List возвращает снапшоты всех пайплайнов, отсортированные по имени.
func (r *Registry) List() []Info {
	r.mu.RLock()
	infos := make([]Info, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		infos = append(infos, p.Info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// StopAll останавливает все запущенные пайплайны.
// Используется при shutdown процесса.
func (r *Registry) StopAll() {
	r.mu.RLock()
	running := make([]*Pipeline, 0, len(r.pipelines))
	for _, p := range r.pipelines {
		if p.Status() == domain.PipelineStatusRunning {
			running = append(running, p)
		}
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, p := range running {
		wg.Add(1)
		go func(p *Pipeline) {
			defer wg.Done()
			if err := p.Stop(); err != nil {
				r.logger.Warn("pipeline stop failed", "pipeline", p.Name(), "error", err)
			}
		}(p)
	}
	wg.Wait()
}
