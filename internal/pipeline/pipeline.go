package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
)

// Pipeline — один загруженный пайплайн: источники, скомпилированный
// DAG шагов, планировщик и диспетчер выходов.
//
// Жизненный цикл: собирается реестром при Load, запускается Start,
// останавливается Stop с drain. Pipeline никогда не покидает реестр —
// наружу отдаются только снапшоты Info.
type Pipeline struct {
	spec         *domain.PipelineSpec
	graph        *engine.Graph
	sources      []domain.Source
	scheduler    *scheduler
	dispatcher   *dispatcher
	drainTimeout time.Duration
	logger       *slog.Logger

	mu           sync.Mutex
	status       domain.PipelineStatus
	sourceCancel context.CancelFunc
	execCancel   context.CancelFunc
	sourceGroup  *errgroup.Group
}

// Name возвращает имя пайплайна.
func (p *Pipeline) Name() string {
	return p.spec.Name
}

// Status возвращает текущий статус.
func (p *Pipeline) Status() domain.PipelineStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start запускает источники и цикл планировщика.
//
// Возвращает управление сразу: элементы обрабатываются в фоне.
// Ошибка источника после старта логируется и не роняет ни остальные
// источники, ни пайплайн — умерший источник перестаёт поставлять
// элементы, всё остальное продолжает работать.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == domain.PipelineStatusRunning {
		return ErrPipelineRunning
	}

	// Повторный запуск после Stop: очередь прошлого запуска закрыта,
	// планировщик пересоздаётся
	if p.status == domain.PipelineStatusStopped {
		p.scheduler = newScheduler(p.spec.Name, p.spec.Settings.BufferSize,
			p.spec.Settings.MaxConcurrent, p.scheduler.exec, p.dispatcher, p.logger)
	}

	// Контексты отвязаны от ctx вызывающего: start(name) возвращается
	// синхронно, пайплайн живёт до Stop
	sourceCtx, sourceCancel := context.WithCancel(context.Background())
	execCtx, execCancel := context.WithCancel(context.Background())
	p.sourceCancel = sourceCancel
	p.execCancel = execCancel

	// Планировщик: один цикл на пайплайн
	go p.scheduler.Run(execCtx)

	// Источники: по горутине на каждый
	p.sourceGroup = new(errgroup.Group)
	for _, src := range p.sources {
		src := src
		p.sourceGroup.Go(func() error {
			err := src.Start(sourceCtx, p.scheduler)
			if err != nil && sourceCtx.Err() == nil {
				p.logger.Error("source stopped with error",
					"source_id", src.ID(),
					"error", err,
				)
				return err
			}
			return nil
		})
	}

	p.status = domain.PipelineStatusRunning
	p.logger.Info("pipeline started",
		"sources", len(p.sources),
		"steps", p.graph.Size(),
		"max_concurrent", p.spec.Settings.MaxConcurrent,
		"buffer_size", p.spec.Settings.BufferSize,
	)

	return nil
}

// Stop останавливает пайплайн.
//
// Порядок:
//  1. Источникам сигнализируется остановка, ждём их завершения —
//     после этого в очередь никто не пишет
//  2. Очередь закрывается; планировщик дорабатывает её и in-flight
//     элементы в пределах drain-таймаута
//  3. По истечении таймаута in-flight обходы отменяются принудительно
//     и их элементы завершаются как failed-by-shutdown
//  4. Неполные батчи выходов доставляются финальным flush
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status != domain.PipelineStatusRunning {
		return ErrPipelineNotRunning
	}

	p.logger.Info("stopping pipeline")

	// 1. Останавливаем источники
	p.sourceCancel()
	for _, src := range p.sources {
		if err := src.Stop(); err != nil {
			p.logger.Warn("source stop failed",
				"source_id", src.ID(),
				"error", err,
			)
		}
	}
	if err := p.sourceGroup.Wait(); err != nil {
		p.logger.Warn("source finished with error", "error", err)
	}

	// 2. Закрываем очередь и ждём drain
	close(p.scheduler.queue)

	drained := true
	select {
	case <-p.scheduler.Done():
	case <-time.After(p.drainTimeout):
		drained = false
		p.logger.Warn("drain timeout exceeded, cancelling in-flight items",
			"in_flight", p.scheduler.InFlight(),
		)
		// 3. Принудительная отмена
		p.execCancel()
		<-p.scheduler.Done()
	}
	p.execCancel()

	// 4. Финальный flush неполных батчей
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p.dispatcher.Flush(flushCtx)

	p.status = domain.PipelineStatusStopped
	p.logger.Info("pipeline stopped", "drained", drained)

	return nil
}

// Info — снапшот состояния пайплайна для внешних наблюдателей.
type Info struct {
	Name        string                `json:"name"`
	Version     string                `json:"version,omitempty"`
	Description string                `json:"description,omitempty"`
	Status      domain.PipelineStatus `json:"status"`
	Sources     int                   `json:"sources"`
	Steps       int                   `json:"steps"`
	Sinks       int                   `json:"sinks"`
	QueueDepth  int                   `json:"queue_depth"`
	InFlight    int                   `json:"in_flight"`
}

// Info возвращает снапшот текущего состояния.
func (p *Pipeline) Info() Info {
	p.mu.Lock()
	status := p.status
	p.mu.Unlock()

	return Info{
		Name:        p.spec.Name,
		Version:     p.spec.Version,
		Description: p.spec.Description,
		Status:      status,
		Sources:     len(p.sources),
		Steps:       p.graph.Size(),
		Sinks:       len(p.dispatcher.outputs),
		QueueDepth:  p.scheduler.QueueDepth(),
		InFlight:    p.scheduler.InFlight(),
	}
}
