package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/telemetry"
)

// scheduler владеет очередью приёма пайплайна и ограничивает число
// одновременно обрабатываемых элементов.
//
// Источники пишут в queue; заполненная очередь блокирует отправку —
// backpressure распространяется на источник вместо потери данных.
// Каждый извлечённый элемент обрабатывается отдельной горутиной
// Item Executor, но не более maxConcurrent одновременно.
type scheduler struct {
	pipeline      string
	queue         chan *domain.DataItem
	exec          *engine.Executor
	dispatcher    *dispatcher
	maxConcurrent int
	logger        *slog.Logger

	inFlight atomic.Int64

	// done закрывается, когда очередь исчерпана и все in-flight
	// элементы завершены.
	done chan struct{}
}

// newScheduler создаёт scheduler с очередью ёмкостью bufferSize.
func newScheduler(pipeline string, bufferSize, maxConcurrent int, exec *engine.Executor, disp *dispatcher, logger *slog.Logger) *scheduler {
	return &scheduler{
		pipeline:      pipeline,
		queue:         make(chan *domain.DataItem, bufferSize),
		exec:          exec,
		dispatcher:    disp,
		maxConcurrent: maxConcurrent,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

// Источники пишут в очередь через контракт domain.Queue.
var _ domain.Queue = (*scheduler)(nil)

// Push кладёт элемент в очередь, блокируясь при заполнении.
// Возвращает ошибку ctx, если ожидание отменено.
func (s *scheduler) Push(ctx context.Context, item *domain.DataItem) error {
	select {
	case s.queue <- item:
		telemetry.QueueDepth.WithLabelValues(s.pipeline).Set(float64(len(s.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush — вариант с ограниченным ожиданием для адаптеров, которым
// нельзя блокироваться неограниченно. По истечении wait возвращает
// ErrQueueFull.
func (s *scheduler) TryPush(ctx context.Context, item *domain.DataItem, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s.queue <- item:
		telemetry.QueueDepth.WithLabelValues(s.pipeline).Set(float64(len(s.queue)))
		return nil
	case <-timer.C:
		return domain.ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run — основной цикл планировщика.
//
// Читает очередь до её закрытия, запуская не более maxConcurrent
// конкурентных обходов DAG. execCtx отменяет in-flight обходы при
// принудительной остановке (drain timeout истёк).
//
// По завершении закрывает done.
func (s *scheduler) Run(execCtx context.Context) {
	slots := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for {
		// Слот берём до чтения очереди: иначе извлечённый элемент
		// ждал бы слот вне очереди и ёмкость приёма была бы
		// bufferSize+1
		slots <- struct{}{}

		item, ok := <-s.queue
		if !ok {
			<-slots
			break
		}
		telemetry.QueueDepth.WithLabelValues(s.pipeline).Set(float64(len(s.queue)))

		wg.Add(1)
		s.inFlight.Add(1)
		telemetry.InFlight.WithLabelValues(s.pipeline).Inc()

		go func(item *domain.DataItem) {
			defer func() {
				s.inFlight.Add(-1)
				telemetry.InFlight.WithLabelValues(s.pipeline).Dec()
				<-slots
				wg.Done()
			}()

			s.process(execCtx, item)
		}(item)
	}

	wg.Wait()
	close(s.done)
}

// process выполняет один обход DAG и отдаёт результат диспетчеру.
func (s *scheduler) process(ctx context.Context, item *domain.DataItem) {
	result := s.exec.Run(ctx, item)

	if result.Failed {
		telemetry.ItemsTotal.WithLabelValues(s.pipeline, "failed").Inc()
		telemetry.WithItemID(s.logger, item.ID.String()).Warn(
			"item failed", "error", result.Err)
		return
	}

	telemetry.ItemsTotal.WithLabelValues(s.pipeline, "succeeded").Inc()
	s.dispatcher.Dispatch(ctx, result.Item)
}

// Done возвращает канал, закрываемый после полного завершения.
func (s *scheduler) Done() <-chan struct{} {
	return s.done
}

// QueueDepth возвращает текущую глубину очереди.
func (s *scheduler) QueueDepth() int {
	return len(s.queue)
}

// InFlight возвращает количество элементов в обработке.
func (s *scheduler) InFlight() int {
	return int(s.inFlight.Load())
}
