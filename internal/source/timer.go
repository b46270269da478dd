package source

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/params"
)

// cronParser — парсер cron-выражений (стандартные 5 полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// TimerSource — источник, порождающий элементы по расписанию.
//
// Конфигурация (params):
//
//	{
//	    "interval_ms": 5000,       // фиксированный интервал
//	    // или
//	    "cron": "*/5 * * * *",     // cron-выражение
//	    "payload": "tick"          // опциональный payload (default пустой)
//	}
//
// Метаданные: source, fired_at (RFC3339), tick (порядковый номер).
type TimerSource struct {
	id       string
	interval time.Duration
	schedule cron.Schedule // nil для интервального режима
	payload  []byte
	logger   *slog.Logger
}

// NewTimerSource создаёт TimerSource из декларации.
func NewTimerSource(def *domain.SourceDef) (*TimerSource, error) {
	src := &TimerSource{
		id:      def.ID,
		payload: []byte(params.String(def.Params, "payload")),
		logger:  slog.Default().With("source_id", def.ID),
	}

	if expr := params.String(def.Params, "cron"); expr != "" {
		schedule, err := cronParser.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: parse cron expression %q: %v",
				ErrInvalidConfig, def.ID, expr, err)
		}
		src.schedule = schedule
		return src, nil
	}

	ms := params.Int(def.Params, "interval_ms")
	if ms <= 0 {
		return nil, fmt.Errorf("%w: %s: interval_ms or cron is required", ErrInvalidConfig, def.ID)
	}
	src.interval = time.Duration(ms) * time.Millisecond

	return src, nil
}

// ID возвращает идентификатор источника.
func (s *TimerSource) ID() string {
	return s.id
}

// Start порождает элементы по расписанию до отмены ctx.
func (s *TimerSource) Start(ctx context.Context, out domain.Queue) error {
	tick := 0

	for {
		wait := s.nextDelay(time.Now())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case firedAt := <-timer.C:
			tick++

			item := domain.NewDataItem(s.payload)
			item.Metadata["source"] = s.id
			item.Metadata["fired_at"] = firedAt.UTC().Format(time.RFC3339)
			item.Metadata["tick"] = strconv.Itoa(tick)

			if err := out.Push(ctx, item); err != nil {
				return nil
			}
		}
	}
}

// nextDelay вычисляет задержку до следующего срабатывания.
func (s *TimerSource) nextDelay(from time.Time) time.Duration {
	if s.schedule != nil {
		return s.schedule.Next(from).Sub(from)
	}
	return s.interval
}

// Stop — best-effort остановка. Основная остановка идёт через ctx.
func (s *TimerSource) Stop() error {
	return nil
}
