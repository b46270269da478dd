package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shaiso/conveyor/internal/domain"
)

// Стратегии backoff.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Значения по умолчанию для политики retry.
const (
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 30 * time.Second
)

// invokeStep вызывает шаг с таймаутом и повторными попытками.
//
// Контракт:
//   - один вызов шага ограничен def.TimeoutMs (0 — без таймаута);
//     превышение — ошибка ErrStepTimeout, работа шага отменяется
//     через context
//   - после неудачи делается до def.RetryCount дополнительных
//     попыток с задержкой по def.Retry (по умолчанию экспоненциальный
//     backoff с full jitter)
//   - отмена родительского ctx (shutdown) прекращает попытки сразу
//     и даёт ErrStepCancelled
//
// После исчерпания попыток возвращается *StepError с деталью
// последней ошибки.
func invokeStep(ctx context.Context, step domain.Step, def *domain.StepDef, item *domain.DataItem, logger *slog.Logger) (*domain.DataItem, error) {
	maxAttempts := def.RetryCount + 1
	started := time.Now()

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := invokeOnce(ctx, step, def, item)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// Shutdown — повторять бессмысленно
		if ctx.Err() != nil {
			lastErr = ErrStepCancelled
			break
		}

		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(attempt, def.Retry)

		logger.Debug("retrying step",
			"step_id", def.ID,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)

		// Ждём с учётом context
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, &StepError{
				StepID:   def.ID,
				Attempts: attempt,
				Elapsed:  time.Since(started),
				Err:      ErrStepCancelled,
			}
		}
	}

	return nil, &StepError{
		StepID:   def.ID,
		Attempts: maxAttempts,
		Elapsed:  time.Since(started),
		Err:      lastErr,
	}
}

// invokeOnce выполняет одну попытку вызова шага.
//
// Шаг запускается в отдельной горутине: даже если реализация
// игнорирует ctx, таймаут фиксируется здесь, а работа шага
// отменяется через context.
func invokeOnce(ctx context.Context, step domain.Step, def *domain.StepDef, item *domain.DataItem) (*domain.DataItem, error) {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if def.TimeoutMs > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, time.Duration(def.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	type stepResult struct {
		item *domain.DataItem
		err  error
	}

	done := make(chan stepResult, 1)
	go func() {
		out, err := step.Process(attemptCtx, item)
		done <- stepResult{item: out, err: err}
	}()

	select {
	case res := <-done:
		return res.item, res.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ErrStepCancelled
		}
		return nil, ErrStepTimeout
	}
}

// backoffDelay вычисляет задержку перед следующей попыткой.
//
// По умолчанию: экспоненциальный backoff от 100ms с удвоением на
// каждую попытку, потолком 30s и full jitter (равномерный случайный
// сдвиг в [0, delay]).
func backoffDelay(attempt int, policy *domain.RetryPolicy) time.Duration {
	initial := defaultInitialDelay
	maxDelay := defaultMaxDelay
	strategy := BackoffExponential
	jitter := true

	if policy != nil {
		if policy.InitialDelayMs > 0 {
			initial = time.Duration(policy.InitialDelayMs) * time.Millisecond
		}
		if policy.MaxDelayMs > 0 {
			maxDelay = time.Duration(policy.MaxDelayMs) * time.Millisecond
		}
		if policy.Backoff != "" {
			strategy = policy.Backoff
		}
		if policy.Jitter != nil {
			jitter = *policy.Jitter
		}
	}

	delay := initial
	if strategy == BackoffExponential {
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay >= maxDelay {
				delay = maxDelay
				break
			}
		}
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	if jitter && delay > 0 {
		delay = time.Duration(rand.Int63n(int64(delay) + 1))
	}

	return delay
}
