// Package telemetry содержит настройку структурного логирования
// (log/slog) и prometheus-метрики движка.
package telemetry
