package domain

import "encoding/json"

// PipelineSpec — декларативное описание пайплайна.
//
// Это "программа" для Conveyor: источники событий, граф шагов
// обработки и выходы с условиями доставки.
type PipelineSpec struct {
	// Name — уникальное имя пайплайна.
	Name string `json:"name"`

	// Version — версия конфигурации (например, "1.0.0").
	Version string `json:"version,omitempty"`

	// Description — описание назначения пайплайна.
	Description string `json:"description,omitempty"`

	// Sources — источники событий.
	Sources []SourceDef `json:"sources"`

	// Steps — шаги обработки с зависимостями (образуют DAG).
	Steps []StepDef `json:"steps"`

	// Sinks — выходы с условиями и батчингом.
	Sinks []SinkDef `json:"sinks"`

	// Settings — настройки выполнения.
	Settings Settings `json:"settings"`
}

// SourceDef — определение источника.
type SourceDef struct {
	// ID — уникальный идентификатор источника в рамках пайплайна.
	ID string `json:"id"`

	// Type — тип источника: "http", "timer", "mqtt", "amqp", "file".
	Type string `json:"type"`

	// Enabled — флаг активности. Выключенные источники не запускаются.
	// По умолчанию true (см. UnmarshalJSON ниже).
	Enabled bool `json:"enabled"`

	// Params — конфигурация, специфичная для типа источника.
	Params map[string]any `json:"params,omitempty"`
}

// UnmarshalJSON декодирует SourceDef, считая источник включённым,
// если поле enabled не указано явно.
func (d *SourceDef) UnmarshalJSON(data []byte) error {
	type alias SourceDef
	tmp := alias{Enabled: true}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*d = SourceDef(tmp)
	return nil
}

// StepDef — определение шага обработки.
type StepDef struct {
	// ID — уникальный идентификатор шага в рамках пайплайна.
	// Используется в depends_on.
	ID string `json:"id"`

	// Type — тип шага: "exec", "http", "extract", "set", "delay".
	Type string `json:"type"`

	// Params — конфигурация, специфичная для типа шага.
	Params map[string]any `json:"params,omitempty"`

	// Parallel — информационный флаг. Фактическая конкурентность
	// определяется только зависимостями, не этим флагом.
	Parallel bool `json:"parallel,omitempty"`

	// TimeoutMs — таймаут одного вызова шага в миллисекундах.
	// 0 — без таймаута.
	TimeoutMs int `json:"timeout_ms,omitempty"`

	// RetryCount — количество дополнительных попыток после первой
	// неудачи. 0 — без повторов.
	RetryCount int `json:"retry_count,omitempty"`

	// DependsOn — список ID шагов, от которых зависит этот шаг.
	// Порядок значим: payload при merge берётся из первой зависимости.
	DependsOn []string `json:"depends_on,omitempty"`

	// Environment — переменные окружения (для exec шагов).
	Environment map[string]string `json:"environment,omitempty"`

	// Retry — политика задержек между попытками.
	// nil — экспоненциальный backoff с jitter по умолчанию.
	Retry *RetryPolicy `json:"retry,omitempty"`
}

// RetryPolicy — политика задержек между повторными попытками.
type RetryPolicy struct {
	// Backoff — стратегия: "fixed" или "exponential" (по умолчанию).
	Backoff string `json:"backoff,omitempty"`

	// InitialDelayMs — начальная задержка в миллисекундах (default: 100).
	InitialDelayMs int `json:"initial_delay_ms,omitempty"`

	// MaxDelayMs — максимальная задержка в миллисекундах (default: 30000).
	MaxDelayMs int `json:"max_delay_ms,omitempty"`

	// Jitter — применять ли full jitter к задержке.
	// nil трактуется как true.
	Jitter *bool `json:"jitter,omitempty"`
}

// SinkDef — определение выхода.
type SinkDef struct {
	// ID — уникальный идентификатор sink в рамках пайплайна.
	ID string `json:"id"`

	// Type — тип sink: "http", "file", "mqtt", "amqp", "postgres", "log".
	Type string `json:"type"`

	// Params — конфигурация, специфичная для типа sink.
	Params map[string]any `json:"params,omitempty"`

	// Condition — условие доставки вида "<field> <op> <value>",
	// например "threat_level > 0.8". Пустое условие — доставлять всё.
	Condition string `json:"condition,omitempty"`

	// BatchSize — размер батча. 0 или 1 — доставка поэлементно.
	BatchSize int `json:"batch_size,omitempty"`
}

// Settings — настройки выполнения пайплайна.
type Settings struct {
	// MaxConcurrent — максимум элементов, обрабатываемых одновременно.
	MaxConcurrent int `json:"max_concurrent,omitempty"`

	// BufferSize — ёмкость очереди приёма. При заполнении push
	// блокирует источник (backpressure).
	BufferSize int `json:"buffer_size,omitempty"`

	// Monitoring — включает метрики для пайплайна.
	Monitoring bool `json:"monitoring,omitempty"`

	// DrainTimeoutSec — сколько ждать завершения in-flight элементов
	// при остановке, прежде чем отменить их принудительно.
	DrainTimeoutSec int `json:"drain_timeout_sec,omitempty"`

	// Security — настройки безопасности. Валидируются и передаются
	// адаптерам, enforcement вне ядра.
	Security SecuritySettings `json:"security,omitempty"`
}

// SecuritySettings — настройки безопасности пайплайна.
type SecuritySettings struct {
	// RequireAuth — требовать аутентификацию на входных адаптерах.
	RequireAuth bool `json:"require_auth,omitempty"`

	// RateLimit — лимит запросов в секунду (0 — без лимита).
	RateLimit int `json:"rate_limit,omitempty"`

	// AllowedOrigins — разрешённые origins для HTTP источников.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
}

// Значения по умолчанию для Settings.
const (
	DefaultMaxConcurrent   = 4
	DefaultBufferSize      = 64
	DefaultDrainTimeoutSec = 30
)

// Normalize заполняет нулевые настройки значениями по умолчанию.
func (s *Settings) Normalize() {
	if s.MaxConcurrent == 0 {
		s.MaxConcurrent = DefaultMaxConcurrent
	}
	if s.BufferSize == 0 {
		s.BufferSize = DefaultBufferSize
	}
	if s.DrainTimeoutSec == 0 {
		s.DrainTimeoutSec = DefaultDrainTimeoutSec
	}
}
