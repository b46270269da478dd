// Package pipeline содержит runtime пайплайна: планировщик с
// ограниченной очередью приёма, диспетчер выходов с батчингом и
// реестр пайплайнов с lifecycle-управлением (load/start/stop).
//
// Пакет не знает о конкретных адаптерах: источники, шаги и sinks
// приходят через фабрики в RegistryConfig и используются только
// через контракты internal/domain.
package pipeline
