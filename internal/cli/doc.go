// Package cli реализует команды бинаря conveyor.
//
// Команды:
//
//	serve     Поднять пайплайны из конфигураций и обслуживать их
//	validate  Проверить конфигурации без запуска
//	run       Прогнать один элемент через DAG шагов пайплайна
package cli
