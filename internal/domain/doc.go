// Package domain содержит основные типы системы Conveyor:
// DataItem, спецификации пайплайнов и контракты адаптеров
// (Source, Step, Sink).
//
// Пакет не зависит от других internal-пакетов. Движок и адаптеры
// общаются только через типы этого пакета.
package domain
