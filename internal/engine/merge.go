package engine

import "github.com/shaiso/conveyor/internal/domain"

// MergeFunc объединяет результаты нескольких зависимостей в один
// входной элемент для узла. inputs идут в порядке объявления
// depends_on и всегда непусты.
//
// Это точка расширения: адаптер может подставить свою функцию
// слияния через Config.Merge.
type MergeFunc func(inputs []*domain.DataItem) *domain.DataItem

// MergeLeftToRight — политика слияния по умолчанию.
//
// Payload и ID берутся из первой объявленной зависимости; остальные
// зависимости вносят только метаданные. Метаданные сливаются слева
// направо: при совпадении ключей побеждает более поздняя зависимость.
func MergeLeftToRight(inputs []*domain.DataItem) *domain.DataItem {
	if len(inputs) == 1 {
		return inputs[0]
	}

	merged := inputs[0].Clone()
	for _, in := range inputs[1:] {
		for k, v := range in.Metadata {
			merged.Metadata[k] = v
		}
	}

	return merged
}
