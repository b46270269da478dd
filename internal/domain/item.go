package domain

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// DataItem — единица данных, проходящая через пайплайн.
//
// ID сохраняется на всём пути элемента через пайплайн — результат
// можно сопоставить с исходным событием. Payload и Metadata шаги
// заменяют через copy-on-write: Process возвращает новый DataItem,
// исходный не модифицируется.
type DataItem struct {
	// ID — уникальный идентификатор элемента.
	ID uuid.UUID `json:"id"`

	// Payload — полезная нагрузка (сырые байты).
	Payload []byte `json:"payload"`

	// Metadata — строковые метаданные (source id, извлечённые поля и т.д.).
	Metadata map[string]string `json:"metadata"`

	// Timestamp — время создания элемента.
	Timestamp time.Time `json:"timestamp"`
}

// NewDataItem создаёт новый DataItem с указанным payload.
func NewDataItem(payload []byte) *DataItem {
	return &DataItem{
		ID:        uuid.New(),
		Payload:   payload,
		Metadata:  make(map[string]string),
		Timestamp: time.Now().UTC(),
	}
}

// Clone возвращает глубокую копию элемента с тем же ID.
// Используется шагами для copy-on-write модификаций.
func (d *DataItem) Clone() *DataItem {
	payload := make([]byte, len(d.Payload))
	copy(payload, d.Payload)

	metadata := make(map[string]string, len(d.Metadata))
	maps.Copy(metadata, d.Metadata)

	return &DataItem{
		ID:        d.ID,
		Payload:   payload,
		Metadata:  metadata,
		Timestamp: d.Timestamp,
	}
}

// WithPayload возвращает копию элемента с заменённым payload.
func (d *DataItem) WithPayload(payload []byte) *DataItem {
	item := d.Clone()
	item.Payload = payload
	return item
}

// WithMeta возвращает копию элемента с добавленным метаданным.
func (d *DataItem) WithMeta(key, value string) *DataItem {
	item := d.Clone()
	item.Metadata[key] = value
	return item
}

// Meta возвращает значение метаданного по ключу.
func (d *DataItem) Meta(key string) (string, bool) {
	v, ok := d.Metadata[key]
	return v, ok
}
