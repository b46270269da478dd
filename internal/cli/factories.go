package cli

import (
	"log/slog"

	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/pipeline"
	"github.com/shaiso/conveyor/internal/sink"
	"github.com/shaiso/conveyor/internal/source"
	"github.com/shaiso/conveyor/internal/step"
)

// defaultFactories связывает реестр с конкретными адаптерами.
// Единственное место, где ядро встречается с реализациями.
func defaultFactories(logger *slog.Logger) pipeline.Factories {
	return pipeline.Factories{
		Source: source.New,
		Step:   step.New,
		Sink: func(def *domain.SinkDef) (domain.Sink, error) {
			return sink.New(def, logger)
		},
	}
}
