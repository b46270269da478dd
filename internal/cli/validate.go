package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/conveyor/internal/config"
	"github.com/shaiso/conveyor/internal/engine"
)

// NewValidateCmd создаёт команду validate.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH",
		Short: "Validate pipeline configs without starting them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := config.LoadPath(args[0])
			if err != nil {
				return err
			}

			for _, spec := range specs {
				// Load уже провалидировал спецификацию, граф
				// компилируем повторно ради порядка выполнения.
				graph, err := engine.BuildGraph(spec.Steps)
				if err != nil {
					return err
				}

				order := make([]string, 0, len(graph.Order))
				for _, node := range graph.Order {
					order = append(order, node.ID)
				}

				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: OK (%d sources, %d steps, %d sinks)\n",
					spec.Name, len(spec.Sources), len(spec.Steps), len(spec.Sinks))
				fmt.Fprintf(cmd.OutOrStdout(),
					"  order: %s\n", strings.Join(order, " -> "))
			}
			return nil
		},
	}
}
