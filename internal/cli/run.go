package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/conveyor/internal/config"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/step"
)

// runResult — вывод команды run в JSON.
type runResult struct {
	Failed   bool                         `json:"failed"`
	States   map[string]domain.NodeStatus `json:"states"`
	Error    string                       `json:"error,omitempty"`
	Payload  string                       `json:"payload,omitempty"`
	Metadata map[string]string            `json:"metadata,omitempty"`
}

// NewRunCmd создаёт команду run: прогоняет один элемент через DAG
// шагов пайплайна без источников и sinks. Удобно для отладки
// конфигураций: payload подаётся флагом или через stdin, результат
// печатается в stdout.
func NewRunCmd(logger *slog.Logger) *cobra.Command {
	var payload string
	var meta []string

	cmd := &cobra.Command{
		Use:   "run CONFIG_FILE",
		Short: "Run a single item through the pipeline's step graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := config.Load(args[0])
			if err != nil {
				return err
			}

			data := []byte(payload)
			if payload == "" {
				data, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			item := domain.NewDataItem(data)
			for _, kv := range meta {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid --meta %q, want key=value", kv)
				}
				item.Metadata[k] = v
			}

			graph, err := engine.BuildGraph(spec.Steps)
			if err != nil {
				return err
			}

			steps := make(map[string]domain.Step, len(spec.Steps))
			for i := range spec.Steps {
				impl, err := step.New(&spec.Steps[i])
				if err != nil {
					return err
				}
				steps[spec.Steps[i].ID] = impl
			}

			exec, err := engine.NewExecutor(engine.ExecutorConfig{
				Graph:    graph,
				Steps:    steps,
				Pipeline: spec.Name,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			started := time.Now()
			result := exec.Run(cmd.Context(), item)
			logger.Info("run finished",
				"pipeline", spec.Name,
				"failed", result.Failed,
				"elapsed", time.Since(started),
			)

			out := runResult{
				Failed: result.Failed,
				States: result.States,
			}
			if result.Err != nil {
				out.Error = result.Err.Error()
			}
			if result.Item != nil {
				out.Payload = string(result.Item.Payload)
				out.Metadata = result.Item.Metadata
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}

			if result.Failed {
				return fmt.Errorf("pipeline %s: item failed", spec.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "", "Item payload (default: read stdin)")
	cmd.Flags().StringArrayVar(&meta, "meta", nil, "Initial metadata key=value (repeatable)")

	return cmd
}
