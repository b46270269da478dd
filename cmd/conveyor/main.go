// Conveyor — конфигурируемый движок пайплайнов обработки данных.
//
// Пайплайн описывается JSON-декларацией: источники событий,
// DAG шагов обработки и выходы с условиями доставки.
//
// Использование:
//
//	conveyor serve --config CONFIGS [--listen ADDR]
//	conveyor validate PATH
//	conveyor run CONFIG_FILE [--payload JSON]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/conveyor/internal/cli"
	"github.com/shaiso/conveyor/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	logger := telemetry.SetupLogger()

	rootCmd := &cobra.Command{
		Use:           "conveyor",
		Short:         "Conveyor — configurable data pipeline engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		cli.NewServeCmd(logger),
		cli.NewValidateCmd(),
		cli.NewRunCmd(logger),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
