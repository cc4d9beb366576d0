// Пакет cli — команды ekg-admin (cobra).
package cli

import (
	"github.com/spf13/cobra"

	"github.com/vinaykumarvk/create-EKG/internal/config"
)

// NewRootCommand собирает дерево команд. Без подкоманды выполняется serve.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ekg-admin",
		Short:         "Консоль администрирования индекса документов EKG",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newHashPasswordCommand())
	return root
}

// Execute выполняет корневую команду.
func Execute() error {
	return NewRootCommand().Execute()
}
