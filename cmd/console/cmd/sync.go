// cmd/console/cmd/sync.go
package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var syncStatusOnly bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Синхронизация с облаком",
	Long: `Немедленный проход синхронизации: затянуть изменения из облака,
вытолкнуть локальные правки, досогласовать журнал статусов.

Флаг --status показывает состояние синхронизации без запуска прохода.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		if syncStatusOnly {
			return showSyncStatus()
		}

		fmt.Println("=== Синхронизация ===")
		start := time.Now()

		if err := app.Sync().SyncNow(cmd.Context()); err != nil {
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		status := app.Sync().Status()

		color.Green("✓ Синхронизация завершена за %v", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Правок в очереди отправки: %d\n", status.PendingCount)
		if status.DeadLettered > 0 {
			color.Red("Недоставленных правок: %d", status.DeadLettered)
			fmt.Println("Используйте 'ireport-console deadletter' для просмотра.")
		}

		return nil
	},
}

func showSyncStatus() error {
	status := app.Sync().Status()

	fmt.Println("=== Статус синхронизации ===")
	if status.Connected {
		color.Green("Соединение с облаком: есть")
	} else {
		color.Red("Соединение с облаком: нет")
	}
	if status.LastSync.IsZero() {
		fmt.Println("Последняя синхронизация: никогда")
	} else {
		fmt.Printf("Последняя синхронизация: %s\n",
			status.LastSync.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Правок в очереди отправки: %d\n", status.PendingCount)
	fmt.Printf("Недоставленных правок: %d\n", status.DeadLettered)

	return nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncStatusOnly, "status", false, "показать состояние синхронизации")
}
