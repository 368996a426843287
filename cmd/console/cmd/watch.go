// cmd/console/cmd/watch.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ireport/internal/app/console"
	"ireport/internal/domain/incident"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Живая лента инцидентов",
	Long: `Режим дежурства: консоль подписывается на живую ленту облака и
печатает каждую влитую в зеркало запись. Параллельно работает
периодическая синхронизация.

При потере соединения консоль продолжает работать с локальным зеркалом
и переподключается автоматически. Выход по Ctrl+C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app.Sync().OnStatusChange(func(status console.Status) {
			if status.Syncing {
				return
			}
			if status.Connected {
				color.Green("— соединение с облаком установлено —")
			} else {
				color.Red("— облако недоступно, работаем с локальным зеркалом —")
			}
		})

		app.Sync().OnIncidentUpdated(func(inc incident.Incident) {
			fmt.Printf("[%s] %s %s — %s (%s)\n",
				time.Now().Local().Format("15:04:05"),
				inc.ID, statusLabel(inc.Status), inc.Description, inc.AgencyType)
		})

		fmt.Println("=== Живая лента инцидентов ===")
		fmt.Println("Нажмите Ctrl+C для выхода.")
		fmt.Println()

		app.StartBackground(ctx)

		<-ctx.Done()
		fmt.Println()
		fmt.Println("Завершение работы.")

		return nil
	},
}
