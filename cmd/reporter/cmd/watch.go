// cmd/reporter/cmd/watch.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Фоновый режим отправки очереди",
	Long: `Фоновый режим: клиент следит за доступностью сервера и отправляет
накопленную очередь при каждом переходе offline -> online. Непустая
очередь отправляется и сразу на старте.

Выход по Ctrl+C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		count, err := app.Queue().Count()
		if err != nil {
			return fmt.Errorf("ошибка чтения очереди: %w", err)
		}

		fmt.Println("=== Фоновый режим ===")
		fmt.Printf("В очереди: %d\n", count)
		fmt.Println("Нажмите Ctrl+C для выхода.")

		app.StartBackground(ctx)

		<-ctx.Done()
		fmt.Println()
		fmt.Println("Завершение работы.")

		return nil
	},
}
