// cmd/reporter/cmd/queue.go
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ireport/internal/app/reporter"
)

var (
	showDeadLetter bool
	replayQueue    bool
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Просмотр офлайн-очереди репортов",
	Long: `Просмотр репортов, ожидающих отправки на сервер.

Флаг --replay запускает немедленную попытку отправки всей очереди.
Флаг --deadletter показывает репорты, исчерпавшие попытки отправки.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showDeadLetter {
			return showDeadLetterQueue()
		}
		if replayQueue {
			return runReplay(cmd)
		}
		return showPendingQueue()
	},
}

func showPendingQueue() error {
	subs, err := app.Storage().ListSubmissions()
	if err != nil {
		return fmt.Errorf("ошибка чтения очереди: %w", err)
	}

	fmt.Println("=== Очередь репортов ===")
	if len(subs) == 0 {
		fmt.Println("Очередь пуста.")
		return nil
	}

	for _, sub := range subs {
		printSubmission(sub)
	}
	fmt.Printf("\nВсего в очереди: %d\n", len(subs))

	return nil
}

func showDeadLetterQueue() error {
	subs, err := app.Storage().ListDeadLetter()
	if err != nil {
		return fmt.Errorf("ошибка чтения dead-letter очереди: %w", err)
	}

	fmt.Println("=== Недоставленные репорты ===")
	if len(subs) == 0 {
		fmt.Println("Недоставленных репортов нет.")
		return nil
	}

	for _, sub := range subs {
		printSubmission(sub)
		if sub.LastError != "" {
			color.Red("  Последняя ошибка: %s", sub.LastError)
		}
	}
	fmt.Printf("\nВсего недоставленных: %d\n", len(subs))

	return nil
}

func runReplay(cmd *cobra.Command) error {
	count, err := app.Queue().Count()
	if err != nil {
		return fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	if count == 0 {
		fmt.Println("Очередь пуста.")
		return nil
	}

	fmt.Printf("Отправка %d репортов...\n", count)

	result, err := app.Queue().ReplayAll(cmd.Context(), reporter.ReplayHooks{
		OnProgress: func(current, total int) {
			fmt.Printf("[%d/%d] ", current, total)
		},
		OnItemSuccess: func(id string) {
			color.Green("✓ %s", id)
		},
		OnItemError: func(id string, err error) {
			color.Red("✗ %s: %v", id, err)
		},
	})
	if err != nil {
		return fmt.Errorf("ошибка репликации очереди: %w", err)
	}

	fmt.Println()
	fmt.Printf("Отправлено: %d, с ошибками: %d\n", result.Successful, result.Failed)

	return nil
}

func printSubmission(sub *reporter.QueuedSubmission) {
	fmt.Printf("• %s\n", sub.ID)
	fmt.Printf("  Агентство: %s, подан: %s\n",
		sub.AgencyType, sub.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  %s\n", sub.Description)
	if sub.RetryCount > 0 {
		fmt.Printf("  Попыток отправки: %d\n", sub.RetryCount)
	}
}

func init() {
	queueCmd.Flags().BoolVar(&showDeadLetter, "deadletter", false, "показать недоставленные репорты")
	queueCmd.Flags().BoolVar(&replayQueue, "replay", false, "отправить очередь немедленно")
}
