// cmd/console/cmd/deadletter.go
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deadLetterCmd = &cobra.Command{
	Use:   "deadletter",
	Short: "Недоставленные правки",
	Long: `Просмотр правок, исчерпавших попытки отправки в облако.

Такие правки требуют ручного разбора оператором: данные в локальном
зеркале могли разойтись с облаком.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		items, err := app.Storage().ListDeadLetter()
		if err != nil {
			return fmt.Errorf("ошибка чтения dead-letter очереди: %w", err)
		}

		fmt.Println("=== Недоставленные правки ===")
		if len(items) == 0 {
			fmt.Println("Недоставленных правок нет.")
			return nil
		}

		for _, item := range items {
			fmt.Printf("• %s %s (%s)\n", item.TableName, item.RecordID, item.Action)
			fmt.Printf("  Создана: %s, попыток: %d\n",
				item.CreatedAt.Local().Format("2006-01-02 15:04:05"), item.Attempts)
			if item.LastError != "" {
				color.Red("  Последняя ошибка: %s", item.LastError)
			}
		}
		fmt.Printf("\nВсего: %d\n", len(items))

		return nil
	},
}
