// cmd/console/cmd/status.go
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ireport/internal/domain/incident"
)

var (
	statusNotes   string
	statusBy      string
	statusHistory bool
)

var statusCmd = &cobra.Command{
	Use:   "status <incident-id> [новый-статус]",
	Short: "Смена статуса инцидента",
	Long: `Смена статуса инцидента оператором.

Статусы: pending, assigned, responding, resolved, dismissed.

Правка применяется к локальному зеркалу немедленно и попадает в очередь
отправки; в облако она уйдет при ближайшей синхронизации. Команда
работает и без сети.

Флаг --history показывает журнал смен статуса вместо записи новой.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("неверный идентификатор инцидента: %s", args[0])
		}

		if statusHistory {
			return showHistory(id)
		}

		if len(args) < 2 {
			return fmt.Errorf("укажите новый статус или флаг --history")
		}

		newStatus, err := incident.ParseStatus(args[1])
		if err != nil {
			return fmt.Errorf("неподдерживаемый статус: %s", args[1])
		}

		if statusBy == "" {
			return fmt.Errorf("укажите имя оператора флагом --by")
		}

		if err := app.Storage().UpdateIncidentStatus(id, newStatus, statusNotes, statusBy); err != nil {
			return fmt.Errorf("ошибка смены статуса: %w", err)
		}

		color.Green("✓ Статус изменен на %s", newStatus)
		fmt.Println("Правка будет отправлена в облако при ближайшей синхронизации.")

		return nil
	},
}

func showHistory(id uuid.UUID) error {
	entries, err := app.Storage().History(id)
	if err != nil {
		return fmt.Errorf("ошибка чтения журнала: %w", err)
	}

	fmt.Println("=== Журнал смен статуса ===")
	if len(entries) == 0 {
		fmt.Println("Журнал пуст.")
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("• %s — %s (%s)\n",
			entry.ChangedAt.Local().Format("2006-01-02 15:04:05"),
			statusLabel(entry.Status), entry.ChangedBy)
		if entry.Notes != "" {
			fmt.Printf("  %s\n", entry.Notes)
		}
		if !entry.Synced {
			color.Yellow("  Запись еще не отправлена в облако")
		}
	}

	return nil
}

func init() {
	statusCmd.Flags().StringVar(&statusNotes, "notes", "", "комментарий оператора")
	statusCmd.Flags().StringVar(&statusBy, "by", "", "имя оператора")
	statusCmd.Flags().BoolVar(&statusHistory, "history", false, "показать журнал смен статуса")
}
