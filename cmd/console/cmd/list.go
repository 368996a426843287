// cmd/console/cmd/list.go
package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ireport/internal/domain/incident"
)

var (
	listStatus string
	listAgency string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Список инцидентов из локального зеркала",
	Long: `Просмотр инцидентов из локального зеркала облачной базы.

Команда работает и без сети: показываются данные последней синхронизации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var status incident.Status
		if listStatus != "" {
			parsed, err := incident.ParseStatus(listStatus)
			if err != nil {
				return fmt.Errorf("неподдерживаемый статус: %s", listStatus)
			}
			status = parsed
		}

		var agency incident.AgencyType
		if listAgency != "" {
			parsed, err := incident.ParseAgency(listAgency)
			if err != nil {
				return fmt.Errorf("неподдерживаемое агентство: %s", listAgency)
			}
			agency = parsed
		}

		incidents, err := app.Storage().ListIncidents(status, agency, listLimit)
		if err != nil {
			return fmt.Errorf("ошибка чтения зеркала: %w", err)
		}

		fmt.Println("=== Инциденты ===")
		if len(incidents) == 0 {
			fmt.Println("Инцидентов не найдено.")
			return nil
		}

		for _, inc := range incidents {
			printIncident(inc)
		}
		fmt.Printf("\nВсего: %d\n", len(incidents))

		return nil
	},
}

func printIncident(inc *incident.Incident) {
	fmt.Printf("• %s\n", inc.ID)
	fmt.Printf("  [%s] %s — %s\n", inc.AgencyType, statusLabel(inc.Status), inc.Description)
	fmt.Printf("  Обновлен: %s", inc.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if inc.UpdatedBy != "" {
		fmt.Printf(" (%s)", inc.UpdatedBy)
	}
	fmt.Println()
	if !inc.Synced {
		color.Yellow("  Локальная правка еще не отправлена в облако")
	}
}

func statusLabel(status incident.Status) string {
	switch status {
	case incident.StatusPending:
		return color.YellowString(string(status))
	case incident.StatusResolved:
		return color.GreenString(string(status))
	case incident.StatusDismissed:
		return color.RedString(string(status))
	default:
		return color.CyanString(string(status))
	}
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "фильтр по статусу")
	listCmd.Flags().StringVarP(&listAgency, "agency", "a", "", "фильтр по агентству")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "максимум записей")
}
