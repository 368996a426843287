// cmd/reporter/cmd/submit.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ireport/internal/app/reporter"
	"ireport/internal/domain/incident"
)

var (
	agencyFlag   string
	description  string
	latitude     float64
	longitude    float64
	address      string
	reporterName string
	reporterAge  int
	mediaPaths   []string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Подать репорт об инциденте",
	Long: `Подача нового репорта об инциденте.

Агентства:
- pnp    - полиция
- bfp    - пожарная служба
- pdrrmo - служба ЧС

Если сервер недоступен, репорт сохраняется в локальную очередь и будет
отправлен автоматически при восстановлении соединения.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Если агентство не указано, спрашиваем
		if agencyFlag == "" {
			fmt.Println("Выберите агентство:")
			fmt.Println("1. Полиция (PNP)")
			fmt.Println("2. Пожарная служба (BFP)")
			fmt.Println("3. Служба ЧС (PDRRMO)")
			fmt.Print("Ваш выбор [1-3]: ")

			var choice string
			fmt.Scanln(&choice)

			switch choice {
			case "1":
				agencyFlag = "pnp"
			case "2":
				agencyFlag = "bfp"
			case "3":
				agencyFlag = "pdrrmo"
			default:
				return fmt.Errorf("неверный выбор")
			}
		}

		agency, err := incident.ParseAgency(agencyFlag)
		if err != nil {
			return fmt.Errorf("неподдерживаемое агентство: %s", agencyFlag)
		}

		scanner := bufio.NewScanner(os.Stdin)

		if description == "" {
			fmt.Print("Описание инцидента: ")
			if scanner.Scan() {
				description = scanner.Text()
			}
			if description == "" {
				return fmt.Errorf("описание обязательно")
			}
		}

		if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
			fmt.Print("Широта: ")
			if scanner.Scan() {
				latitude, err = strconv.ParseFloat(scanner.Text(), 64)
				if err != nil {
					return fmt.Errorf("неверная широта: %w", err)
				}
			}
			fmt.Print("Долгота: ")
			if scanner.Scan() {
				longitude, err = strconv.ParseFloat(scanner.Text(), 64)
				if err != nil {
					return fmt.Errorf("неверная долгота: %w", err)
				}
			}
		}

		if reporterName == "" {
			fmt.Print("Ваше имя (необязательно, Enter чтобы пропустить): ")
			if scanner.Scan() {
				reporterName = scanner.Text()
			}
		}

		// Проверяем, что все приложенные файлы существуют
		for _, p := range mediaPaths {
			if _, err := os.Stat(p); err != nil {
				return fmt.Errorf("файл %s недоступен: %w", p, err)
			}
		}

		sub := &reporter.QueuedSubmission{
			ID:              uuid.NewString(),
			AgencyType:      agency,
			ReporterName:    reporterName,
			ReporterAge:     reporterAge,
			Description:     description,
			Latitude:        latitude,
			Longitude:       longitude,
			LocationAddress: address,
			MediaPaths:      mediaPaths,
			Timestamp:       time.Now().UTC(),
		}

		fmt.Println("Отправка репорта...")
		queued, err := app.Submit(cmd.Context(), sub)
		if err != nil {
			return fmt.Errorf("ошибка подачи репорта: %w", err)
		}

		if queued {
			color.Yellow("⚠ Сервер недоступен — репорт сохранен в очередь")
			fmt.Printf("Идентификатор: %s\n", sub.ID)
			fmt.Println("Репорт будет отправлен автоматически при восстановлении сети.")
		} else {
			color.Green("✓ Репорт отправлен")
			fmt.Printf("Идентификатор: %s\n", sub.ID)
		}

		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&agencyFlag, "agency", "a", "", "агентство: pnp, bfp, pdrrmo")
	submitCmd.Flags().StringVarP(&description, "description", "d", "", "описание инцидента")
	submitCmd.Flags().Float64Var(&latitude, "lat", 0, "широта места инцидента")
	submitCmd.Flags().Float64Var(&longitude, "lon", 0, "долгота места инцидента")
	submitCmd.Flags().StringVar(&address, "address", "", "адрес места инцидента")
	submitCmd.Flags().StringVar(&reporterName, "name", "", "имя репортера")
	submitCmd.Flags().IntVar(&reporterAge, "age", 0, "возраст репортера")
	submitCmd.Flags().StringArrayVarP(&mediaPaths, "media", "m", nil, "путь к фото или видео (можно несколько раз)")
}
