// cmd/console/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"ireport/internal/app/console"
	"ireport/internal/app/console/config"
	"ireport/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *console.App
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "ireport-console",
	Short: "iReport Console — рабочее место оператора оперативной службы",
	Long: `iReport Console — настольное приложение оператора агентства.

Консоль держит локальное зеркало облачной базы инцидентов, поэтому
просмотр и смена статусов работают и без сети. Правки копятся в очереди
и выталкиваются в облако при восстановлении соединения.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	defer func() {
		if app != nil {
			_ = app.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(_ *cobra.Command, _ []string) error {
	cfg = config.MustLoad()

	// Переопределяем настройки из флагов командной строки
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	log = logger.New(cfg.Env)

	var err error
	app, err = console.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	return nil
}

// requireAuth возвращает ошибку, если оператор еще не вошел в систему
func requireAuth() error {
	if !app.Authenticated() {
		return fmt.Errorf("требуется аутентификация. Выполните: ireport-console login")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера iReport")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(deadLetterCmd)
}
