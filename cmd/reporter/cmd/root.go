// cmd/reporter/cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"ireport/internal/app/reporter"
	"ireport/internal/app/reporter/config"
	"ireport/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *reporter.App
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "ireport",
	Short: "iReport — мобильный клиент подачи репортов об инцидентах",
	Long: `iReport — клиент гражданина для подачи репортов об инцидентах
в полицию, пожарную службу и службу ЧС.

Репорты можно подавать и без сети: они сохраняются в локальную очередь
и отправляются автоматически при восстановлении соединения.`,
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
	app, err = reporter.New(cfg, log)
	if err != nil {
		return fmt.Errorf("ошибка инициализации приложения: %w", err)
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "адрес сервера iReport")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(watchCmd)
}
