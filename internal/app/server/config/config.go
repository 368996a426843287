package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env    string
	DB     db
	Server server
	Media  media
	Logger logger
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type media struct {
	Dir     string `env:"MEDIA_DIR"`
	BaseURL string `env:"MEDIA_BASE_URL"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func MustLoad() *Config {
	// .env опционален: в контейнере конфигурация приходит окружением
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("run_address", ":8080")
	viper.SetDefault("migrations_path", "migrations")
	viper.SetDefault("media_dir", "media")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("app_env", EnvProd)

	return &Config{
		Env: viper.GetString("app_env"),
		DB: db{
			DatabaseURI: viper.GetString("database_uri"),
			Migrations:  viper.GetString("migrations_path"),
		},
		Server: server{RunAddress: viper.GetString("run_address")},
		Media: media{
			Dir:     viper.GetString("media_dir"),
			BaseURL: viper.GetString("media_base_url"),
		},
		Logger: logger{LogLevel: viper.GetString("log_level")},
	}
}
