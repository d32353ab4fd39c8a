package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	API          API
	Store        Store
	MockServer   MockServer
	AdminKey     string
	GeminiApiKey string
}

type API struct {
	BaseURL string
	Timeout time.Duration
}

type Store struct {
	Path string
}

type MockServer struct {
	Port      string
	JWTSecret string
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.SetDefault("API_BASE_URL", "http://localhost:8080")
	viper.SetDefault("API_TIMEOUT", "15s")
	viper.SetDefault("STORE_PATH", "classline.db")
	viper.SetDefault("MOCK_SERVER_PORT", "8080")
	viper.SetDefault("MOCK_SERVER_JWT_SECRET", "classline-dev-secret")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.API.BaseURL = viper.GetString("API_BASE_URL")
	config.API.Timeout = viper.GetDuration("API_TIMEOUT")
	config.Store.Path = viper.GetString("STORE_PATH")
	config.MockServer.Port = viper.GetString("MOCK_SERVER_PORT")
	config.MockServer.JWTSecret = viper.GetString("MOCK_SERVER_JWT_SECRET")
	config.AdminKey = viper.GetString("ADMIN_KEY")
	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().Str("base_url", config.API.BaseURL).Str("store", config.Store.Path).Msg("Config loaded")
	return &config, nil
}
