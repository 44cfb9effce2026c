package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Синхронизация с Discord. Пустой токен выключает её целиком.
	DiscordBotToken      string
	DiscordServerID      string
	DiscordVoiceChannels int

	// База публичных ссылок на задачи и пады.
	PadBaseURL string

	// Хранилище логотипов (Cloudflare R2). Пустой AccountID выключает.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// DiscordEnabled сообщает, настроена ли синхронизация с Discord.
func (c *Config) DiscordEnabled() bool {
	return c.DiscordBotToken != "" && c.DiscordServerID != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	voiceChannels := 0
	if raw := os.Getenv("DISCORD_VOICE_CHANNELS"); raw != "" {
		voiceChannels, err = strconv.Atoi(raw)
		if err != nil || voiceChannels < 0 {
			return nil, fmt.Errorf("invalid DISCORD_VOICE_CHANNELS environment variable: %q", raw)
		}
	}

	cfg := &Config{
		DatabaseURL:  dbURL,
		JWTSecretKey: jwtKey,
		ServerPort:   port,

		DiscordBotToken:      os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordServerID:      os.Getenv("DISCORD_SERVER_ID"),
		DiscordVoiceChannels: voiceChannels,

		PadBaseURL: os.Getenv("PAD_BASE_URL"),

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}
