package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// --- 環境変数名 ---

const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvBaseURL     = "FIC_BASE_URL"
	EnvUserAgent   = "FIC_USER_AGENT"

	DefaultBaseURL = "https://archiveofourown.org"
)

// Config は環境から読み込む設定です。コマンドのフラグで上書きされます。
type Config struct {
	DatabaseURL string
	BaseURL     string
	UserAgent   string
}

// Load はカレントディレクトリの .env を読み込んだ後、環境変数から Config を作成します。
// .env が無い場合はそのまま環境変数を使います。既に設定済みの環境変数は上書きしません。
func Load() Config {
	if err := godotenv.Load(); err == nil {
		slog.Debug(".env を読み込みました")
	}
	return FromEnv()
}

// FromEnv は現在の環境変数から Config を作成します。
func FromEnv() Config {
	return Config{
		DatabaseURL: os.Getenv(EnvDatabaseURL),
		BaseURL:     strings.TrimRight(getEnvOrDefault(EnvBaseURL, DefaultBaseURL), "/"),
		UserAgent:   os.Getenv(EnvUserAgent),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
