// Package config loads environment configuration for the binaries. The core
// providers never read the environment themselves; everything is injected.
package config

import (
	"os"
	"strings"
)

type Config struct {
	Addr        string
	APIBaseURL  string
	SecstoreDir string
	SecstoreKey string
	JWTSecret   string
}

func Load() *Config {
	return &Config{
		Addr:        getEnv("TIENDA_ADDR", ":8080"),
		APIBaseURL:  getEnv("TIENDA_API_BASE_URL", "http://localhost:8080"),
		SecstoreDir: getEnv("TIENDA_SECSTORE_DIR", defaultSecstoreDir()),
		SecstoreKey: getEnvFromFile("TIENDA_SECSTORE_KEY_FILE", "TIENDA_SECSTORE_KEY", "tienda-dev-secstore-passphrase"),
		JWTSecret:   getEnvFromFile("TIENDA_JWT_SECRET_FILE", "TIENDA_JWT_SECRET", "tienda-dev-jwt-secret"),
	}
}

func defaultSecstoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tienda"
	}
	return home + "/.tienda"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFromFile(fileKey, envKey, defaultValue string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		if content, err := os.ReadFile(filePath); err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return getEnv(envKey, defaultValue)
}
