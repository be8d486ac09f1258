package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 根据运行模式加载 .env 文件，例如 .env.development
func LoadEnv(mode string) error {
	if mode != "" {
		name := fmt.Sprintf(".env.%s", mode)
		if _, err := os.Stat(name); err == nil {
			return godotenv.Load(name)
		}
	}
	return godotenv.Load()
}

// GetStringOrDefault returns the environment value or a default when unset.
func GetStringOrDefault(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

// GetIntOrDefault returns the environment value as int or a default when unset.
func GetIntOrDefault(key string, defaultValue int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return cast.ToInt(v)
	}
	return defaultValue
}

// GetBoolOrDefault returns the environment value as bool or a default when unset.
func GetBoolOrDefault(key string, defaultValue bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return cast.ToBool(v)
	}
	return defaultValue
}

// GetDurationOrDefault returns the environment value as duration or a default when unset.
// 支持 "10s"、"500ms" 等 time.ParseDuration 格式
func GetDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d := cast.ToDuration(v); d != 0 {
			return d
		}
	}
	return defaultValue
}
