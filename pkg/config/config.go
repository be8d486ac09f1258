package config

import (
	"log"
	"time"

	"github.com/LingByte/LingMeet/pkg/constants"
	"github.com/LingByte/LingMeet/pkg/logger"
	"github.com/LingByte/LingMeet/pkg/utils"
)

// MeetingConfig holds coordinator-specific configuration
type MeetingConfig struct {
	AcquireTimeout   time.Duration `json:"acquire_timeout"`
	ShareTimeout     time.Duration `json:"share_timeout"`
	EventQueueSize   int           `json:"event_queue_size"`
	EventWorkers     int           `json:"event_workers"`
	QualitySampleTTL time.Duration `json:"quality_sample_ttl"`
}

// SignalConfig holds signaling transport configuration
type SignalConfig struct {
	URL            string        `json:"url"`
	ReconnectDelay time.Duration `json:"reconnect_delay"`
}

var GlobalConfig *Config

// Config System common config
type Config struct {
	Meeting MeetingConfig    // Meeting coordinator configuration
	Signal  SignalConfig     // Signaling transport configuration
	Log     logger.LogConfig // Log configuration
	Mode    string           `env:"MODE"`
}

func Load() error {
	// 1. 根据环境加载 .env 文件（如果不存在也不报错，使用默认值）
	mode := utils.GetStringOrDefault("MODE", "development")
	err := utils.LoadEnv(mode)
	if err != nil {
		// .env文件不存在时只记录日志，不影响启动
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}
	// 2. 加载全局配置（所有配置都有默认值，确保无.env文件也能启动）
	GlobalConfig = &Config{
		Meeting: MeetingConfig{
			AcquireTimeout:   utils.GetDurationOrDefault(constants.ENV_ACQUIRE_TIMEOUT, constants.DefaultAcquireTimeout),
			ShareTimeout:     utils.GetDurationOrDefault(constants.ENV_SHARE_TIMEOUT, constants.DefaultShareTimeout),
			EventQueueSize:   utils.GetIntOrDefault(constants.ENV_EVENT_QUEUE_SIZE, constants.DefaultEventQueueSize),
			EventWorkers:     utils.GetIntOrDefault(constants.ENV_EVENT_WORKERS, constants.DefaultEventWorkers),
			QualitySampleTTL: utils.GetDurationOrDefault(constants.ENV_QUALITY_SAMPLE_TTL, constants.DefaultQualitySampleTTL),
		},
		Signal: SignalConfig{
			URL:            utils.GetStringOrDefault(constants.ENV_SIGNAL_URL, "ws://localhost:7072/signal"),
			ReconnectDelay: utils.GetDurationOrDefault(constants.ENV_SIGNAL_RECONNECT_DELAY, 3*time.Second),
		},
		Log: logger.LogConfig{
			Level:      utils.GetStringOrDefault("LOG_LEVEL", "info"),
			Filename:   utils.GetStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    utils.GetIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     utils.GetIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: utils.GetIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      utils.GetBoolOrDefault("LOG_DAILY", true),
		},
		Mode: mode,
	}
	return nil
}
